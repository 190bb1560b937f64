package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sghctoma/sst/telemetry/internal/db"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

func (this *RequestHandler) GetCalibrationMethods(c *gin.Context) {
	cms, err := this.Store.CalibrationMethods(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cms)
}

func (this *RequestHandler) GetCalibrationMethod(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cm, err := this.Store.CalibrationMethod(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cm)
}

func (this *RequestHandler) PutCalibrationMethod(c *gin.Context) {
	var cm psst.CalibrationMethod
	if err := c.ShouldBindJSON(&cm); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := this.Store.InsertCalibrationMethod(c.Request.Context(), &cm); err != nil {
		var ve *psst.ValidationError
		if errors.As(err, &ve) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": ve.Field})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": cm.Id})
}

// ValidateCalibrationMethod evaluates a method with the given inputs at
// sample 0 without storing it.
func (this *RequestHandler) ValidateCalibrationMethod(c *gin.Context) {
	var req struct {
		Method psst.CalibrationMethod `json:"method"`
		Inputs map[string]float64     `json:"inputs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	value, err := req.Method.Validate(req.Inputs)
	if err != nil {
		var ve *psst.ValidationError
		if errors.As(err, &ve) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": ve.Field})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": value})
}

func (this *RequestHandler) DeleteCalibrationMethod(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := this.Store.DeleteCalibrationMethod(c.Request.Context(), id); errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		c.Status(http.StatusNoContent)
	}
}
