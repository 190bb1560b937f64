package main

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sghctoma/sst/telemetry/internal/db"
	"github.com/sghctoma/sst/telemetry/internal/metrics"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

func sessionId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return id, true
}

func (this *RequestHandler) GetSessions(c *gin.Context) {
	sessions, err := this.Store.Sessions(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (this *RequestHandler) GetSession(c *gin.Context) {
	id, ok := sessionId(c)
	if !ok {
		return
	}

	session, err := this.Store.Session(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (this *RequestHandler) GetSessionData(c *gin.Context) {
	id, ok := sessionId(c)
	if !ok {
		return
	}

	name, data, err := this.Store.SessionData(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(name+".PSST"))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// PutSession stores an already processed (PSST) recording. The record is
// decoded first, so that only valid records get into the database.
func (this *RequestHandler) PutSession(c *gin.Context) {
	var req struct {
		Name        string `json:"name"        binding:"required"`
		Description string `json:"description"`
		RawData     string `json:"data"        binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	psst_data, err := base64.StdEncoding.DecodeString(req.RawData)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	processed, err := psst.Decode(psst_data)
	if err != nil {
		metrics.DecodeErrors.WithLabelValues("upload").Inc()
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	session := db.Session{
		Name:        req.Name,
		Description: req.Description,
		Timestamp:   processed.Timestamp,
		Data:        psst_data,
	}
	id, err := this.Store.InsertSession(c.Request.Context(), &session)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	this.Log.Infow("session stored", "id", id, "name", session.Name, "duration", processed.Duration())
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (this *RequestHandler) DeleteSession(c *gin.Context) {
	id, ok := sessionId(c)
	if !ok {
		return
	}

	if err := this.Store.DeleteSession(c.Request.Context(), id); errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		c.Status(http.StatusNoContent)
	}
}

func (this *RequestHandler) PatchSession(c *gin.Context) {
	id, ok := sessionId(c)
	if !ok {
		return
	}

	var sessionMeta struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"desc"`
	}
	if err := c.ShouldBindJSON(&sessionMeta); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := this.Store.UpdateSession(c.Request.Context(), id, sessionMeta.Name, sessionMeta.Description); errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	} else {
		c.Status(http.StatusNoContent)
	}
}
