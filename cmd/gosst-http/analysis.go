package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sghctoma/sst/telemetry/internal/analysis"
	"github.com/sghctoma/sst/telemetry/internal/db"
	"github.com/sghctoma/sst/telemetry/internal/metrics"
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

// queryFloat returns nil for missing or malformed parameters.
func queryFloat(c *gin.Context, key string) *float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return nil
	}
	return &v
}

func label(start, end *float64) string {
	if start == nil || end == nil {
		return "full"
	}
	return "range"
}

func (this *RequestHandler) analyze(ctx context.Context, id int64, start, end *float64) (*analysis.Bundle, error) {
	timer := prometheus.NewTimer(metrics.AnalysisLatency.WithLabelValues(label(start, end)))
	defer timer.ObserveDuration()

	_, data, err := this.Store.SessionData(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := psst.Decode(data)
	if err != nil {
		metrics.DecodeErrors.WithLabelValues("store").Inc()
		return nil, err
	}

	s, e, err := analysis.ResolveRange(start, end, t.SampleRate, analysis.SampleCount(t))
	if err != nil {
		metrics.RangeErrors.Inc()
		this.Log.Warnw("invalid range, analyzing the whole session", "id", id, "error", err)
	}
	return analysis.Analyze(t, s, e, this.HighSpeedThreshold), nil
}

// GetSessionAnalysis returns the analysis bundle of a session, optionally
// restricted to the strokes between the start and end query parameters
// (seconds). Concurrent requests for the same session and range share one
// computation.
func (this *RequestHandler) GetSessionAnalysis(c *gin.Context) {
	id, ok := sessionId(c)
	if !ok {
		return
	}
	start := queryFloat(c, "start")
	end := queryFloat(c, "end")

	key := fmt.Sprintf("%d", id)
	if start != nil && end != nil {
		key = fmt.Sprintf("%d/%g/%g", id, *start, *end)
	}
	ctx := context.WithoutCancel(c.Request.Context())
	v, err, shared := this.analyses.Do(key, func() (interface{}, error) {
		return this.analyze(ctx, id, start, end)
	})
	if shared {
		metrics.SharedAnalyses.Inc()
	}
	if err != nil {
		var de *psst.DecodeError
		if errors.Is(err, db.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else if errors.As(err, &de) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, v.(*analysis.Bundle))
}
