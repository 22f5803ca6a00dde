package httpapi

import (
	"net/http"
	"strconv"

	"hotline-relay/internal/auth"
	"hotline-relay/internal/calllog"
	"hotline-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the admin API handlers.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	CallLog *calllog.Service
}

// ListEvents returns the newest call-log events.
func (h Handlers) ListEvents(c *gin.Context) {
	if h.CallLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log not configured"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	events, err := h.CallLog.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("call log list failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log unavailable"})
		return
	}
	if events == nil {
		events = []calllog.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Summary returns event counts per type.
func (h Handlers) Summary(c *gin.Context) {
	if h.CallLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log not configured"})
		return
	}
	sum, err := h.CallLog.Summary(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("call log summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log unavailable"})
		return
	}
	op, _ := auth.Operator(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"summary": sum, "operator": op})
}
