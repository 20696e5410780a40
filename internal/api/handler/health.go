package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BucketLister reports registered bucket names.
type BucketLister interface {
	Buckets() []string
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	buckets BucketLister
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(buckets BucketLister) *HealthHandler {
	return &HealthHandler{buckets: buckets}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	count := 0
	if h.buckets != nil {
		count = len(h.buckets.Buckets())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"buckets": count,
	})
}
