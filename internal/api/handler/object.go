package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/bucketgate/internal/domain"
	"github.com/timmy/bucketgate/internal/service"
)

// UploadRequest is the body of PUT /api/v1/buckets/:bucket/objects/*key.
type UploadRequest struct {
	Data    string `json:"data" binding:"required"`
	Encrypt bool   `json:"encrypt"`
}

// uploadBodyOverhead is the room left for the JSON envelope around the payload.
const uploadBodyOverhead = 4 << 10

// DeleteRequest is the body of DELETE /api/v1/buckets/:bucket/objects.
type DeleteRequest struct {
	Keys []string `json:"keys"`
}

// ObjectHandler handles object endpoints.
type ObjectHandler struct {
	objectService *service.ObjectService
}

// NewObjectHandler creates a new object handler.
// Parameters:
//   - objectService: object service instance.
//
// Returns:
//   - *ObjectHandler: initialized handler.
func NewObjectHandler(objectService *service.ObjectService) *ObjectHandler {
	return &ObjectHandler{
		objectService: objectService,
	}
}

// objectKey returns the wildcard key without its leading slash.
func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// Upload handles PUT /api/v1/buckets/:bucket/objects/*key.
func (h *ObjectHandler) Upload(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		badRequest(c, "Object key is required")
		return
	}

	if limit := h.objectService.MaxPayloadBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+uploadBodyOverhead)
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, fmt.Errorf("%w: request body exceeds %d bytes", service.ErrPayloadTooLarge, tooLarge.Limit))
			return
		}
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.objectService.Upload(c.Request.Context(), c.Param("bucket"), key, req.Data, req.Encrypt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Delete handles DELETE /api/v1/buckets/:bucket/objects.
// The response carries the per-key outcome reported by the store.
func (h *ObjectHandler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.objectService.Delete(c.Request.Context(), c.Param("bucket"), req.Keys)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Presign handles GET /api/v1/buckets/:bucket/presign/*key.
// Query parameters:
//   - kms_key_id: key id to sign SSE headers with.
//   - use_bucket_key: fall back to the bucket's registered key (default true).
func (h *ObjectHandler) Presign(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		badRequest(c, "Object key is required")
		return
	}

	useBucketKey := true
	if v := c.Query("use_bucket_key"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "Invalid use_bucket_key: "+v)
			return
		}
		useBucketKey = parsed
	}

	presigned, err := h.objectService.Presign(c.Request.Context(), c.Param("bucket"), key, c.Query("kms_key_id"), useBucketKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, presigned)
}

// List handles GET /api/v1/buckets/:bucket/objects.
func (h *ObjectHandler) List(c *gin.Context) {
	status := domain.ObjectStatus(c.Query("status"))
	switch status {
	case "", domain.ObjectStatusActive, domain.ObjectStatusDeleted:
	default:
		badRequest(c, "Invalid status: "+string(status))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bucket := c.Param("bucket")
	records, err := h.objectService.ListObjects(c.Request.Context(), bucket, status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	total, err := h.objectService.CountObjects(c.Request.Context(), bucket, status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bucket":  bucket,
		"objects": records,
		"count":   len(records),
		"total":   total,
	})
}
