package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/bucketgate/internal/service"
	"github.com/timmy/bucketgate/internal/storage"
)

// RegisterBucketRequest is the body of POST /api/v1/buckets and PUT /api/v1/buckets/:bucket.
type RegisterBucketRequest struct {
	Bucket    string `json:"bucket"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	KMSKeyID  string `json:"kms_key_id"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

func (r RegisterBucketRequest) clientConfig() storage.ClientConfig {
	return storage.ClientConfig{
		Bucket:          r.Bucket,
		Endpoint:        r.Endpoint,
		AccessKey:       r.AccessKey,
		SecretKey:       r.SecretKey,
		EncryptionKeyID: r.KMSKeyID,
		Region:          r.Region,
		UseSSL:          r.UseSSL,
	}
}

// BucketHandler handles bucket registration endpoints.
type BucketHandler struct {
	objectService *service.ObjectService
}

// NewBucketHandler creates a new bucket handler.
// Parameters:
//   - objectService: object service instance.
//
// Returns:
//   - *BucketHandler: initialized handler.
func NewBucketHandler(objectService *service.ObjectService) *BucketHandler {
	return &BucketHandler{
		objectService: objectService,
	}
}

// Register handles POST /api/v1/buckets.
// A bucket that is already registered keeps its original settings.
func (h *BucketHandler) Register(c *gin.Context) {
	var req RegisterBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	info, err := h.objectService.Register(c.Request.Context(), req.clientConfig())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// Reconfigure handles PUT /api/v1/buckets/:bucket.
func (h *BucketHandler) Reconfigure(c *gin.Context) {
	var req RegisterBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	req.Bucket = c.Param("bucket")

	info, err := h.objectService.Reconfigure(c.Request.Context(), req.clientConfig())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// List handles GET /api/v1/buckets.
func (h *BucketHandler) List(c *gin.Context) {
	buckets := h.objectService.Buckets()
	c.JSON(http.StatusOK, gin.H{
		"buckets": buckets,
		"count":   len(buckets),
	})
}
