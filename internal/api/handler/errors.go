package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/bucketgate/internal/api/middleware"
	"github.com/timmy/bucketgate/internal/service"
	"github.com/timmy/bucketgate/internal/storage"
)

// statusFor maps service and storage errors to HTTP status codes.
func statusFor(err error) int {
	var opErr *storage.OperationError
	switch {
	case errors.Is(err, service.ErrBucketNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrEncoding),
		errors.Is(err, storage.ErrNoKeys),
		errors.Is(err, storage.ErrConfiguration):
		return http.StatusBadRequest
	case errors.As(err, &opErr), errors.Is(err, service.ErrNotStored):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		middleware.GetLogger(c).WithError(err).Error("Request failed")
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": msg,
	})
}
