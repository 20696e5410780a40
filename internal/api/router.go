package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/bucketgate/internal/api/handler"
	"github.com/timmy/bucketgate/internal/api/middleware"
	"github.com/timmy/bucketgate/internal/config"
	"github.com/timmy/bucketgate/internal/logger"
	"github.com/timmy/bucketgate/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	objectService *service.ObjectService,
	buckets handler.BucketLister,
	cfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(buckets)
	bucketHandler := handler.NewBucketHandler(objectService)
	objectHandler := handler.NewObjectHandler(objectService)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Buckets
		v1.GET("/buckets", bucketHandler.List)
		v1.POST("/buckets", bucketHandler.Register)
		v1.PUT("/buckets/:bucket", bucketHandler.Reconfigure)

		// Objects
		v1.GET("/buckets/:bucket/objects", objectHandler.List)
		v1.PUT("/buckets/:bucket/objects/*key", objectHandler.Upload)
		v1.DELETE("/buckets/:bucket/objects", objectHandler.Delete)
		v1.GET("/buckets/:bucket/presign/*key", objectHandler.Presign)
	}

	return r
}
