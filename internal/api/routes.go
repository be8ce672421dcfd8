package api

import (
	"github.com/gin-gonic/gin"

	"pricewatch/internal/config"
	"pricewatch/internal/types"
)

// SetupRouter creates and configures the gin router
func SetupRouter(cfg config.ServerConfig, handler *Handler, logger types.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/extract", handler.Extract)
		v1.POST("/identity", handler.Identity)
		v1.POST("/alternatives", handler.Alternatives)
		v1.POST("/compare", handler.Compare)
		v1.POST("/barcode", handler.Barcode)
		v1.POST("/batch", handler.Batch)
	}

	return router
}
