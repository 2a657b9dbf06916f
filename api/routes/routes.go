package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/parsekit/parsekit-converter/api/handlers"
	"github.com/parsekit/parsekit-converter/api/middleware"
)

// SetupRoutes wires all routes onto the engine.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(h.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())

	r.GET("/health", h.Meta.Health)
	r.GET("/supported-formats", h.Meta.SupportedFormats)

	convert := r.Group("/convert")
	{
		convert.POST("", h.Convert.Document)
		convert.POST("/raw", h.Convert.Raw)
		convert.POST("/images", h.Convert.Images)
		convert.POST("/images/stream", h.Convert.ImagesStream)
	}
}
