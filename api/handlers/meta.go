package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parsekit/parsekit-converter/internal/converter"
	"github.com/parsekit/parsekit-converter/internal/models"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

// Health is the liveness probe.
func (h *MetaHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SupportedFormats lists the extensions the service converts and the ones it
// passes through unchanged.
func (h *MetaHandler) SupportedFormats(c *gin.Context) {
	c.JSON(http.StatusOK, models.FormatList{
		Convertible: converter.ConvertibleExtensions(),
		Passthrough: converter.PassthroughExtensions(),
	})
}
