package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parsekit/parsekit-converter/internal/apperr"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

// APIResponse is the uniform envelope for every structured route. Code 0
// means success; application failures keep HTTP 200 and report their code
// here, so clients inspect the envelope rather than the transport status.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Code: 0, Data: data})
}

// respondError translates any error into the envelope. Typed application
// errors keep their code and safe message; everything else is normalized to
// an internal error with full detail logged server-side only.
func respondError(c *gin.Context, log logger.Logger, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		log.Error("request failed",
			logger.String("path", c.Request.URL.Path),
			logger.Int("code", ae.Code),
			logger.Error(err),
		)
		c.JSON(http.StatusOK, APIResponse{Code: ae.Code, Message: ae.Message})
		return
	}

	log.Error("unexpected error",
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	c.JSON(http.StatusOK, APIResponse{Code: apperr.CodeInternal, Message: "Internal server error"})
}

// respondBadRequest handles malformed requests that never reach the core
// (missing upload field, unparsable query parameter).
func respondBadRequest(c *gin.Context, log logger.Logger, message string, err error) {
	log.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	c.JSON(http.StatusBadRequest, APIResponse{Code: apperr.CodeInvalidRequest, Message: message})
}

// Recovery turns panics into the internal-error envelope so even a crashed
// request keeps the uniform response body.
func (h *Handlers) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.logger.Error("panic recovered",
			logger.String("path", c.Request.URL.Path),
			logger.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusOK, APIResponse{
			Code:    apperr.CodeInternal,
			Message: "Internal server error",
		})
	})
}
