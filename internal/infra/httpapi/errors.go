package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"go.uber.org/zap"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindDecode, apperr.KindEmptyResult:
		return http.StatusUnprocessableEntity
	case apperr.KindExternalModel:
		return http.StatusBadGateway
	case apperr.KindDependency:
		return http.StatusServiceUnavailable
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the full cause and writes {"error", "kind"}.
func (h *Handler) respondError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "upload exceeds the size limit",
			"kind":  string(apperr.KindValidation),
		})
		return
	}

	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	log := h.logger.With(
		zap.String("route", c.FullPath()),
		zap.String("kind", string(kind)),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Info("request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": apperr.Message(err),
		"kind":  string(kind),
	})
}

func badRequest(op, msg string) error {
	return apperr.Validation(op, msg)
}
