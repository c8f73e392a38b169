package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/swapgate/core"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindConflict:
		return http.StatusConflict
	case core.KindUnauthenticated:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Authentication failures share one
// message so callers learn nothing about which check failed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	log := requestLog(c)

	var msg string
	switch status {
	case http.StatusUnauthorized:
		log.Info("authentication failed", zap.Error(err))
		msg = "Unauthorized"
	case http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
		msg = "Internal error"
	default:
		msg = err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
