package httpapi

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qrbadge/api/internal/service"
)

const msgInvalidBody = "Corps de requête invalide"

// bindJSON decodes the request body into v. An empty body leaves v zeroed so
// field validation reports the precise problem.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return false
	}
	return true
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindInvalidInput, service.KindConflict:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes exactly one error response for err. Unclassified errors are
// logged and only described to the client in development.
func (s *Server) fail(c *gin.Context, err error) {
	if e, ok := service.AsError(err); ok {
		c.AbortWithStatusJSON(statusFor(e.Kind), gin.H{"error": e.Message})
		return
	}

	s.log.Error("request failed", append(logAttrs(c), "err", err)...)
	msg := "An unexpected error occurred"
	if s.cfg.IsDevelopment() {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error", "message": msg})
}

// clientIP prefers the raw X-Forwarded-For header, as set by the reverse
// proxy in front of the API, and falls back to the peer address.
func clientIP(c *gin.Context) string {
	if fwd := strings.TrimSpace(c.GetHeader("X-Forwarded-For")); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
