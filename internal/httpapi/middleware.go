package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"qrbadge/api/internal/auth"
)

const requestIDHeader = "X-Request-Id"

const (
	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
)

const (
	msgAuthRequired = "Authentification requise"
	msgTokenExpired = "Token expiré"
	msgTokenInvalid = "Token invalide"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			var b [12]byte
			_, _ = rand.Read(b[:])
			id = hex.EncodeToString(b[:])
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"request_id", c.GetString(ctxRequestID),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic", "recovered", rec, "path", c.Request.URL.Path, "request_id", c.GetString(ctxRequestID))
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"error":   "Server error",
						"message": "An unexpected error occurred",
					})
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// requireAuth admits requests bearing a valid token. allowQuery also accepts
// ?token= for clients such as EventSource that cannot set headers.
func (s *Server) requireAuth(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && allowQuery {
			token = strings.TrimSpace(c.Query("token"))
			ok = token != ""
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgAuthRequired})
			return
		}

		id, err := s.tokens.Verify(token)
		if err != nil {
			msg := msgTokenInvalid
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = msgTokenExpired
			}
			s.log.Debug("token rejected", "err", err, "request_id", c.GetString(ctxRequestID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ctxIdentity, id)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func identityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func logAttrs(c *gin.Context) []any {
	attrs := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(ctxRequestID),
	}
	if id, ok := identityFrom(c); ok {
		attrs = append(attrs, "user_id", id.SubjectID)
	}
	return attrs
}
