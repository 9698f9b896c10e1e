// Package middleware holds the gin middleware chain.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentpay/payguard/pkg/apperror"
	"github.com/agentpay/payguard/pkg/response"
)

const (
	// HeaderAccountID is the opaque caller identity header. Authentication
	// itself happens upstream; this service trusts the header value.
	HeaderAccountID = "X-Account-ID"

	// CtxAccountID is the gin context key holding the parsed account id.
	CtxAccountID = "account_id"
)

// AccountID parses and requires the caller identity header on every request
// in the group.
func AccountID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderAccountID)
		if raw == "" {
			response.Error(c, apperror.Validation("missing X-Account-ID header"))
			c.Abort()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("X-Account-ID must be a UUID"))
			c.Abort()
			return
		}
		c.Set(CtxAccountID, id)
		c.Next()
	}
}

// RequestLogger logs every HTTP request with status-scaled severity.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery converts panics into 500 responses.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "INF_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects request bodies larger than limit bytes.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
