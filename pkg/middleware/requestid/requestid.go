package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

const (
	ginKey   = "request_id"
	maxIDLen = 64
)

type ctxKey struct{}

// Middleware reuses a well-formed inbound X-Request-ID or mints a UUID, then
// exposes it on the response, the gin context and the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if !acceptable(id) {
			id = uuid.NewString()
		}

		c.Set(ginKey, id)
		c.Writer.Header().Set(Header, id)
		c.Request = c.Request.WithContext(WithValue(c.Request.Context(), id))

		c.Next()
	}
}

// Value returns the id stored on the gin context.
func Value(c *gin.Context) string {
	return c.GetString(ginKey)
}

// WithValue stores a request id on ctx.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id carried by ctx, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// acceptable limits client ids to short tokens so they are safe to log and forward.
func acceptable(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
