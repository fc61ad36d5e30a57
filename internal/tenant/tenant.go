// Package tenant carries the caller's tenant identifier through a request.
// The gateway treats the identifier as opaque and never resolves it.
package tenant

import (
	"context"

	"github.com/gin-gonic/gin"

	"conduit/pkg/logging"
)

type Provider interface {
	TenantID(ctx context.Context) string
}

// WithTenant stores id in ctx. It shares the logging key so every
// context-aware log line carries the tenant.
func WithTenant(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return logging.WithTenantID(ctx, id)
}

// ContextProvider reads the id set by WithTenant, falling back to Default.
type ContextProvider struct {
	Default string
}

func (p ContextProvider) TenantID(ctx context.Context) string {
	if id := logging.GetTenantID(ctx); id != "" {
		return id
	}
	return p.Default
}

type StaticProvider string

func (p StaticProvider) TenantID(context.Context) string { return string(p) }

// Middleware copies the tenant header into the request context.
func Middleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(header); id != "" {
			c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), id))
		}
		c.Next()
	}
}

// Resolve returns current when set, otherwise asks p. A nil provider yields
// current unchanged.
func Resolve(ctx context.Context, p Provider, current string) string {
	if current != "" || p == nil {
		return current
	}
	return p.TenantID(ctx)
}
