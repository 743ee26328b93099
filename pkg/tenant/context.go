package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithTenant adds a tenant to the context.
func WithTenant(ctx context.Context, tenant *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, tenant)
}

// FromContext retrieves the tenant from the context.
func FromContext(ctx context.Context) (*Tenant, bool) {
	tenant, ok := ctx.Value(contextKey{}).(*Tenant)
	return tenant, ok && tenant != nil
}

// IDFromContext retrieves just the tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenant, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return tenant.ID, true
}

// MustFromContext retrieves the tenant from the context and panics if
// absent. Use only in handlers behind the auth middleware.
func MustFromContext(ctx context.Context) *Tenant {
	tenant, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return tenant
}

// LogAttr returns the tenant ID as a log attribute if present in context.
func LogAttr(ctx context.Context) (slog.Attr, bool) {
	if id, ok := IDFromContext(ctx); ok {
		return slog.String("tenant_id", id.String()), true
	}
	return slog.Attr{}, false
}
