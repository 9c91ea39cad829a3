package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/imobi360/internal/tenantcontext"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// TenantIDFromContext returns the tenant ID as a string, empty when unset.
func TenantIDFromContext(ctx context.Context) string {
	id, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}

// ActorFromContext returns the caller role and user id.
func ActorFromContext(ctx context.Context) (string, string) {
	role, _ := tenantcontext.RoleFromContext(ctx)
	userID, _ := tenantcontext.UserIDFromContext(ctx)
	return role.String(), userID
}
