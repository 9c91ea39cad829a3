package tenantcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/permission"
)

type tenantKey struct{}
type roleKey struct{}
type userKey struct{}

// WithTenantID stores the tenant ID in the context.
func WithTenantID(ctx context.Context, tenantID snowflake.ID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantIDFromContext returns the tenant ID from context, if set.
func TenantIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	switch typed := ctx.Value(tenantKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}

func WithRole(ctx context.Context, role permission.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns the caller role. Missing or unknown roles report false.
func RoleFromContext(ctx context.Context) (permission.Role, bool) {
	if ctx == nil {
		return "", false
	}
	role, ok := ctx.Value(roleKey{}).(permission.Role)
	if !ok || !role.Valid() {
		return "", false
	}
	return role, true
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, strings.TrimSpace(userID))
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// UserIDPtr returns the caller user ID, or nil for anonymous callers.
func UserIDPtr(ctx context.Context) *string {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}

// RoleOrViewer returns the caller role, falling back to viewer.
func RoleOrViewer(ctx context.Context) permission.Role {
	if role, ok := RoleFromContext(ctx); ok {
		return role
	}
	return permission.RoleViewer
}
