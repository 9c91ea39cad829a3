package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
)

// Headers set by the upstream auth proxy. They are trusted as is.
const (
	HeaderTenant = "X-Tenant-ID"
	HeaderRole   = "X-User-Role"
	HeaderUser   = "X-User-ID"
)

// TenantContext moves the caller identity headers into the request context.
// A missing or malformed tenant id is rejected; a missing or unknown role
// falls back to viewer.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			AbortWithError(c, ErrMissingTenant)
			return
		}
		tenantID, err := snowflake.ParseString(raw)
		if err != nil || tenantID == 0 {
			AbortWithError(c, ErrMissingTenant)
			return
		}

		role, ok := permission.ParseRole(c.GetHeader(HeaderRole))
		if !ok {
			role = permission.RoleViewer
		}

		ctx := tenantcontext.WithTenantID(c.Request.Context(), tenantID)
		ctx = tenantcontext.WithRole(ctx, role)
		if userID := strings.TrimSpace(c.GetHeader(HeaderUser)); userID != "" {
			ctx = tenantcontext.WithUserID(ctx, userID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
