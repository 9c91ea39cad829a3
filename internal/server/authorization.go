package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
)

func (s *Server) authorizeTenantAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		ctx := c.Request.Context()
		if err := s.authzSvc.Authorize(ctx, tenantcontext.RoleOrViewer(ctx), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
