package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/imobi360/internal/access"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
)

func (s *Server) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.templates.List()})
}

func (s *Server) loadTenantConfig(c *gin.Context) (*tenantdomain.TenantConfig, bool) {
	ctx := c.Request.Context()
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		AbortWithError(c, ErrMissingTenant)
		return nil, false
	}
	cfg, err := s.tenantSvc.Load(ctx, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return cfg, true
}

func (s *Server) GetTenantConfig(c *gin.Context) {
	cfg, ok := s.loadTenantConfig(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

func (s *Server) GetTenantSettings(c *gin.Context) {
	resp, err := s.tenantSvc.Settings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetTenantTemplate(c *gin.Context) {
	var req tenantdomain.SetTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TemplateID = strings.TrimSpace(req.TemplateID)

	resp, err := s.tenantSvc.SetTemplate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClearTenantTemplate(c *gin.Context) {
	resp, err := s.tenantSvc.ClearTemplate(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTenantOverrides(c *gin.Context) {
	var patch tenantdomain.Overrides
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.UpdateOverrides(c.Request.Context(), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetNavigation returns the sidebar visible to the caller's role. Items
// pointing at missing or disabled modules are dropped.
func (s *Server) GetNavigation(c *gin.Context) {
	cfg, ok := s.loadTenantConfig(c)
	if !ok {
		return
	}
	role := tenantcontext.RoleOrViewer(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"sidebar_items":     access.FilterNavigation(cfg.Navigation.SidebarItems, cfg.Modules, role),
		"show_icons":        cfg.Navigation.ShowIcons,
		"position":          cfg.Navigation.Position,
		"user_customizable": cfg.Navigation.UserCustomizable,
	}})
}

// GetModuleAccess fails with the access code when the module page may not be
// opened by the caller.
func (s *Server) GetModuleAccess(c *gin.Context) {
	cfg, ok := s.loadTenantConfig(c)
	if !ok {
		return
	}
	role := tenantcontext.RoleOrViewer(c.Request.Context())

	module, err := access.CheckModuleAccess(strings.TrimSpace(c.Param("id")), cfg, role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entityType, _ := cfg.EntityType(derefString(module.EntityTypeID))

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"module":      module,
		"entity_type": entityType,
	}})
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
