package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/imobi360/internal/actionfield"
	"github.com/smallbiznis/imobi360/internal/audit"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/authorization"
	"github.com/smallbiznis/imobi360/internal/automation"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/customfield"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/deal"
	dealdomain "github.com/smallbiznis/imobi360/internal/deal/domain"
	"github.com/smallbiznis/imobi360/internal/event"
	"github.com/smallbiznis/imobi360/internal/formula"
	"github.com/smallbiznis/imobi360/internal/lead"
	leaddomain "github.com/smallbiznis/imobi360/internal/lead/domain"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/observability"
	obslogger "github.com/smallbiznis/imobi360/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/imobi360/internal/observability/metrics"
	obstracing "github.com/smallbiznis/imobi360/internal/observability/tracing"
	"github.com/smallbiznis/imobi360/internal/pipeline"
	"github.com/smallbiznis/imobi360/internal/relation"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantconfig"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides every service the HTTP API depends on. Entrypoints add
// NewEngine, NewServer, a route registration invoke and RunHTTP.
var Module = fx.Module("http.server",
	template.Module,
	audit.Module,
	authorization.Module,
	event.Module,
	pipeline.Module,
	customfield.Module,
	formula.Module,
	relation.Module,
	mutationguard.Module,
	tenantconfig.Module,
	deal.Module,
	lead.Module,
	automation.Module,
	actionfield.Module,
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	dealSvc        dealdomain.Service
	leadSvc        leaddomain.Service
	tenantSvc      tenantdomain.Service
	customFieldSvc cfdomain.Service
	templates      *template.Registry
	actions        *actionfield.Executor
	automation     *automation.Client
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	DealSvc        dealdomain.Service
	LeadSvc        leaddomain.Service
	TenantSvc      tenantdomain.Service
	CustomFieldSvc cfdomain.Service
	Templates      *template.Registry
	Actions        *actionfield.Executor
	Automation     *automation.Client
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		dealSvc:        p.DealSvc,
		leadSvc:        p.LeadSvc,
		tenantSvc:      p.TenantSvc,
		customFieldSvc: p.CustomFieldSvc,
		templates:      p.Templates,
		actions:        p.Actions,
		automation:     p.Automation,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(TenantContext())

	// -------- Deals --------
	api.GET("/deals", s.ListDeals)
	api.POST("/deals", s.CreateDeal)
	api.POST("/deals/bulk-delete", s.authorizeTenantAction(authorization.ObjectDeal, authorization.ActionDealBulk), s.BulkDeleteDeals)
	api.GET("/deals/:id", s.GetDeal)
	api.PATCH("/deals/:id", s.UpdateDeal)
	api.DELETE("/deals/:id", s.DeleteDeal)
	api.POST("/deals/:id/stage", s.MoveDealStage)
	api.POST("/deals/:id/actions/:field", s.ExecuteDealAction)
	api.GET("/kanban", s.GetKanban)

	// -------- Leads --------
	api.GET("/leads", s.ListLeads)
	api.POST("/leads", s.CreateLead)
	api.GET("/leads/:id", s.GetLead)
	api.PATCH("/leads/:id", s.UpdateLead)
	api.DELETE("/leads/:id", s.DeleteLead)
	api.POST("/leads/:id/actions/:field", s.ExecuteLeadAction)

	// -------- Tenant configuration --------
	api.GET("/templates", s.ListTemplates)
	api.GET("/tenant/config", s.GetTenantConfig)
	api.GET("/tenant/settings", s.GetTenantSettings)
	api.PUT("/tenant/template", s.authorizeTenantAction(authorization.ObjectTenantConfig, authorization.ActionTenantConfigManage), s.SetTenantTemplate)
	api.DELETE("/tenant/template", s.authorizeTenantAction(authorization.ObjectTenantConfig, authorization.ActionTenantConfigManage), s.ClearTenantTemplate)
	api.PATCH("/tenant/overrides", s.authorizeTenantAction(authorization.ObjectTenantConfig, authorization.ActionTenantConfigManage), s.UpdateTenantOverrides)
	api.GET("/navigation", s.GetNavigation)
	api.GET("/modules/:id/access", s.GetModuleAccess)

	// -------- Custom fields --------
	api.GET("/custom-fields", s.ListCustomFields)
	api.POST("/custom-fields", s.authorizeTenantAction(authorization.ObjectCustomField, authorization.ActionCustomFieldManage), s.CreateCustomField)
	api.DELETE("/custom-fields/:id", s.authorizeTenantAction(authorization.ObjectCustomField, authorization.ActionCustomFieldManage), s.DeleteCustomField)

	// -------- History --------
	api.GET("/audit-logs", s.authorizeTenantAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	api.GET("/timeline/:entity_type/:id", s.GetTimeline)
}

// RegisterWebhookRoutes mounts inbound callbacks. They authenticate by
// signature, not by tenant headers.
func (s *Server) RegisterWebhookRoutes() {
	hooks := s.engine.Group("/api/webhooks")
	hooks.POST("/automation/callback", s.AutomationCallback)
}

func (s *Server) RegisterFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
