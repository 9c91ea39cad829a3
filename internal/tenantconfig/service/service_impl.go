package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/observability/logger"
	pipelinedomain "github.com/smallbiznis/imobi360/internal/pipeline/domain"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/merge"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Repo      domain.Repository
	Cache     domain.Cache
	Registry  *template.Registry
	Pipelines pipelinedomain.Service
	Fields    cfdomain.Service
	Audit     auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.Config
	repo      domain.Repository
	cache     domain.Cache
	registry  *template.Registry
	pipelines pipelinedomain.Service
	fields    cfdomain.Service
	audit     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("tenantconfig.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Config,
		repo:      p.Repo,
		cache:     p.Cache,
		registry:  p.Registry,
		pipelines: p.Pipelines,
		fields:    p.Fields,
		audit:     p.Audit,
	}
}

// Load builds the runtime configuration of a tenant. Any failure to produce a
// complete, valid configuration is a *domain.ConfigurationError.
func (s *Service) Load(ctx context.Context, tenantID snowflake.ID) (*domain.TenantConfig, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if cached, ok := s.cache.Get(ctx, tenantID); ok {
		return cached, nil
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("tenant_id", tenantID.String()))
	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, &domain.ConfigurationError{TenantID: tenantID.String(), Cause: domain.ErrTenantNotFound}
	}

	settings, err := tenant.ParseSettings()
	if err != nil {
		return nil, &domain.ConfigurationError{TenantID: tenantID.String(), Cause: fmt.Errorf("parse settings: %w", err)}
	}

	var tpl *template.Manifest
	if id := strings.TrimSpace(settings.TemplateID); id != "" {
		tpl, err = s.registry.Get(id)
		if err != nil {
			log.Warn("tenant template not found, using core defaults", zap.String("template_id", id))
			tpl = nil
		}
	}

	cfg, err := merge.BuildTenantConfig(tenantID.String(), tpl, &settings)
	if err != nil {
		return nil, &domain.ConfigurationError{TenantID: tenantID.String(), Cause: err}
	}
	if problems := merge.ValidateTenantConfig(cfg); len(problems) > 0 {
		log.Error("tenant configuration invalid", zap.Strings("problems", problems))
		return nil, &domain.ConfigurationError{TenantID: tenantID.String(), Problems: problems}
	}

	s.cache.Set(ctx, tenantID, cfg)
	return cfg, nil
}

func (s *Service) Settings(ctx context.Context) (domain.TenantSettings, error) {
	tenant, err := s.currentTenant(ctx)
	if err != nil {
		return domain.TenantSettings{}, err
	}
	return tenant.ParseSettings()
}

func (s *Service) SetTemplate(ctx context.Context, req domain.SetTemplateRequest) (domain.TenantSettings, error) {
	templateID := strings.TrimSpace(req.TemplateID)
	if templateID == "" {
		return domain.TenantSettings{}, domain.ErrInvalidTemplate
	}
	tpl, err := s.registry.Get(templateID)
	if err != nil {
		return domain.TenantSettings{}, domain.ErrTemplateNotFound
	}

	return s.mutate(ctx, auditdomain.ActionTemplateApplied, func(settings *domain.TenantSettings) error {
		now := s.clock.Now()
		settings.TemplateID = tpl.ID
		settings.TemplateVersion = tpl.Version
		settings.TemplateAppliedAt = &now
		return nil
	}, map[string]any{"template_id": tpl.ID, "template_version": tpl.Version})
}

// UpdateOverrides patches the stored overrides key by key. Sections absent
// from patch keep their current value.
func (s *Service) UpdateOverrides(ctx context.Context, patch domain.Overrides) (domain.TenantSettings, error) {
	return s.mutate(ctx, auditdomain.ActionOverridesUpdated, func(settings *domain.TenantSettings) error {
		current := domain.Overrides{}
		if settings.Overrides != nil {
			current = *settings.Overrides
		}
		next := current.Apply(patch)
		candidate := *settings
		candidate.Overrides = &next

		var tpl *template.Manifest
		if settings.TemplateID != "" {
			tpl, _ = s.registry.Get(settings.TemplateID)
		}
		if _, err := merge.BuildTenantConfig("validate", tpl, &candidate); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidOverrides, err)
		}
		settings.Overrides = &next
		return nil
	}, map[string]any{"sections": overrideSections(patch)})
}

func (s *Service) ClearTemplate(ctx context.Context) (domain.TenantSettings, error) {
	return s.mutate(ctx, auditdomain.ActionTemplateCleared, func(settings *domain.TenantSettings) error {
		settings.TemplateID = ""
		settings.TemplateVersion = ""
		settings.TemplateAppliedAt = nil
		return nil
	}, nil)
}

// Provision creates a tenant from a template and seeds its pipelines and
// custom field presets in one transaction.
func (s *Service) Provision(ctx context.Context, req domain.ProvisionRequest) (domain.ProvisionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ProvisionResponse{}, domain.ErrInvalidName
	}
	tenantSlug := slug.Make(strings.TrimSpace(req.Slug))
	if tenantSlug == "" {
		tenantSlug = slug.Make(name)
	}
	if tenantSlug == "" {
		return domain.ProvisionResponse{}, domain.ErrInvalidName
	}

	templateID := strings.TrimSpace(req.TemplateID)
	if templateID == "" {
		templateID = s.cfg.DefaultTemplateID
	}
	tpl, err := s.registry.Get(templateID)
	if err != nil {
		return domain.ProvisionResponse{}, domain.ErrTemplateNotFound
	}

	existing, err := s.repo.FindBySlug(ctx, s.db, tenantSlug)
	if err != nil {
		return domain.ProvisionResponse{}, err
	}
	if existing != nil {
		return domain.ProvisionResponse{}, domain.ErrSlugTaken
	}

	now := s.clock.Now()
	settings := domain.TenantSettings{
		TemplateID:        tpl.ID,
		TemplateVersion:   tpl.Version,
		TemplateAppliedAt: &now,
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return domain.ProvisionResponse{}, err
	}
	tenant := domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      tenantSlug,
		Settings:  datatypes.JSON(raw),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var resp domain.ProvisionResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &tenant); err != nil {
			return err
		}
		pipelines, err := s.pipelines.Seed(ctx, tx, tenant.ID, tpl.Pipelines)
		if err != nil {
			return err
		}
		fields, err := s.fields.Seed(ctx, tx, tenant.ID, tpl.FieldPresets)
		if err != nil {
			return err
		}
		resp = domain.ProvisionResponse{Tenant: tenant, Pipelines: pipelines, CustomFields: fields}
		return nil
	})
	if err != nil {
		return domain.ProvisionResponse{}, err
	}

	s.writeAudit(ctx, tenant.ID, auditdomain.ActionTenantProvisioned, map[string]any{
		"template_id":   tpl.ID,
		"slug":          tenantSlug,
		"pipelines":     resp.Pipelines,
		"custom_fields": resp.CustomFields,
	})
	s.log.Info("tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("template_id", tpl.ID),
	)
	return resp, nil
}

func (s *Service) mutate(ctx context.Context, action string, apply func(*domain.TenantSettings) error, metadata map[string]any) (domain.TenantSettings, error) {
	tenant, err := s.currentTenant(ctx)
	if err != nil {
		return domain.TenantSettings{}, err
	}
	settings, err := tenant.ParseSettings()
	if err != nil {
		return domain.TenantSettings{}, &domain.ConfigurationError{TenantID: tenant.ID.String(), Cause: err}
	}
	if err := apply(&settings); err != nil {
		return domain.TenantSettings{}, err
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return domain.TenantSettings{}, err
	}
	if err := s.repo.UpdateSettings(ctx, s.db, tenant.ID, datatypes.JSON(raw), s.clock.Now()); err != nil {
		return domain.TenantSettings{}, err
	}
	s.cache.Invalidate(ctx, tenant.ID)
	s.writeAudit(ctx, tenant.ID, action, metadata)
	return settings, nil
}

func (s *Service) currentTenant(ctx context.Context) (*domain.Tenant, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}
	return tenant, nil
}

func (s *Service) writeAudit(ctx context.Context, tenantID snowflake.ID, action string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	target := tenantID.String()
	if err := s.audit.AuditLog(ctx, &tenantID, action, "tenant", &target, metadata); err != nil {
		logger.WithContext(ctx, s.log).Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func overrideSections(patch domain.Overrides) []string {
	var out []string
	if patch.Modules != nil {
		out = append(out, "modules")
	}
	if patch.Navigation != nil {
		out = append(out, "navigation")
	}
	if patch.EntityTypes != nil {
		out = append(out, "entity_types")
	}
	if patch.Views != nil {
		out = append(out, "views")
	}
	if patch.Pipelines != nil {
		out = append(out, "pipelines")
	}
	if patch.Settings != nil {
		out = append(out, "settings")
	}
	return out
}
