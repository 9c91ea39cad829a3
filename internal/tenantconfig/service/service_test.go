package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	auditrepo "github.com/smallbiznis/imobi360/internal/audit/repository"
	auditservice "github.com/smallbiznis/imobi360/internal/audit/service"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	cfrepo "github.com/smallbiznis/imobi360/internal/customfield/repository"
	cfservice "github.com/smallbiznis/imobi360/internal/customfield/service"
	pipelinedomain "github.com/smallbiznis/imobi360/internal/pipeline/domain"
	pipelinerepo "github.com/smallbiznis/imobi360/internal/pipeline/repository"
	pipelineservice "github.com/smallbiznis/imobi360/internal/pipeline/service"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/cache"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/repository"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"github.com/smallbiznis/imobi360/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	pipelines pipelinedomain.Service
	fields    cfdomain.Service
	audit     auditdomain.Service
	clock     *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	db := dbtest.New(t,
		&domain.Tenant{},
		&pipelinedomain.Pipeline{},
		&pipelinedomain.Stage{},
		&cfdomain.CustomField{},
		&auditdomain.AuditLog{},
	)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	cfg := config.Config{
		DefaultTemplateID:    "imobi360",
		CustomFieldCacheSize: 16,
		CustomFieldCacheTTL:  time.Minute,
	}
	registry, err := template.NewRegistry()
	require.NoError(t, err)

	audit := auditservice.NewService(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepo.Provide()})
	pipelines := pipelineservice.New(pipelineservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: pipelinerepo.Provide()})
	fields := cfservice.New(cfservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Config: cfg, Repo: cfrepo.Provide()})

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Config:    cfg,
		Repo:      repository.Provide(),
		Cache:     cache.NewMemory(8, time.Minute, nil),
		Registry:  registry,
		Pipelines: pipelines,
		Fields:    fields,
		Audit:     audit,
	})
	return fixture{db: db, svc: svc, pipelines: pipelines, fields: fields, audit: audit, clock: clk}
}

func (f fixture) insertTenant(t *testing.T, id snowflake.ID, settings domain.TenantSettings) {
	t.Helper()
	raw, err := json.Marshal(settings)
	require.NoError(t, err)
	now := f.clock.Now()
	require.NoError(t, repository.Provide().Insert(context.Background(), f.db, &domain.Tenant{
		ID: id, Name: "Tenant", Slug: "tenant-" + id.String(), Settings: datatypes.JSON(raw), CreatedAt: now, UpdatedAt: now,
	}))
}

func tenantCtx(id snowflake.ID) context.Context {
	return tenantcontext.WithTenantID(context.Background(), id)
}

func TestLoadMergesTemplate(t *testing.T) {
	f := newFixture(t)
	f.insertTenant(t, 1, domain.TenantSettings{TemplateID: "imobi360"})

	cfg, err := f.svc.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.TenantID)
	require.NotNil(t, cfg.TemplateID)
	assert.Equal(t, "imobi360", *cfg.TemplateID)
	assert.True(t, cfg.ModuleEnabled("deals"))
	assert.NotEmpty(t, cfg.Navigation.SidebarItems)
}

func TestLoadFailsLoudly(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Load(context.Background(), 404)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	// an unknown template degrades to core defaults, which are not a usable config
	f.insertTenant(t, 2, domain.TenantSettings{TemplateID: "retired"})
	_, err = f.svc.Load(context.Background(), 2)
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Problems, "No modules configured")

	_, err = f.svc.Load(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestOverridesInvalidateCache(t *testing.T) {
	f := newFixture(t)
	f.insertTenant(t, 3, domain.TenantSettings{TemplateID: "blank"})
	ctx := tenantCtx(3)

	cfg, err := f.svc.Load(ctx, 3)
	require.NoError(t, err)
	require.True(t, cfg.ModuleEnabled("activities"))

	_, err = f.svc.UpdateOverrides(ctx, domain.Overrides{
		Modules: []domain.Patch{{"id": "activities", "enabled": false}},
	})
	require.NoError(t, err)

	cfg, err = f.svc.Load(ctx, 3)
	require.NoError(t, err)
	assert.False(t, cfg.ModuleEnabled("activities"))

	// a later patch of another section keeps the module override
	settings, err := f.svc.UpdateOverrides(ctx, domain.Overrides{Settings: domain.Patch{"currency": "USD"}})
	require.NoError(t, err)
	require.NotNil(t, settings.Overrides)
	assert.Len(t, settings.Overrides.Modules, 1)
	assert.Equal(t, "USD", settings.Overrides.Settings["currency"])
}

func TestUpdateOverridesRejectsBadPatch(t *testing.T) {
	f := newFixture(t)
	f.insertTenant(t, 4, domain.TenantSettings{TemplateID: "blank"})

	_, err := f.svc.UpdateOverrides(tenantCtx(4), domain.Overrides{
		Modules: []domain.Patch{{"id": "deals", "enabled": "yes"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOverrides)

	settings, err := f.svc.Settings(tenantCtx(4))
	require.NoError(t, err)
	assert.Nil(t, settings.Overrides)
}

func TestSetAndClearTemplateKeepOverrides(t *testing.T) {
	f := newFixture(t)
	f.insertTenant(t, 5, domain.TenantSettings{
		TemplateID: "blank",
		Overrides:  &domain.Overrides{Settings: domain.Patch{"currency": "BRL"}},
	})
	ctx := tenantCtx(5)

	settings, err := f.svc.SetTemplate(ctx, domain.SetTemplateRequest{TemplateID: "imobi360"})
	require.NoError(t, err)
	assert.Equal(t, "imobi360", settings.TemplateID)
	assert.NotEmpty(t, settings.TemplateVersion)
	require.NotNil(t, settings.TemplateAppliedAt)
	assert.True(t, settings.TemplateAppliedAt.Equal(f.clock.Now()))
	require.NotNil(t, settings.Overrides)
	assert.Equal(t, "BRL", settings.Overrides.Settings["currency"])

	_, err = f.svc.SetTemplate(ctx, domain.SetTemplateRequest{TemplateID: "nope"})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	settings, err = f.svc.ClearTemplate(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings.TemplateID)
	assert.Nil(t, settings.TemplateAppliedAt)
	require.NotNil(t, settings.Overrides)

	logs, err := f.audit.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, logs.AuditLogs, 2)
	assert.Equal(t, auditdomain.ActionTemplateCleared, logs.AuditLogs[0].Action)
}

func TestProvisionSeedsTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Provision(ctx, domain.ProvisionRequest{Name: "Imobiliária Central"})
	require.NoError(t, err)
	assert.Equal(t, "imobiliaria-central", resp.Tenant.Slug)
	assert.Positive(t, resp.Pipelines)
	assert.Positive(t, resp.CustomFields)

	cfg, err := f.svc.Load(ctx, resp.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "imobi360", *cfg.TemplateID)

	pipeline, err := f.pipelines.Default(ctx, resp.Tenant.ID, "deal")
	require.NoError(t, err)
	assert.Equal(t, resp.Tenant.ID, pipeline.TenantID)

	fields, err := f.fields.Definitions(ctx, resp.Tenant.ID, "deal")
	require.NoError(t, err)
	assert.NotEmpty(t, fields)

	_, err = f.svc.Provision(ctx, domain.ProvisionRequest{Name: "Other", Slug: "Imobiliaria Central"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)

	_, err = f.svc.Provision(ctx, domain.ProvisionRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Provision(ctx, domain.ProvisionRequest{Name: "X", TemplateID: "missing"})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}
