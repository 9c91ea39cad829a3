package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/customfield/repository"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenantID = snowflake.ID(500)

func newService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:     dbtest.New(t, &domain.CustomField{}),
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Config: config.Config{CustomFieldCacheSize: 16, CustomFieldCacheTTL: time.Minute},
		Repo:   repository.Provide(),
	})
}

func tenantCtx() context.Context {
	return tenantcontext.WithTenantID(context.Background(), tenantID)
}

func TestCreateDerivesFieldNameFromLabel(t *testing.T) {
	svc := newService(t)
	field, err := svc.Create(tenantCtx(), domain.CreateRequest{
		EntityType: "deal",
		FieldLabel: "Valor Comissão",
		FieldType:  domain.TypeNumber,
	})
	require.NoError(t, err)
	assert.Equal(t, "valor_comissao", field.FieldName)
	assert.Equal(t, tenantID, field.TenantID)

	_, err = svc.Create(tenantCtx(), domain.CreateRequest{
		EntityType: "deal",
		FieldLabel: "Valor comissão",
		FieldType:  domain.TypeNumber,
	})
	assert.ErrorIs(t, err, domain.ErrFieldNameTaken)
}

func TestCreateValidatesComputedConfig(t *testing.T) {
	svc := newService(t)
	ctx := tenantCtx()

	_, err := svc.Create(ctx, domain.CreateRequest{
		EntityType: "deal",
		FieldName:  "commission",
		FieldLabel: "Commission",
		FieldType:  domain.TypeNumber,
		Options: map[string]any{
			"kind":         "formula",
			"expression":   "value * 0.06",
			"dependencies": []any{"value"},
			"return_type":  "number",
		},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{
		EntityType: "deal",
		FieldName:  "broken",
		FieldLabel: "Broken",
		FieldType:  domain.TypeNumber,
		Options:    map[string]any{"kind": "formula", "expression": "value *", "return_type": "number"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFormulaConfig)

	_, err = svc.Create(ctx, domain.CreateRequest{
		EntityType: "contact",
		FieldName:  "deal_total",
		FieldLabel: "Deal total",
		FieldType:  domain.TypeNumber,
		Options: map[string]any{
			"kind":          "relation",
			"target_entity": "deals",
			"relation_type": "one_to_many",
			"foreign_key":   "contact_id",
			"rollup":        map[string]any{"operation": "sum"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRelationConfig)

	_, err = svc.Create(ctx, domain.CreateRequest{
		EntityType: "deal",
		FieldName:  "notify",
		FieldLabel: "Notify",
		FieldType:  domain.TypeButton,
		Options:    map[string]any{"action": "email"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidActionConfig)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{EntityType: "deal", FieldLabel: "X", FieldType: "text"})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = svc.Create(tenantCtx(), domain.CreateRequest{EntityType: "deal", FieldLabel: " ", FieldType: "text"})
	assert.ErrorIs(t, err, domain.ErrInvalidFieldLabel)

	_, err = svc.Create(tenantCtx(), domain.CreateRequest{EntityType: "deal", FieldLabel: "X", FieldType: "geo"})
	assert.ErrorIs(t, err, domain.ErrInvalidFieldType)

	_, err = svc.Create(tenantCtx(), domain.CreateRequest{EntityType: "deal", FieldName: "1bad", FieldLabel: "X", FieldType: "text"})
	assert.ErrorIs(t, err, domain.ErrInvalidFieldName)

	_, err = svc.Create(tenantCtx(), domain.CreateRequest{EntityType: "Deal!", FieldLabel: "X", FieldType: "text"})
	assert.ErrorIs(t, err, domain.ErrInvalidEntityType)
}

func TestDefinitionsCacheIsInvalidatedOnChange(t *testing.T) {
	svc := newService(t)
	ctx := tenantCtx()

	fields, err := svc.Definitions(ctx, tenantID, "deal")
	require.NoError(t, err)
	assert.Empty(t, fields)

	created, err := svc.Create(ctx, domain.CreateRequest{EntityType: "deal", FieldName: "b", FieldLabel: "B", FieldType: "text", Position: 2})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{EntityType: "deal", FieldName: "a", FieldLabel: "A", FieldType: "text", Position: 1})
	require.NoError(t, err)

	fields, err = svc.List(ctx, "deal")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].FieldName)

	require.NoError(t, svc.Delete(ctx, created.ID))
	fields, err = svc.Definitions(ctx, tenantID, "deal")
	require.NoError(t, err)
	assert.Len(t, fields, 1)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), domain.ErrNotFound)
}

func TestFindAndPermissionConfig(t *testing.T) {
	svc := newService(t)
	ctx := tenantCtx()

	_, err := svc.Create(ctx, domain.CreateRequest{
		EntityType: "deal",
		FieldName:  "commission_rate",
		FieldLabel: "Commission rate",
		FieldType:  domain.TypeNumber,
		Options:    map[string]any{"required_role": "manager", "is_editable": true},
	})
	require.NoError(t, err)

	field, err := svc.Find(ctx, tenantID, "deal", "commission_rate")
	require.NoError(t, err)
	require.NotNil(t, field)
	cfg := field.PermissionConfig()
	assert.Equal(t, permission.RoleManager, cfg.RequiredRole)
	require.NotNil(t, cfg.Editable)
	assert.True(t, *cfg.Editable)

	missing, err := svc.Find(ctx, tenantID, "deal", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	other, err := svc.Find(ctx, snowflake.ID(9), "deal", "commission_rate")
	require.NoError(t, err)
	assert.Nil(t, other, "definitions are tenant scoped")
}

func TestSeedPresets(t *testing.T) {
	svc := newService(t)
	registry, err := template.NewRegistry()
	require.NoError(t, err)
	manifest, err := registry.Get("imobi360")
	require.NoError(t, err)

	n, err := svc.Seed(context.Background(), nil, tenantID, manifest.FieldPresets)
	require.NoError(t, err)

	want := 0
	for _, p := range manifest.FieldPresets {
		want += len(p.Fields)
	}
	assert.Equal(t, want, n)

	fields, err := svc.Definitions(context.Background(), tenantID, "property")
	require.NoError(t, err)
	assert.NotEmpty(t, fields)
}
