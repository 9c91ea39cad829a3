package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/pipeline/domain"
	"github.com/smallbiznis/imobi360/internal/pipeline/repository"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    dbtest.New(t, &domain.Pipeline{}, &domain.Stage{}),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestSeedFromManifest(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	tenantID := snowflake.ID(100)

	registry, err := template.NewRegistry()
	require.NoError(t, err)
	manifest, err := registry.Get("imobi360")
	require.NoError(t, err)

	n, err := svc.Seed(ctx, nil, tenantID, manifest.Pipelines)
	require.NoError(t, err)
	assert.Equal(t, len(manifest.Pipelines), n)

	def, err := svc.Default(ctx, tenantID, "deal")
	require.NoError(t, err)
	assert.True(t, def.IsDefault)
	assert.Equal(t, "deal", def.EntityType)

	first, err := svc.FirstStage(ctx, tenantID, def.ID)
	require.NoError(t, err)

	full, err := svc.Get(ctx, tenantID, def.ID)
	require.NoError(t, err)
	require.NotEmpty(t, full.Stages)
	assert.Equal(t, full.Stages[0].ID, first.ID)
	for i := 1; i < len(full.Stages); i++ {
		assert.LessOrEqual(t, full.Stages[i-1].Position, full.Stages[i].Position)
	}
}

func TestFirstStageOrdersByPosition(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	tenantID := snowflake.ID(7)

	_, err := svc.Seed(ctx, nil, tenantID, []template.Pipeline{{
		EntityTypeID: "deal",
		Name:         "Vendas",
		IsDefault:    true,
		Stages: []template.Stage{
			{Name: "Fechado", Position: 3, IsWon: true},
			{Name: "Novo", Position: 1},
			{Name: "Proposta", Position: 2},
		},
	}})
	require.NoError(t, err)

	def, err := svc.Default(ctx, tenantID, "deal")
	require.NoError(t, err)
	first, err := svc.FirstStage(ctx, tenantID, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Novo", first.Name)

	stage, err := svc.Stage(ctx, tenantID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, def.ID, stage.PipelineID)
}

func TestLookupsAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Seed(ctx, nil, 1, []template.Pipeline{{
		EntityTypeID: "deal", Name: "P", IsDefault: true,
		Stages: []template.Stage{{Name: "S", Position: 1}},
	}})
	require.NoError(t, err)
	def, err := svc.Default(ctx, 1, "deal")
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, def.ID)
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
	_, err = svc.Default(ctx, 2, "deal")
	assert.ErrorIs(t, err, domain.ErrNoDefaultPipeline)
	_, err = svc.Default(ctx, 1, "lead")
	assert.ErrorIs(t, err, domain.ErrNoDefaultPipeline)
}

func TestSeedRejectsUnnamedPipeline(t *testing.T) {
	svc := newService(t)
	_, err := svc.Seed(context.Background(), nil, 1, []template.Pipeline{{EntityTypeID: "deal"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPipeline)
}
