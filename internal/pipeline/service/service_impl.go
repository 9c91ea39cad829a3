package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/pipeline/domain"
	"github.com/smallbiznis/imobi360/internal/template"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pipeline.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, tenantID, id snowflake.ID) (*domain.Pipeline, error) {
	pipeline, err := s.repo.FindPipeline(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if pipeline == nil {
		return nil, domain.ErrPipelineNotFound
	}
	if err := s.attachStages(ctx, pipeline); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// Default returns the active default pipeline of an entity type.
func (s *Service) Default(ctx context.Context, tenantID snowflake.ID, entityType string) (*domain.Pipeline, error) {
	pipeline, err := s.repo.FindDefault(ctx, s.db, tenantID, entityType)
	if err != nil {
		return nil, err
	}
	if pipeline == nil {
		return nil, domain.ErrNoDefaultPipeline
	}
	return pipeline, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, entityType string) ([]domain.Pipeline, error) {
	items, err := s.repo.ListPipelines(ctx, s.db, tenantID, strings.TrimSpace(entityType))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Pipeline, 0, len(items))
	for _, item := range items {
		if err := s.attachStages(ctx, item); err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) Stage(ctx context.Context, tenantID, id snowflake.ID) (*domain.Stage, error) {
	stage, err := s.repo.FindStage(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, domain.ErrStageNotFound
	}
	return stage, nil
}

// FirstStage returns the stage with the lowest position.
func (s *Service) FirstStage(ctx context.Context, tenantID, pipelineID snowflake.ID) (*domain.Stage, error) {
	stage, err := s.repo.FirstStage(ctx, s.db, tenantID, pipelineID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, domain.ErrPipelineHasNoStage
	}
	return stage, nil
}

func (s *Service) Seed(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, pipelines []template.Pipeline) (int, error) {
	if tx == nil {
		tx = s.db
	}
	now := s.clock.Now()
	for _, def := range pipelines {
		name := strings.TrimSpace(def.Name)
		if name == "" || strings.TrimSpace(def.EntityTypeID) == "" {
			return 0, domain.ErrInvalidPipeline
		}
		pipeline := domain.Pipeline{
			ID:         s.genID.Generate(),
			TenantID:   tenantID,
			EntityType: def.EntityTypeID,
			Name:       name,
			IsDefault:  def.IsDefault,
			IsActive:   true,
			CreatedAt:  now,
		}
		if err := s.repo.InsertPipeline(ctx, tx, &pipeline); err != nil {
			return 0, err
		}
		for _, st := range def.Stages {
			stage := domain.Stage{
				ID:         s.genID.Generate(),
				TenantID:   tenantID,
				PipelineID: pipeline.ID,
				Name:       st.Name,
				Color:      st.Color,
				Position:   st.Position,
				IsWon:      st.IsWon,
				IsLost:     st.IsLost,
				CreatedAt:  now,
			}
			if err := s.repo.InsertStage(ctx, tx, &stage); err != nil {
				return 0, err
			}
		}
		s.log.Debug("pipeline seeded",
			zap.String("tenant_id", tenantID.String()),
			zap.String("pipeline", name),
			zap.Int("stages", len(def.Stages)),
		)
	}
	return len(pipelines), nil
}

func (s *Service) attachStages(ctx context.Context, pipeline *domain.Pipeline) error {
	stages, err := s.repo.ListStages(ctx, s.db, pipeline.TenantID, pipeline.ID)
	if err != nil {
		return err
	}
	pipeline.Stages = make([]domain.Stage, 0, len(stages))
	for _, st := range stages {
		pipeline.Stages = append(pipeline.Stages, *st)
	}
	return nil
}
