package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/template"
	"gorm.io/gorm"
)

type Service interface {
	Get(ctx context.Context, tenantID, id snowflake.ID) (*Pipeline, error)
	Default(ctx context.Context, tenantID snowflake.ID, entityType string) (*Pipeline, error)
	List(ctx context.Context, tenantID snowflake.ID, entityType string) ([]Pipeline, error)
	Stage(ctx context.Context, tenantID, id snowflake.ID) (*Stage, error)
	FirstStage(ctx context.Context, tenantID, pipelineID snowflake.ID) (*Stage, error)
	// Seed creates the given manifest pipelines with their stages inside tx.
	Seed(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, pipelines []template.Pipeline) (int, error)
}

var (
	ErrPipelineNotFound   = errors.New("pipeline_not_found")
	ErrStageNotFound      = errors.New("stage_not_found")
	ErrNoDefaultPipeline  = errors.New("no_default_pipeline")
	ErrPipelineHasNoStage = errors.New("pipeline_has_no_stage")
	ErrInvalidPipeline    = errors.New("invalid_pipeline")
)
