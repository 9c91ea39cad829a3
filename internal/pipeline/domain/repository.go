package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPipeline(ctx context.Context, db *gorm.DB, pipeline *Pipeline) error
	InsertStage(ctx context.Context, db *gorm.DB, stage *Stage) error
	FindPipeline(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Pipeline, error)
	FindDefault(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string) (*Pipeline, error)
	ListPipelines(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string) ([]*Pipeline, error)
	FindStage(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Stage, error)
	FirstStage(ctx context.Context, db *gorm.DB, tenantID, pipelineID snowflake.ID) (*Stage, error)
	ListStages(ctx context.Context, db *gorm.DB, tenantID, pipelineID snowflake.ID) ([]*Stage, error)
}
