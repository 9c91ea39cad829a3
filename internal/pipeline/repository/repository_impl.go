package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/pipeline/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPipeline(ctx context.Context, db *gorm.DB, pipeline *domain.Pipeline) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pipelines (id, tenant_id, entity_type, name, is_default, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pipeline.ID,
		pipeline.TenantID,
		pipeline.EntityType,
		pipeline.Name,
		pipeline.IsDefault,
		pipeline.IsActive,
		pipeline.CreatedAt,
	).Error
}

func (r *repo) InsertStage(ctx context.Context, db *gorm.DB, stage *domain.Stage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stages (id, tenant_id, pipeline_id, name, color, position, is_won, is_lost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stage.ID,
		stage.TenantID,
		stage.PipelineID,
		stage.Name,
		stage.Color,
		stage.Position,
		stage.IsWon,
		stage.IsLost,
		stage.CreatedAt,
	).Error
}

func (r *repo) FindPipeline(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, entity_type, name, is_default, is_active, created_at
		 FROM pipelines WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&pipeline).Error
	if err != nil {
		return nil, err
	}
	if pipeline.ID == 0 {
		return nil, nil
	}
	return &pipeline, nil
}

func (r *repo) FindDefault(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, entity_type, name, is_default, is_active, created_at
		 FROM pipelines
		 WHERE tenant_id = ? AND entity_type = ? AND is_default = ? AND is_active = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		tenantID,
		entityType,
		true,
		true,
	).Scan(&pipeline).Error
	if err != nil {
		return nil, err
	}
	if pipeline.ID == 0 {
		return nil, nil
	}
	return &pipeline, nil
}

func (r *repo) ListPipelines(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string) ([]*domain.Pipeline, error) {
	var pipelines []*domain.Pipeline
	stmt := db.WithContext(ctx).Model(&domain.Pipeline{}).Where("tenant_id = ?", tenantID)
	if entityType != "" {
		stmt = stmt.Where("entity_type = ?", entityType)
	}
	if err := stmt.Order("created_at asc, id asc").Find(&pipelines).Error; err != nil {
		return nil, err
	}
	return pipelines, nil
}

func (r *repo) FindStage(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Stage, error) {
	var stage domain.Stage
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, pipeline_id, name, color, position, is_won, is_lost, created_at
		 FROM stages WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&stage).Error
	if err != nil {
		return nil, err
	}
	if stage.ID == 0 {
		return nil, nil
	}
	return &stage, nil
}

func (r *repo) FirstStage(ctx context.Context, db *gorm.DB, tenantID, pipelineID snowflake.ID) (*domain.Stage, error) {
	var stage domain.Stage
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, pipeline_id, name, color, position, is_won, is_lost, created_at
		 FROM stages WHERE tenant_id = ? AND pipeline_id = ?
		 ORDER BY position ASC, id ASC
		 LIMIT 1`,
		tenantID,
		pipelineID,
	).Scan(&stage).Error
	if err != nil {
		return nil, err
	}
	if stage.ID == 0 {
		return nil, nil
	}
	return &stage, nil
}

func (r *repo) ListStages(ctx context.Context, db *gorm.DB, tenantID, pipelineID snowflake.ID) ([]*domain.Stage, error) {
	var stages []*domain.Stage
	err := db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("tenant_id = ? AND pipeline_id = ?", tenantID, pipelineID).
		Order("position asc, id asc").
		Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}
