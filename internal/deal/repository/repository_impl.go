package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/deal/domain"
	"github.com/smallbiznis/imobi360/pkg/db/option"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, deal *domain.Deal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO deals (id, tenant_id, pipeline_id, stage_id, contact_id, title, value, status, assigned_to, expected_close_date, closed_at, custom_fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deal.ID,
		deal.TenantID,
		deal.PipelineID,
		deal.StageID,
		deal.ContactID,
		deal.Title,
		deal.Value,
		deal.Status,
		deal.AssignedTo,
		deal.ExpectedCloseDate,
		deal.ClosedAt,
		deal.CustomFields,
		deal.CreatedAt,
		deal.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Deal, error) {
	var deal domain.Deal
	err := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&deal).Error
	if err != nil {
		return nil, err
	}
	if deal.ID == 0 {
		return nil, nil
	}
	return &deal, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Deal, error) {
	var deals []*domain.Deal
	stmt := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ?", tenantID)
	if filter.PipelineID != nil {
		stmt = stmt.Where("pipeline_id = ?", *filter.PipelineID)
	}
	if filter.StageID != nil {
		stmt = stmt.Where("stage_id = ?", *filter.StageID)
	}
	if filter.ContactID != nil {
		stmt = stmt.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// ListByPipeline is unpaginated; a board shows every deal of the pipeline.
func (r *repo) ListByPipeline(ctx context.Context, db *gorm.DB, tenantID, pipelineID snowflake.ID) ([]*domain.Deal, error) {
	var deals []*domain.Deal
	err := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ? AND pipeline_id = ?", tenantID, pipelineID).
		Order("created_at desc, id desc").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, changes map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM deals WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ContactExists(ctx context.Context, db *gorm.DB, tenantID, contactID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM contacts WHERE tenant_id = ? AND id = ?`,
		tenantID,
		contactID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
