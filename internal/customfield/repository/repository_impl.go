package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/customfield/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, field *domain.CustomField) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO custom_fields (id, tenant_id, entity_type, field_name, field_label, field_type, options, is_required, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		field.ID,
		field.TenantID,
		field.EntityType,
		field.FieldName,
		field.FieldLabel,
		field.FieldType,
		field.Options,
		field.IsRequired,
		field.Position,
		field.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.CustomField, error) {
	var field domain.CustomField
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, entity_type, field_name, field_label, field_type, options, is_required, position, created_at
		 FROM custom_fields WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&field).Error
	if err != nil {
		return nil, err
	}
	if field.ID == 0 {
		return nil, nil
	}
	return &field, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType, fieldName string) (*domain.CustomField, error) {
	var field domain.CustomField
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, entity_type, field_name, field_label, field_type, options, is_required, position, created_at
		 FROM custom_fields WHERE tenant_id = ? AND entity_type = ? AND field_name = ?`,
		tenantID,
		entityType,
		fieldName,
	).Scan(&field).Error
	if err != nil {
		return nil, err
	}
	if field.ID == 0 {
		return nil, nil
	}
	return &field, nil
}

func (r *repo) ListByEntity(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string) ([]*domain.CustomField, error) {
	var fields []*domain.CustomField
	err := db.WithContext(ctx).
		Model(&domain.CustomField{}).
		Where("tenant_id = ? AND entity_type = ?", tenantID, entityType).
		Order("position asc, id asc").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM custom_fields WHERE tenant_id = ? AND id = ?`,
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
