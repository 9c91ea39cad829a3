package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, field *CustomField) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*CustomField, error)
	FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType, fieldName string) (*CustomField, error)
	ListByEntity(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string) ([]*CustomField, error)
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
}
