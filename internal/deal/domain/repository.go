package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, deal *Deal) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Deal, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Deal, error)
	ListByPipeline(ctx context.Context, db *gorm.DB, tenantID, pipelineID snowflake.ID) ([]*Deal, error)
	Update(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, changes map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
	ContactExists(ctx context.Context, db *gorm.DB, tenantID, contactID snowflake.ID) (bool, error)
}
