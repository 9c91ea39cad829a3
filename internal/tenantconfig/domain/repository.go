package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Tenant, error)
	UpdateSettings(ctx context.Context, db *gorm.DB, id snowflake.ID, settings datatypes.JSON, updatedAt time.Time) error
}

// Cache holds merged configs between settings changes.
type Cache interface {
	Get(ctx context.Context, tenantID snowflake.ID) (*TenantConfig, bool)
	Set(ctx context.Context, tenantID snowflake.ID, cfg *TenantConfig)
	Invalidate(ctx context.Context, tenantID snowflake.ID)
}
