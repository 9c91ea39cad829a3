package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	ListUnprocessed(ctx context.Context, db *gorm.DB, limit int) ([]*Event, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	ListForEntity(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string, entityID snowflake.ID, limit int) ([]*Event, error)
}
