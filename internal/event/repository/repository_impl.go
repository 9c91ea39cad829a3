package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO events (id, tenant_id, entity_type, entity_id, event_type, payload, processed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.TenantID,
		event.EntityType,
		event.EntityID,
		event.EventType,
		event.Payload,
		false,
		event.CreatedAt,
	).Error
}

func (r *repo) ListUnprocessed(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Event, error) {
	var events []*domain.Event
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("processed = ?", false).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE events SET processed = ?, processed_at = ? WHERE id = ?`,
		true,
		at,
		id,
	).Error
}

func (r *repo) ListForEntity(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, entityType string, entityID snowflake.ID, limit int) ([]*domain.Event, error) {
	var events []*domain.Event
	stmt := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
