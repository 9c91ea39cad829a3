package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TypeCreated       = "created"
	TypeUpdated       = "updated"
	TypeDeleted       = "deleted"
	TypeStageChanged  = "stage_changed"
	TypeStatusChanged = "status_changed"
)

var eventTypes = map[string]struct{}{
	TypeCreated:       {},
	TypeUpdated:       {},
	TypeDeleted:       {},
	TypeStageChanged:  {},
	TypeStatusChanged: {},
}

func ValidType(t string) bool {
	_, ok := eventTypes[t]
	return ok
}

// Event is an append only record change, later delivered to the automation
// endpoint by the dispatcher.
type Event struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	EntityType  string            `gorm:"not null;index:idx_events_entity,priority:1" json:"entity_type"`
	EntityID    snowflake.ID      `gorm:"not null;index:idx_events_entity,priority:2" json:"entity_id"`
	EventType   string            `gorm:"not null" json:"event_type"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb" json:"payload"`
	Processed   bool              `gorm:"not null;default:false;index:idx_events_pending,priority:1" json:"processed"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index:idx_events_pending,priority:2" json:"created_at"`
}

func (Event) TableName() string { return "events" }
