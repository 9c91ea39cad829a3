package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusOpen = "open"
	StatusWon  = "won"
	StatusLost = "lost"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusWon, StatusLost:
		return true
	default:
		return false
	}
}

type Deal struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	PipelineID        snowflake.ID      `gorm:"not null;index" json:"pipeline_id"`
	StageID           snowflake.ID      `gorm:"not null;index" json:"stage_id"`
	ContactID         *snowflake.ID     `gorm:"index" json:"contact_id"`
	Title             string            `gorm:"not null" json:"title"`
	Value             *float64          `json:"value"`
	Status            string            `gorm:"not null;default:open" json:"status"`
	AssignedTo        *string           `json:"assigned_to"`
	ExpectedCloseDate *time.Time        `json:"expected_close_date"`
	ClosedAt          *time.Time        `json:"closed_at"`
	CustomFields      datatypes.JSONMap `gorm:"type:jsonb" json:"custom_fields"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`

	ComputedFields map[string]any `gorm:"-" json:"computed_fields,omitempty"`
}

func (Deal) TableName() string { return "deals" }

type ListFilter struct {
	PipelineID *snowflake.ID
	StageID    *snowflake.ID
	ContactID  *snowflake.ID
	Status     string
}
