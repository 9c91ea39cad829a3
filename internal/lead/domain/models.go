package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TypeLead marks contacts handled as leads.
const TypeLead = "lead"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusInactive, StatusArchived:
		return true
	default:
		return false
	}
}

// Lead is a contacts row with type lead.
type Lead struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	Type         string            `gorm:"not null;index" json:"type"`
	Name         string            `gorm:"not null" json:"name"`
	Email        *string           `json:"email"`
	Phone        *string           `json:"phone"`
	Source       *string           `json:"source"`
	Status       string            `gorm:"not null;default:active" json:"status"`
	AssignedTo   *string           `json:"assigned_to"`
	CustomFields datatypes.JSONMap `gorm:"type:jsonb" json:"custom_fields"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`

	ComputedFields map[string]any `gorm:"-" json:"computed_fields,omitempty"`
}

func (Lead) TableName() string { return "contacts" }

type ListFilter struct {
	Status     string
	Source     string
	AssignedTo string
}
