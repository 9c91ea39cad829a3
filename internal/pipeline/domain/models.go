package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Pipeline struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	EntityType string       `gorm:"not null" json:"entity_type"`
	Name       string       `gorm:"not null" json:"name"`
	IsDefault  bool         `gorm:"not null;default:false" json:"is_default"`
	IsActive   bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	Stages     []Stage      `gorm:"-" json:"stages,omitempty"`
}

func (Pipeline) TableName() string { return "pipelines" }

type Stage struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	PipelineID snowflake.ID `gorm:"not null;index" json:"pipeline_id"`
	Name       string       `gorm:"not null" json:"name"`
	Color      string       `json:"color"`
	Position   int          `gorm:"not null" json:"position"`
	IsWon      bool         `gorm:"not null;default:false" json:"is_won"`
	IsLost     bool         `gorm:"not null;default:false" json:"is_lost"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (Stage) TableName() string { return "stages" }

// Terminal reports whether entering the stage closes the record.
func (s *Stage) Terminal() bool {
	return s.IsWon || s.IsLost
}
