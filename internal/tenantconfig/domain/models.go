package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Tenant struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Slug      string         `gorm:"not null;uniqueIndex" json:"slug"`
	Settings  datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"settings"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// ParseSettings decodes the settings column. An empty column yields zero settings.
func (t *Tenant) ParseSettings() (TenantSettings, error) {
	var settings TenantSettings
	if len(t.Settings) == 0 || string(t.Settings) == "null" {
		return settings, nil
	}
	if err := json.Unmarshal(t.Settings, &settings); err != nil {
		return TenantSettings{}, err
	}
	return settings, nil
}

// TenantSettings is the persisted per tenant template selection plus overrides.
type TenantSettings struct {
	TemplateID        string     `json:"template_id,omitempty"`
	TemplateVersion   string     `json:"template_version,omitempty"`
	TemplateAppliedAt *time.Time `json:"template_applied_at,omitempty"`
	Overrides         *Overrides `json:"overrides,omitempty"`
}

// Patch is a partial object merged field by field over a base object.
type Patch map[string]any

// Overrides mirrors the manifest shape. List entries are matched to base
// entries by key: modules and entity_types by id, views by
// (entity_type_id, type), pipelines by (entity_type_id, name).
type Overrides struct {
	Modules     []Patch `json:"modules,omitempty"`
	Navigation  Patch   `json:"navigation,omitempty"`
	EntityTypes []Patch `json:"entity_types,omitempty"`
	Views       []Patch `json:"views,omitempty"`
	Pipelines   []Patch `json:"pipelines,omitempty"`
	Settings    Patch   `json:"settings,omitempty"`
}

// IsEmpty reports whether o carries no patch at all.
func (o *Overrides) IsEmpty() bool {
	if o == nil {
		return true
	}
	return len(o.Modules) == 0 && len(o.Navigation) == 0 && len(o.EntityTypes) == 0 &&
		len(o.Views) == 0 && len(o.Pipelines) == 0 && len(o.Settings) == 0
}

// Apply copies every key present in patch over o. A key set to an empty list
// clears that part of the overrides.
func (o Overrides) Apply(patch Overrides) Overrides {
	if patch.Modules != nil {
		o.Modules = patch.Modules
	}
	if patch.Navigation != nil {
		o.Navigation = patch.Navigation
	}
	if patch.EntityTypes != nil {
		o.EntityTypes = patch.EntityTypes
	}
	if patch.Views != nil {
		o.Views = patch.Views
	}
	if patch.Pipelines != nil {
		o.Pipelines = patch.Pipelines
	}
	if patch.Settings != nil {
		o.Settings = patch.Settings
	}
	return o
}
