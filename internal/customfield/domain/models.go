package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/permission"
	"gorm.io/datatypes"
)

const (
	TypeText        = "text"
	TypeNumber      = "number"
	TypeDate        = "date"
	TypeSelect      = "select"
	TypeMultiselect = "multiselect"
	TypeBoolean     = "boolean"
	TypeButton      = "button"
)

var fieldTypes = map[string]struct{}{
	TypeText:        {},
	TypeNumber:      {},
	TypeDate:        {},
	TypeSelect:      {},
	TypeMultiselect: {},
	TypeBoolean:     {},
	TypeButton:      {},
}

func ValidFieldType(t string) bool {
	_, ok := fieldTypes[t]
	return ok
}

// CustomField is a tenant defined field of an entity type. Values live in the
// custom_fields JSON column of the owning record.
type CustomField struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID      `gorm:"not null;uniqueIndex:ux_custom_fields_name,priority:1" json:"tenant_id"`
	EntityType string            `gorm:"not null;uniqueIndex:ux_custom_fields_name,priority:2" json:"entity_type"`
	FieldName  string            `gorm:"not null;uniqueIndex:ux_custom_fields_name,priority:3" json:"field_name"`
	FieldLabel string            `gorm:"not null" json:"field_label"`
	FieldType  string            `gorm:"not null" json:"field_type"`
	Options    datatypes.JSONMap `gorm:"type:jsonb" json:"options,omitempty"`
	IsRequired bool              `gorm:"not null;default:false" json:"is_required"`
	Position   int               `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (CustomField) TableName() string { return "custom_fields" }

// Kind returns formula, relation or action for computed and button fields and
// an empty string for plain stored fields.
func (f *CustomField) Kind() string {
	if f.FieldType == TypeButton {
		return KindAction
	}
	kind, _ := f.Options["kind"].(string)
	return strings.TrimSpace(kind)
}

func (f *CustomField) IsFormula() bool  { return f.Kind() == KindFormula }
func (f *CustomField) IsRelation() bool { return f.Kind() == KindRelation }
func (f *CustomField) IsAction() bool   { return f.Kind() == KindAction }

// IsComputed reports whether the field value is derived on read.
func (f *CustomField) IsComputed() bool {
	kind := f.Kind()
	return kind == KindFormula || kind == KindRelation
}

// PermissionConfig extracts the write restrictions declared in options.
func (f *CustomField) PermissionConfig() permission.FieldConfig {
	var cfg permission.FieldConfig
	if raw, ok := f.Options["required_role"].(string); ok {
		if role, valid := permission.ParseRole(raw); valid {
			cfg.RequiredRole = role
		}
	}
	for _, key := range []string{"is_editable", "editable"} {
		if editable, ok := f.Options[key].(bool); ok {
			cfg.Editable = &editable
			break
		}
	}
	return cfg
}
