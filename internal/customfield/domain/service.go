package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/template"
	"gorm.io/gorm"
)

type CreateRequest struct {
	EntityType string         `json:"entity_type"`
	FieldName  string         `json:"field_name"`
	FieldLabel string         `json:"field_label"`
	FieldType  string         `json:"field_type"`
	Options    map[string]any `json:"options"`
	IsRequired bool           `json:"is_required"`
	Position   int            `json:"position"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CustomField, error)
	List(ctx context.Context, entityType string) ([]CustomField, error)
	Delete(ctx context.Context, id snowflake.ID) error

	// Definitions returns every field of an entity type ordered by position.
	// Results are cached per tenant and entity type.
	Definitions(ctx context.Context, tenantID snowflake.ID, entityType string) ([]CustomField, error)
	// Find returns nil without error when the field does not exist.
	Find(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) (*CustomField, error)
	Seed(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, presets []template.FieldPreset) (int, error)
}

var (
	ErrInvalidTenant         = errors.New("invalid_tenant")
	ErrInvalidEntityType     = errors.New("invalid_entity_type")
	ErrInvalidFieldLabel     = errors.New("invalid_field_label")
	ErrInvalidFieldName      = errors.New("invalid_field_name")
	ErrInvalidFieldType      = errors.New("invalid_field_type")
	ErrFieldNameTaken        = errors.New("field_name_taken")
	ErrNotFound              = errors.New("custom_field_not_found")
	ErrInvalidFormulaConfig  = errors.New("invalid_formula_config")
	ErrInvalidRelationConfig = errors.New("invalid_relation_config")
	ErrInvalidActionConfig   = errors.New("invalid_action_config")
)
