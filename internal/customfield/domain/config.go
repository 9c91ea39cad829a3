package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/imobi360/internal/expression"
	"github.com/smallbiznis/imobi360/internal/permission"
)

const (
	KindFormula  = "formula"
	KindRelation = "relation"
	KindAction   = "action"

	ReturnNumber  = "number"
	ReturnString  = "string"
	ReturnBoolean = "boolean"

	RelationOneToMany = "one_to_many"
	RelationManyToOne = "many_to_one"

	RollupSum   = "sum"
	RollupCount = "count"
	RollupAvg   = "avg"
	RollupMin   = "min"
	RollupMax   = "max"

	ActionWebhook = "webhook"
	ActionEvent   = "event"
)

type FormulaConfig struct {
	Kind         string   `json:"kind"`
	Expression   string   `json:"expression"`
	Dependencies []string `json:"dependencies"`
	ReturnType   string   `json:"return_type"`
}

type Rollup struct {
	Operation   string `json:"operation"`
	SourceField string `json:"source_field,omitempty"`
}

type RelationConfig struct {
	Kind         string  `json:"kind"`
	TargetEntity string  `json:"target_entity"`
	RelationType string  `json:"relation_type"`
	ForeignKey   string  `json:"foreign_key"`
	LookupField  string  `json:"lookup_field,omitempty"`
	Rollup       *Rollup `json:"rollup,omitempty"`
}

type ActionConfig struct {
	Action          string         `json:"action"`
	AutomationKey   string         `json:"automation_key,omitempty"`
	WebhookURL      string         `json:"webhook_url,omitempty"`
	PayloadTemplate map[string]any `json:"payload_template,omitempty"`
	Label           string         `json:"label,omitempty"`
	Variant         string         `json:"variant,omitempty"`
	ConfirmMessage  string         `json:"confirm_message,omitempty"`
	RequiredRole    string         `json:"required_role,omitempty"`
}

// DecodeOptions converts a loosely typed options object into T.
func DecodeOptions[T any](options map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(options)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (f *CustomField) FormulaConfig() (FormulaConfig, error) {
	if !f.IsFormula() {
		return FormulaConfig{}, fmt.Errorf("%w: %s is not a formula field", ErrInvalidFormulaConfig, f.FieldName)
	}
	return DecodeOptions[FormulaConfig](f.Options)
}

func (f *CustomField) RelationConfig() (RelationConfig, error) {
	if !f.IsRelation() {
		return RelationConfig{}, fmt.Errorf("%w: %s is not a relation field", ErrInvalidRelationConfig, f.FieldName)
	}
	return DecodeOptions[RelationConfig](f.Options)
}

func (f *CustomField) ActionConfig() (ActionConfig, error) {
	if !f.IsAction() {
		return ActionConfig{}, fmt.Errorf("%w: %s is not an action field", ErrInvalidActionConfig, f.FieldName)
	}
	return DecodeOptions[ActionConfig](f.Options)
}

// Validate checks that the expression compiles and the return type is known.
func (c FormulaConfig) Validate() error {
	if strings.TrimSpace(c.Expression) == "" {
		return fmt.Errorf("%w: expression is required", ErrInvalidFormulaConfig)
	}
	if _, err := expression.Compile(c.Expression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormulaConfig, err)
	}
	switch c.ReturnType {
	case ReturnNumber, ReturnString, ReturnBoolean:
	default:
		return fmt.Errorf("%w: unknown return_type %q", ErrInvalidFormulaConfig, c.ReturnType)
	}
	for _, dep := range c.Dependencies {
		if strings.TrimSpace(dep) == "" {
			return fmt.Errorf("%w: empty dependency path", ErrInvalidFormulaConfig)
		}
	}
	return nil
}

// Validate enforces the shape rules of a relation: lookup_field only on
// many_to_one, rollup only on one_to_many, source_field required for every
// rollup except count.
func (c RelationConfig) Validate() error {
	if strings.TrimSpace(c.TargetEntity) == "" {
		return fmt.Errorf("%w: target_entity is required", ErrInvalidRelationConfig)
	}
	if strings.TrimSpace(c.ForeignKey) == "" {
		return fmt.Errorf("%w: foreign_key is required", ErrInvalidRelationConfig)
	}
	switch c.RelationType {
	case RelationManyToOne:
		if c.Rollup != nil {
			return fmt.Errorf("%w: rollup is only valid for one_to_many relations", ErrInvalidRelationConfig)
		}
	case RelationOneToMany:
		if c.LookupField != "" {
			return fmt.Errorf("%w: lookup_field is only valid for many_to_one relations", ErrInvalidRelationConfig)
		}
		if c.Rollup != nil {
			switch c.Rollup.Operation {
			case RollupCount:
			case RollupSum, RollupAvg, RollupMin, RollupMax:
				if strings.TrimSpace(c.Rollup.SourceField) == "" {
					return fmt.Errorf("%w: rollup %s requires source_field", ErrInvalidRelationConfig, c.Rollup.Operation)
				}
			default:
				return fmt.Errorf("%w: unknown rollup operation %q", ErrInvalidRelationConfig, c.Rollup.Operation)
			}
		}
	default:
		return fmt.Errorf("%w: unknown relation_type %q", ErrInvalidRelationConfig, c.RelationType)
	}
	return nil
}

func (c ActionConfig) Validate() error {
	switch c.Action {
	case ActionWebhook, ActionEvent:
	default:
		return fmt.Errorf("%w: action must be webhook or event", ErrInvalidActionConfig)
	}
	if c.RequiredRole != "" {
		if _, ok := permission.ParseRole(c.RequiredRole); !ok {
			return fmt.Errorf("%w: unknown required_role %q", ErrInvalidActionConfig, c.RequiredRole)
		}
	}
	return nil
}
