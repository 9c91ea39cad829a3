package permission

import (
	"fmt"
	"sort"
	"strings"
)

const (
	EntityDeal    = "deal"
	EntityLead    = "lead"
	EntityContact = "contact"

	CustomFieldsKey    = "custom_fields"
	customFieldsPrefix = CustomFieldsKey + "."
)

const (
	ReasonSystemField      = "system field cannot be modified"
	ReasonWorkflowField    = "field changes only through stage transitions"
	ReasonReadOnlyRole     = "read-only role"
	ReasonNotEditable      = "field is not editable"
	ReasonUnknownRole      = "unknown role"
	ReasonInsufficientRole = "insufficient permissions to edit this field"
)

var systemFields = map[string]struct{}{
	"id":         {},
	"tenant_id":  {},
	"created_at": {},
	"updated_at": {},
}

// workflowFields are locked on the generic update path for every role below
// admin; stage moves set them through business rules.
var workflowFields = map[string]map[string]struct{}{
	EntityDeal: {
		"pipeline_id": {},
		"stage_id":    {},
		"status":      {},
		"closed_at":   {},
	},
}

var memberFields = map[string][]string{
	EntityDeal:    {"title", "value", "expected_close_date", "assigned_to", "contact_id", CustomFieldsKey},
	EntityLead:    {"name", "email", "phone", "source", "assigned_to", CustomFieldsKey},
	EntityContact: {"name", "email", "phone", "source", "assigned_to", CustomFieldsKey},
}

var adminFields = map[string][]string{
	EntityDeal:    {"title", "value", "expected_close_date", "pipeline_id", "stage_id", "status", "contact_id", "assigned_to", "closed_at", CustomFieldsKey},
	EntityLead:    {"name", "email", "phone", "source", "status", "type", "assigned_to", CustomFieldsKey},
	EntityContact: {"name", "email", "phone", "source", "status", "type", "assigned_to", CustomFieldsKey},
}

// FieldConfig carries per custom field restrictions.
type FieldConfig struct {
	RequiredRole Role
	Editable     *bool
}

// Context describes a single field write check.
type Context struct {
	Role        Role
	EntityType  string
	Field       string
	CustomField *FieldConfig
}

// Decision is the outcome of a field check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// IsSystemField reports whether field is locked for every role on the given entity.
func IsSystemField(entityType, field string) bool {
	if _, ok := systemFields[field]; ok {
		return true
	}
	_, ok := workflowFields[entityType][field]
	return ok
}

// SystemFields lists the locked fields for an entity type, sorted.
func SystemFields(entityType string) []string {
	out := make([]string, 0, len(systemFields)+len(workflowFields[entityType]))
	for f := range systemFields {
		out = append(out, f)
	}
	for f := range workflowFields[entityType] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// CanEditField decides whether ctx.Role may write ctx.Field.
func CanEditField(ctx Context) Decision {
	field := strings.TrimSpace(ctx.Field)

	if _, ok := systemFields[field]; ok {
		return deny(ReasonSystemField)
	}
	if !ctx.Role.Valid() {
		return deny(ReasonUnknownRole)
	}
	if ctx.Role == RoleViewer {
		return deny(ReasonReadOnlyRole)
	}
	if ctx.Role == RoleAdmin {
		return allow()
	}
	if _, ok := workflowFields[ctx.EntityType][field]; ok {
		return deny(ReasonWorkflowField)
	}

	if field == CustomFieldsKey || strings.HasPrefix(field, customFieldsPrefix) {
		return checkCustomField(ctx.Role, ctx.CustomField)
	}

	switch ctx.Role {
	case RoleManager:
		return allow()
	case RoleMember:
		for _, allowed := range memberFields[ctx.EntityType] {
			if allowed == field {
				return allow()
			}
		}
		return deny(ReasonInsufficientRole)
	default:
		return deny(ReasonUnknownRole)
	}
}

func checkCustomField(role Role, cfg *FieldConfig) Decision {
	if cfg == nil {
		return allow()
	}
	if cfg.RequiredRole != "" && !role.AtLeast(cfg.RequiredRole) {
		return deny(fmt.Sprintf("field requires %s role or higher", cfg.RequiredRole))
	}
	if cfg.Editable != nil && !*cfg.Editable {
		return deny(ReasonNotEditable)
	}
	return allow()
}

// FieldDenial names one rejected field. A rejected custom_fields object lists
// the offending entries in Nested.
type FieldDenial struct {
	Field  string        `json:"field"`
	Reason string        `json:"reason"`
	Nested []FieldDenial `json:"nested,omitempty"`
}

// Result is the outcome of checking a whole update payload.
type Result struct {
	Valid           bool          `json:"valid"`
	ForbiddenFields []FieldDenial `json:"forbidden_fields,omitempty"`
}

// Fields returns the names of the rejected fields.
func (r Result) Fields() []string {
	out := make([]string, 0, len(r.ForbiddenFields))
	for _, d := range r.ForbiddenFields {
		out = append(out, d.Field)
	}
	return out
}

// UpdateContext is the input to ValidateUpdate.
type UpdateContext struct {
	Role         Role
	EntityType   string
	CustomFields map[string]FieldConfig
}

// ValidateUpdate checks every top-level key of update and reports one entry per
// rejected key. Keys of a custom_fields object are checked individually against
// their config and reported under that entry.
func ValidateUpdate(uctx UpdateContext, update map[string]any) Result {
	keys := make([]string, 0, len(update))
	for key := range update {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var denied []FieldDenial
	for _, key := range keys {
		if nested, ok := update[key].(map[string]any); ok && key == CustomFieldsKey {
			if d, rejected := validateCustomFields(uctx, nested); rejected {
				denied = append(denied, d)
			}
			continue
		}
		ctx := Context{Role: uctx.Role, EntityType: uctx.EntityType, Field: key}
		if strings.HasPrefix(key, customFieldsPrefix) {
			ctx.CustomField = lookupFieldConfig(uctx.CustomFields, strings.TrimPrefix(key, customFieldsPrefix))
		}
		if d := CanEditField(ctx); !d.Allowed {
			denied = append(denied, FieldDenial{Field: key, Reason: d.Reason})
		}
	}
	return Result{Valid: len(denied) == 0, ForbiddenFields: denied}
}

func validateCustomFields(uctx UpdateContext, nested map[string]any) (FieldDenial, bool) {
	d := CanEditField(Context{Role: uctx.Role, EntityType: uctx.EntityType, Field: CustomFieldsKey})
	if !d.Allowed {
		return FieldDenial{Field: CustomFieldsKey, Reason: d.Reason}, true
	}
	names := make([]string, 0, len(nested))
	for name := range nested {
		names = append(names, name)
	}
	sort.Strings(names)

	var inner []FieldDenial
	for _, name := range names {
		field := customFieldsPrefix + name
		d := CanEditField(Context{
			Role:        uctx.Role,
			EntityType:  uctx.EntityType,
			Field:       field,
			CustomField: lookupFieldConfig(uctx.CustomFields, name),
		})
		if !d.Allowed {
			inner = append(inner, FieldDenial{Field: field, Reason: d.Reason})
		}
	}
	if len(inner) == 0 {
		return FieldDenial{}, false
	}
	return FieldDenial{Field: CustomFieldsKey, Reason: inner[0].Reason, Nested: inner}, true
}

func lookupFieldConfig(configs map[string]FieldConfig, name string) *FieldConfig {
	cfg, ok := configs[name]
	if !ok {
		return nil
	}
	return &cfg
}

// EditableFields lists the standard fields a role may write on an entity type.
func EditableFields(role Role, entityType string) []string {
	switch role {
	case RoleAdmin:
		return append([]string(nil), adminFields[entityType]...)
	case RoleManager:
		out := make([]string, 0, len(adminFields[entityType]))
		for _, f := range adminFields[entityType] {
			if _, locked := workflowFields[entityType][f]; locked {
				continue
			}
			out = append(out, f)
		}
		return out
	case RoleMember:
		return append([]string(nil), memberFields[entityType]...)
	default:
		return []string{}
	}
}
