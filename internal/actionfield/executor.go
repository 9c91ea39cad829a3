// Package actionfield runs button custom fields: it checks the caller may
// press the button, records a button_click event and optionally forwards the
// rendered payload to the automation webhook.
package actionfield

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/automation"
	"github.com/smallbiznis/imobi360/internal/clock"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/record"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ActionWebhook = "webhook"
	ActionEvent   = "event"

	actionButtonClick = "button_click"
)

var (
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrFieldNotFound  = errors.New("action_field_not_found")
	ErrNotActionField = errors.New("not_action_field")
)

var placeholder = regexp.MustCompile(`\{([^}]+)\}`)

// Fields is the custom field lookup the executor reads definitions from.
type Fields interface {
	Find(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) (*cfdomain.CustomField, error)
}

type Sender interface {
	Send(ctx context.Context, url string, payload automation.Payload) (automation.Delivery, error)
}

type Params struct {
	fx.In

	Fields cfdomain.Service
	Events eventdomain.Service
	Client *automation.Client
	Clock  clock.Clock
	Log    *zap.Logger
}

type Executor struct {
	fields Fields
	events eventdomain.Service
	sender Sender
	clock  clock.Clock
	log    *zap.Logger
}

func NewExecutor(p Params) *Executor {
	return New(p.Fields, p.Events, p.Client, p.Clock, p.Log)
}

func New(fields Fields, events eventdomain.Service, sender Sender, clk clock.Clock, log *zap.Logger) *Executor {
	return &Executor{fields: fields, events: events, sender: sender, clock: clk, log: log.Named("actionfield.executor")}
}

type Request struct {
	EntityType string
	EntityID   snowflake.ID
	FieldName  string
	// Record is the current state of the entity, used to render the payload.
	Record map[string]any
}

type Result struct {
	EventID    string    `json:"event_id"`
	ExecutedAt time.Time `json:"executed_at"`
}

func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidTenant
	}
	role := tenantcontext.RoleOrViewer(ctx)
	userID, _ := tenantcontext.UserIDFromContext(ctx)

	field, err := e.fields.Find(ctx, tenantID, req.EntityType, req.FieldName)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, ErrFieldNotFound
	}
	if !field.IsAction() {
		return nil, ErrNotActionField
	}
	cfg, err := field.ActionConfig()
	if err != nil {
		return nil, err
	}

	// required_role lives in the field options, so CanEditField covers it.
	key := permission.CustomFieldsKey + "." + field.FieldName
	fieldCfg := field.PermissionConfig()
	decision := permission.CanEditField(permission.Context{
		Role:        role,
		EntityType:  req.EntityType,
		Field:       key,
		CustomField: &fieldCfg,
	})
	if !decision.Allowed {
		return nil, denied(key, decision.Reason)
	}

	rendered := BuildPayload(cfg.PayloadTemplate, map[string]any{
		"record": req.Record,
		"user":   map[string]any{"id": userID},
		"tenant": map[string]any{"id": tenantID.String()},
		"context": map[string]any{
			"entity_type":    req.EntityType,
			"entity_id":      req.EntityID.String(),
			"field_name":     field.FieldName,
			"automation_key": cfg.AutomationKey,
		},
	})

	eventPayload := map[string]any{
		"action":         actionButtonClick,
		"field_name":     field.FieldName,
		"automation_key": cfg.AutomationKey,
		"user_id":        userID,
		"payload":        rendered,
	}
	eventID, err := e.events.Emit(ctx, eventdomain.EmitRequest{
		TenantID:   tenantID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		EventType:  eventdomain.TypeUpdated,
		Payload:    eventPayload,
	})
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if cfg.Action == ActionWebhook && e.sender != nil {
		body := map[string]any{
			"action":         actionButtonClick,
			"field_name":     field.FieldName,
			"automation_key": cfg.AutomationKey,
			"user_id":        userID,
		}
		for k, v := range rendered {
			body[k] = v
		}
		delivery, err := e.sender.Send(ctx, cfg.WebhookURL, automation.Payload{
			TenantID:   tenantID.String(),
			EntityType: req.EntityType,
			EntityID:   req.EntityID.String(),
			EventType:  eventdomain.TypeUpdated,
			EventID:    eventID.String(),
			Payload:    body,
			Timestamp:  now.UTC().Format(time.RFC3339Nano),
		})
		if err != nil || delivery.Outcome != automation.OutcomeDelivered {
			// the event is stored; the dispatcher is the source of truth
			e.log.Warn("action webhook failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("field_name", field.FieldName),
				zap.Int("status", delivery.StatusCode),
				zap.Error(err),
			)
		}
	}

	return &Result{EventID: eventID.String(), ExecutedAt: now}, nil
}

func denied(field, reason string) error {
	return &mutationguard.PermissionError{
		Fields:  []string{field},
		Reasons: map[string]string{field: reason},
	}
}

// BuildPayload renders a payload template. String values have {path}
// placeholders replaced from vars; unresolved placeholders are kept verbatim.
// Nested objects are rendered recursively, other values are copied.
func BuildPayload(tpl map[string]any, vars map[string]any) map[string]any {
	out := make(map[string]any, len(tpl))
	for key, value := range tpl {
		switch typed := value.(type) {
		case string:
			out[key] = replaceVariables(typed, vars)
		case map[string]any:
			out[key] = BuildPayload(typed, vars)
		default:
			out[key] = value
		}
	}
	return out
}

func replaceVariables(tpl string, vars map[string]any) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(match string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		value, ok := record.GetPath(vars, path)
		if !ok {
			return match
		}
		if value == nil {
			return "null"
		}
		return fmt.Sprint(value)
	})
}
