package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
)

const defaultTimelineLimit = 50

// timelineEntities maps route entity names to the entity_type stored on events.
var timelineEntities = map[string]string{
	"deal":    "deal",
	"deals":   "deal",
	"lead":    "contact",
	"leads":   "contact",
	"contact": "contact",
}

// Timeline returns the events of one record, newest first.
func (s *Service) Timeline(ctx context.Context, entityType string, entityID snowflake.ID, limit int) ([]auditdomain.TimelineEntry, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, auditdomain.ErrInvalidTenant
	}
	stored, ok := timelineEntities[strings.ToLower(strings.TrimSpace(entityType))]
	if !ok || entityID == 0 {
		return nil, auditdomain.ErrInvalidEntityType
	}
	if s.events == nil {
		return []auditdomain.TimelineEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultTimelineLimit
	}

	events, err := s.events.ListForEntity(ctx, tenantID, stored, entityID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]auditdomain.TimelineEntry, 0, len(events))
	for _, e := range events {
		out = append(out, NormalizeEvent(e))
	}
	return out, nil
}

func NormalizeEvent(e eventdomain.Event) auditdomain.TimelineEntry {
	payload := map[string]any(e.Payload)
	if payload == nil {
		payload = map[string]any{}
	}
	entry := auditdomain.TimelineEntry{
		ID:        e.ID.String(),
		Timestamp: e.CreatedAt,
		EventType: e.EventType,
		Actor:     actorOf(payload),
		Metadata:  payload,
	}

	switch e.EventType {
	case eventdomain.TypeCreated:
		entry.Action = "Created record"
	case eventdomain.TypeUpdated:
		if payload["action"] == "button_click" {
			name := stringOr(payload["field_name"], "Unknown")
			entry.Action = "Clicked button: " + name
			entry.Field = stringOr(payload["field_name"], "")
		} else if fields := stringList(payload["updated_fields"]); len(fields) > 0 {
			entry.Action = "Updated fields: " + strings.Join(fields, ", ")
		} else {
			entry.Action = "Updated record"
		}
	case eventdomain.TypeDeleted:
		entry.Action = "Deleted record"
	case eventdomain.TypeStageChanged:
		from := stringOr(payload["from_stage_name"], "Unknown")
		to := stringOr(payload["to_stage_name"], "Unknown")
		entry.Action = fmt.Sprintf("Changed stage from %q to %q", from, to)
		entry.OldValue, entry.NewValue = from, to
	case eventdomain.TypeStatusChanged:
		from := stringOr(payload["from_status"], "Unknown")
		to := stringOr(payload["to_status"], "Unknown")
		entry.Action = fmt.Sprintf("Changed status from %q to %q", from, to)
		entry.OldValue, entry.NewValue = from, to
	default:
		entry.Action = e.EventType + " event"
	}
	return entry
}

func actorOf(payload map[string]any) string {
	if name := stringOr(payload["user_name"], ""); name != "" {
		return name
	}
	if email := stringOr(payload["user_email"], ""); email != "" {
		return email
	}
	if id := stringOr(payload["user_id"], ""); id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		return "User " + id
	}
	if payload["automation_id"] != nil || payload["webhook_id"] != nil {
		return "Automation"
	}
	return "System"
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func stringList(v any) []string {
	switch typed := v.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
