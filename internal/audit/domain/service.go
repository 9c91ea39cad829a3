package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

// Service records administrative actions and renders record history.
type Service interface {
	// AuditLog stores one entry. The actor comes from ctx; a nil tenantID
	// falls back to the tenant in ctx. Secret looking metadata is masked.
	AuditLog(ctx context.Context, tenantID *snowflake.ID, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
	// Timeline returns the newest events of one record as readable entries.
	Timeline(ctx context.Context, entityType string, entityID snowflake.ID, limit int) ([]TimelineEntry, error)
}

var (
	ErrInvalidTenant     = errors.New("invalid_tenant")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrInvalidTimeRange  = errors.New("invalid_time_range")
	ErrInvalidAction     = errors.New("invalid_action")
	ErrInvalidEntityType = errors.New("invalid_entity_type")
)
