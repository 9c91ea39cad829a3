package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type EmitRequest struct {
	TenantID   snowflake.ID
	EntityType string
	EntityID   snowflake.ID
	EventType  string
	Payload    map[string]any
}

type Service interface {
	// Emit appends the event and returns its id.
	Emit(ctx context.Context, req EmitRequest) (snowflake.ID, error)
	// EmitAsync appends the event in the background. The caller's
	// cancellation does not stop it; failures are logged and counted.
	EmitAsync(ctx context.Context, req EmitRequest)
	// Wait blocks until every background emission has finished.
	Wait()

	Unprocessed(ctx context.Context, limit int) ([]Event, error)
	MarkProcessed(ctx context.Context, id snowflake.ID) error
	ListForEntity(ctx context.Context, tenantID snowflake.ID, entityType string, entityID snowflake.ID, limit int) ([]Event, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidEntity    = errors.New("invalid_entity")
	ErrInvalidEventType = errors.New("invalid_event_type")
)
