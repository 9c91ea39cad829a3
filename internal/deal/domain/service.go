package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
)

type CreateRequest struct {
	Title             string         `json:"title"`
	PipelineID        *snowflake.ID  `json:"pipeline_id"`
	StageID           *snowflake.ID  `json:"stage_id"`
	ContactID         *snowflake.ID  `json:"contact_id"`
	Value             *float64       `json:"value"`
	Status            string         `json:"status"`
	AssignedTo        *string        `json:"assigned_to"`
	ExpectedCloseDate *string        `json:"expected_close_date"`
	CustomFields      map[string]any `json:"custom_fields"`
}

type ListRequest struct {
	pagination.Pagination
	PipelineID *snowflake.ID
	StageID    *snowflake.ID
	ContactID  *snowflake.ID
	Status     string
}

type ListResponse struct {
	pagination.PageInfo
	Deals []Deal `json:"deals"`
}

// Board is the kanban view of one pipeline: every stage in position order
// with its deals, newest first.
type Board struct {
	PipelineID snowflake.ID `json:"pipeline_id"`
	Stages     []BoardStage `json:"stages"`
}

type BoardStage struct {
	ID       snowflake.ID `json:"id"`
	Name     string       `json:"name"`
	Color    string       `json:"color"`
	Position int          `json:"position"`
	IsWon    bool         `json:"is_won"`
	IsLost   bool         `json:"is_lost"`
	Deals    []Deal       `json:"deals"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Deal, error)
	// Get returns the deal with its formula and relation fields resolved.
	Get(ctx context.Context, id snowflake.ID) (*Deal, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Board groups the deals of a pipeline by stage. A nil pipelineID selects
	// the default deal pipeline.
	Board(ctx context.Context, pipelineID *snowflake.ID) (*Board, error)
	// Update applies a partial update after the mutation guard accepts it.
	Update(ctx context.Context, id snowflake.ID, patch map[string]any) (*Deal, error)
	MoveStage(ctx context.Context, id snowflake.ID, stageID snowflake.ID) (*Deal, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidValue        = errors.New("invalid_value")
	ErrInvalidCloseDate    = errors.New("invalid_expected_close_date")
	ErrInvalidClosedAt     = errors.New("invalid_closed_at")
	ErrInvalidCustomFields = errors.New("invalid_custom_fields")
	ErrInvalidPipeline     = errors.New("invalid_pipeline_id")
	ErrInvalidStage        = errors.New("invalid_stage_id")
	ErrStageNotInPipeline  = errors.New("stage_not_in_pipeline")
	ErrStatusFromStage     = errors.New("status_requires_terminal_stage")
	ErrNoDefaultPipeline   = errors.New("no_default_pipeline")
	ErrPipelineHasNoStages = errors.New("pipeline_has_no_stages")
	ErrContactNotFound     = errors.New("invalid_contact_id")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("deal_not_found")
)
