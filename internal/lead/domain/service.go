package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
)

type CreateRequest struct {
	Name         string         `json:"name"`
	Email        *string        `json:"email"`
	Phone        *string        `json:"phone"`
	Source       *string        `json:"source"`
	Status       string         `json:"status"`
	AssignedTo   *string        `json:"assigned_to"`
	CustomFields map[string]any `json:"custom_fields"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string
	Source     string
	AssignedTo string
}

type ListResponse struct {
	pagination.PageInfo
	Leads []Lead `json:"leads"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Lead, error)
	Get(ctx context.Context, id snowflake.ID) (*Lead, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, patch map[string]any) (*Lead, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidValue        = errors.New("invalid_value")
	ErrInvalidCustomFields = errors.New("invalid_custom_fields")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrTypeImmutable       = errors.New("lead_type_immutable")
	ErrNotFound            = errors.New("lead_not_found")
)
