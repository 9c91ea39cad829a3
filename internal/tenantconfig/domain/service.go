package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type SetTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

type ProvisionRequest struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	TemplateID string `json:"template_id"`
}

type ProvisionResponse struct {
	Tenant       Tenant `json:"tenant"`
	Pipelines    int    `json:"pipelines"`
	CustomFields int    `json:"custom_fields"`
}

// Service loads and mutates tenant configuration. Mutations act on the tenant
// carried by ctx.
type Service interface {
	Load(ctx context.Context, tenantID snowflake.ID) (*TenantConfig, error)
	Settings(ctx context.Context) (TenantSettings, error)
	SetTemplate(ctx context.Context, req SetTemplateRequest) (TenantSettings, error)
	UpdateOverrides(ctx context.Context, patch Overrides) (TenantSettings, error)
	ClearTemplate(ctx context.Context) (TenantSettings, error)
	Provision(ctx context.Context, req ProvisionRequest) (ProvisionResponse, error)
}
