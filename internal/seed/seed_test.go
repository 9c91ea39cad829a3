package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenants struct {
	tenantdomain.Service
	requests []tenantdomain.ProvisionRequest
	err      error
}

func (f *fakeTenants) Provision(ctx context.Context, req tenantdomain.ProvisionRequest) (tenantdomain.ProvisionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return tenantdomain.ProvisionResponse{}, f.err
	}
	return tenantdomain.ProvisionResponse{Tenant: tenantdomain.Tenant{ID: snowflake.ID(1), Slug: req.Slug}}, nil
}

func TestEnsureDefaultTenant(t *testing.T) {
	tenants := &fakeTenants{}
	require.NoError(t, EnsureDefaultTenant(context.Background(), tenants, "imobi360", nil))

	require.Len(t, tenants.requests, 1)
	assert.Equal(t, tenantdomain.ProvisionRequest{Name: "Main", Slug: "main", TemplateID: "imobi360"}, tenants.requests[0])
}

func TestEnsureDefaultTenantIsIdempotent(t *testing.T) {
	tenants := &fakeTenants{err: tenantdomain.ErrSlugTaken}
	assert.NoError(t, EnsureDefaultTenant(context.Background(), tenants, "imobi360", nil))

	tenants.err = errors.New("boom")
	assert.EqualError(t, EnsureDefaultTenant(context.Background(), tenants, "imobi360", nil), "boom")
}
