package seed

import (
	"context"
	"errors"

	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"go.uber.org/zap"
)

const (
	DefaultTenantName = "Main"
	DefaultTenantSlug = "main"
)

// EnsureDefaultTenant provisions the bootstrap tenant from templateID. An
// existing tenant with the default slug is left as is.
func EnsureDefaultTenant(ctx context.Context, tenants tenantdomain.Service, templateID string, log *zap.Logger) error {
	if tenants == nil {
		return errors.New("seed tenant service is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	resp, err := tenants.Provision(ctx, tenantdomain.ProvisionRequest{
		Name:       DefaultTenantName,
		Slug:       DefaultTenantSlug,
		TemplateID: templateID,
	})
	if errors.Is(err, tenantdomain.ErrSlugTaken) {
		log.Debug("default tenant already provisioned")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info("default tenant provisioned",
		zap.String("tenant_id", resp.Tenant.ID.String()),
		zap.String("template_id", templateID),
		zap.Int("pipelines", resp.Pipelines),
		zap.Int("custom_fields", resp.CustomFields),
	)
	return nil
}
