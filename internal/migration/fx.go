package migration

import (
	"context"

	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/seed"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, tenants tenantdomain.Service, log *zap.Logger) error {
		if err := Run(conn); err != nil {
			return err
		}
		log.Info("database schema up to date")

		if !cfg.SeedDefaultTenant {
			return nil
		}
		return seed.EnsureDefaultTenant(context.Background(), tenants, cfg.DefaultTemplateID, log)
	}),
)
