package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smallbiznis/imobi360/internal/cache"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/migration"
	"github.com/smallbiznis/imobi360/internal/observability"
	"github.com/smallbiznis/imobi360/internal/server"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/smallbiznis/imobi360/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var provisionReq tenantdomain.ProvisionRequest

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create a tenant and seed it from a template",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp tenantdomain.ProvisionResponse
		app := fx.New(
			fx.NopLogger,
			config.Module,
			observability.Module,
			fx.Provide(RegisterSnowflake),
			db.Module,
			clock.Module,
			cache.Module,
			server.Module,
			migration.Module,
			fx.Invoke(func(tenants tenantdomain.Service) error {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				out, err := tenants.Provision(ctx, provisionReq)
				if err != nil {
					return err
				}
				resp = out
				return nil
			}),
		)
		if err := app.Err(); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	tenantsProvisionCmd.Flags().StringVar(&provisionReq.Name, "name", "", "tenant display name")
	tenantsProvisionCmd.Flags().StringVar(&provisionReq.Slug, "slug", "", "tenant slug, derived from the name when empty")
	tenantsProvisionCmd.Flags().StringVar(&provisionReq.TemplateID, "template", "", "template id, the configured default when empty")
	_ = tenantsProvisionCmd.MarkFlagRequired("name")
	tenantsCmd.AddCommand(tenantsProvisionCmd)
}
