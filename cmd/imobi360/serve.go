package main

import (
	"github.com/smallbiznis/imobi360/internal/automation"
	"github.com/smallbiznis/imobi360/internal/cache"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/migration"
	"github.com/smallbiznis/imobi360/internal/observability"
	"github.com/smallbiznis/imobi360/internal/ratelimit"
	"github.com/smallbiznis/imobi360/internal/server"
	"github.com/smallbiznis/imobi360/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveWithoutDispatcher bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the automation dispatcher in one process",
	Run: func(cmd *cobra.Command, args []string) {
		opts := []fx.Option{
			config.Module,
			observability.Module,
			fx.Provide(RegisterSnowflake),
			db.Module,
			clock.Module,
			cache.Module,
			ratelimit.Module,
			server.Module,
			migration.Module,

			fx.Provide(server.NewEngine),
			fx.Provide(server.NewServer),
			fx.Invoke(func(s *server.Server) {
				s.RegisterAPIRoutes()
				s.RegisterWebhookRoutes()
				s.RegisterFallback()
			}),
			fx.Invoke(server.RunHTTP),
		}
		if !serveWithoutDispatcher {
			opts = append(opts, automation.DispatcherModule)
		}
		fx.New(opts...).Run()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithoutDispatcher, "no-dispatcher", false, "do not schedule the automation dispatcher in this process")
}
