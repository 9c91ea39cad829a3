// Command api serves the CRM HTTP API without the automation dispatcher.
// Run apps/dispatcher next to it, or use `imobi360 serve` for both.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/cache"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/migration"
	"github.com/smallbiznis/imobi360/internal/observability"
	"github.com/smallbiznis/imobi360/internal/server"
	"github.com/smallbiznis/imobi360/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,

		server.Module,
		migration.Module,

		fx.Provide(server.NewEngine, server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
			s.RegisterWebhookRoutes()
			s.RegisterFallback()
		}),
		fx.Invoke(server.RunHTTP),
	).Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
