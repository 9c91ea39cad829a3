package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/automation"
	"github.com/smallbiznis/imobi360/internal/cache"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/event"
	"github.com/smallbiznis/imobi360/internal/observability"
	"github.com/smallbiznis/imobi360/internal/ratelimit"
	"github.com/smallbiznis/imobi360/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module, // single runner lock and per tenant throttle

		event.Module,
		automation.Module,
		automation.DispatcherModule,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
