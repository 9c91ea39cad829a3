package automation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("automation",
	fx.Provide(NewClient),
	fx.Provide(NewDispatcher),
)

// DispatcherModule schedules the dispatcher on the configured cron spec.
var DispatcherModule = fx.Module("automation.dispatcher",
	fx.Invoke(Schedule),
)

func Schedule(lc fx.Lifecycle, d *Dispatcher, log *zap.Logger) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := c.AddFunc(d.cfg.Schedule, func() {
		runCtx, done := context.WithTimeout(ctx, time.Minute)
		defer done()
		if _, err := d.RunOnce(runCtx); err != nil {
			log.Warn("dispatch pass failed", zap.Error(err))
		}
	})
	if err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return nil
}
