package automation

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/imobi360/internal/config"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	"github.com/smallbiznis/imobi360/internal/observability/metrics"
	"github.com/smallbiznis/imobi360/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	dispatcherLockKey = "automation:dispatcher"
	tenantBucketKey   = "automation:tenant:"
	defaultBatchSize  = 100
)

type DispatcherParams struct {
	fx.In

	Config  config.Config
	Events  eventdomain.Service
	Client  *Client
	Log     *zap.Logger
	Locker  *ratelimit.Locker      `optional:"true"`
	Bucket  *ratelimit.TokenBucket `optional:"true"`
	Metrics *metrics.Metrics       `optional:"true"`
}

// Dispatcher drains unprocessed events to the automation runner.
type Dispatcher struct {
	cfg     config.DispatcherConfig
	events  eventdomain.Service
	client  *Client
	log     *zap.Logger
	locker  *ratelimit.Locker
	bucket  *ratelimit.TokenBucket
	metrics *metrics.Metrics
}

// Summary counts what one pass did.
type Summary struct {
	Skipped   bool
	Fetched   int
	Delivered int
	Rejected  int
	Failed    int
	Throttled int
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	cfg := p.Config.Dispatcher
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		events:  p.Events,
		client:  p.Client,
		log:     p.Log.Named("automation.dispatcher"),
		locker:  p.Locker,
		bucket:  p.Bucket,
		metrics: p.Metrics,
	}
}

// RunOnce delivers one batch of unprocessed events, oldest first. Events
// that fail with a retryable status stay unprocessed for the next pass.
func (d *Dispatcher) RunOnce(ctx context.Context) (Summary, error) {
	settings := d.client.Settings()
	if !settings.Enabled || settings.WebhookURL == "" {
		d.metrics.RecordDispatch(ctx, metrics.ResultSkipped)
		return Summary{Skipped: true}, nil
	}

	var lease *ratelimit.Lease
	if d.locker != nil {
		var err error
		lease, err = d.locker.Acquire(ctx, dispatcherLockKey, d.cfg.LockTTL)
		if errors.Is(err, ratelimit.ErrLockHeld) {
			d.log.Debug("dispatcher lock held elsewhere")
			return Summary{Skipped: true}, nil
		}
		if err != nil {
			return Summary{}, err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				d.log.Warn("failed to release dispatcher lock", zap.Error(err))
			}
		}()
	}
	leasedAt := time.Now()

	events, err := d.events.Unprocessed(ctx, d.cfg.BatchSize)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Fetched: len(events)}
	var errs error
	for _, event := range events {
		if ctx.Err() != nil {
			return summary, errors.Join(errs, ctx.Err())
		}
		if lease != nil && time.Since(leasedAt) > d.cfg.LockTTL/2 {
			if err := lease.Extend(ctx, d.cfg.LockTTL); err != nil {
				d.log.Warn("dispatcher lock lost mid batch", zap.Error(err))
				return summary, errors.Join(errs, err)
			}
			leasedAt = time.Now()
		}
		if !d.allow(ctx, event) {
			summary.Throttled++
			continue
		}

		delivery, err := d.client.Send(ctx, "", PayloadFromEvent(event))
		log := d.log.With(
			zap.String("event_id", event.ID.String()),
			zap.String("delivery_id", delivery.ID),
			zap.Int("status", delivery.StatusCode),
		)
		if err != nil {
			summary.Failed++
			d.metrics.RecordDispatch(ctx, metrics.ResultFailure)
			log.Warn("automation delivery failed", zap.Error(err))
			continue
		}

		switch delivery.Outcome {
		case OutcomeDelivered:
			summary.Delivered++
			d.metrics.RecordDispatch(ctx, metrics.ResultSuccess)
		case OutcomeRejected:
			summary.Rejected++
			d.metrics.RecordDispatch(ctx, metrics.ResultFailure)
			log.Warn("automation runner rejected event")
		default:
			summary.Failed++
			d.metrics.RecordDispatch(ctx, metrics.ResultFailure)
			log.Warn("automation delivery will be retried")
			continue
		}

		if err := d.events.MarkProcessed(ctx, event.ID); err != nil {
			errs = errors.Join(errs, err)
			log.Error("failed to mark event processed", zap.Error(err))
		}
	}

	d.log.Info("dispatch pass finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("delivered", summary.Delivered),
		zap.Int("rejected", summary.Rejected),
		zap.Int("failed", summary.Failed),
		zap.Int("throttled", summary.Throttled),
	)
	return summary, errs
}

func (d *Dispatcher) allow(ctx context.Context, event eventdomain.Event) bool {
	if d.bucket == nil || d.cfg.TenantRatePerSec <= 0 {
		return true
	}
	res, err := d.bucket.Allow(ctx, tenantBucketKey+event.TenantID.String(), float64(d.cfg.TenantRatePerSec), int(d.cfg.TenantBurst))
	if err != nil {
		d.log.Warn("tenant throttle unavailable", zap.Error(err))
		return true
	}
	return res.Allowed
}
