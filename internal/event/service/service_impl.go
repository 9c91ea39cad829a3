package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/event/domain"
	"github.com/smallbiznis/imobi360/internal/observability/logger"
	"github.com/smallbiznis/imobi360/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const asyncEmitTimeout = 5 * time.Second

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func New(p Params) domain.Service {
	svc := &Service{
		db:      p.DB,
		log:     p.Log.Named("event.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				svc.Wait()
				return nil
			},
		})
	}
	return svc
}

func (s *Service) Emit(ctx context.Context, req domain.EmitRequest) (snowflake.ID, error) {
	if req.TenantID == 0 {
		return 0, domain.ErrInvalidTenant
	}
	entityType := strings.TrimSpace(req.EntityType)
	if entityType == "" || req.EntityID == 0 {
		return 0, domain.ErrInvalidEntity
	}
	if !domain.ValidType(req.EventType) {
		return 0, domain.ErrInvalidEventType
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	event := domain.Event{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EntityType: entityType,
		EntityID:   req.EntityID,
		EventType:  req.EventType,
		Payload:    datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		s.metrics.RecordEventEmitted(ctx, req.EventType, metrics.ResultFailure)
		return 0, err
	}
	s.metrics.RecordEventEmitted(ctx, req.EventType, metrics.ResultSuccess)
	return event.ID, nil
}

func (s *Service) EmitAsync(ctx context.Context, req domain.EmitRequest) {
	log := logger.WithContext(ctx, s.log)
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(detached, asyncEmitTimeout)
		defer cancel()

		id, err := s.Emit(ctx, req)
		if err != nil {
			log.Warn("event emission failed",
				zap.String("event_type", req.EventType),
				zap.String("entity_type", req.EntityType),
				zap.String("entity_id", req.EntityID.String()),
				zap.Error(err),
			)
			return
		}
		log.Debug("event emitted",
			zap.String("event_id", id.String()),
			zap.String("event_type", req.EventType),
		)
	}()
}

func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Unprocessed(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	items, err := s.repo.ListUnprocessed(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) MarkProcessed(ctx context.Context, id snowflake.ID) error {
	return s.repo.MarkProcessed(ctx, s.db, id, s.clock.Now())
}

func (s *Service) ListForEntity(ctx context.Context, tenantID snowflake.ID, entityType string, entityID snowflake.ID, limit int) ([]domain.Event, error) {
	items, err := s.repo.ListForEntity(ctx, s.db, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func deref(items []*domain.Event) []domain.Event {
	out := make([]domain.Event, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
