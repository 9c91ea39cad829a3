package relation

import (
	"context"

	"github.com/bwmarrin/snowflake"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Definitions interface {
	Definitions(ctx context.Context, tenantID snowflake.ID, entityType string) ([]cfdomain.CustomField, error)
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Fields  cfdomain.Service
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Resolver struct {
	defs    Definitions
	store   Store
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewResolver(p Params) *Resolver {
	return New(p.Fields, NewGormStore(p.DB), p.Log, p.Metrics)
}

func New(defs Definitions, store Store, log *zap.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{defs: defs, store: store, log: log.Named("relation.resolver"), metrics: m}
}

func (r *Resolver) Resolve(ctx context.Context, cfg cfdomain.RelationConfig, tenantID snowflake.ID, rec map[string]any) Result {
	return Resolve(ctx, r.store, cfg, tenantID, rec)
}

// ResolveRelationFields resolves every relation field of entityType for rec.
// Fields fail independently: a failing field is null and logged.
func (r *Resolver) ResolveRelationFields(ctx context.Context, tenantID snowflake.ID, entityType string, rec map[string]any) map[string]any {
	out := map[string]any{}
	fields, err := r.defs.Definitions(ctx, tenantID, entityType)
	if err != nil {
		r.log.Error("load relation fields failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
		return out
	}

	for i := range fields {
		field := &fields[i]
		if !field.IsRelation() {
			continue
		}
		cfg, err := field.RelationConfig()
		if err != nil {
			r.fail(ctx, tenantID, entityType, field.FieldName, err.Error())
			out[field.FieldName] = nil
			continue
		}
		res := r.Resolve(ctx, cfg, tenantID, rec)
		if !res.Success {
			r.fail(ctx, tenantID, entityType, field.FieldName, res.Error)
			out[field.FieldName] = nil
			continue
		}
		out[field.FieldName] = res.Value
	}
	return out
}

func (r *Resolver) IsRelationField(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) bool {
	fields, err := r.defs.Definitions(ctx, tenantID, entityType)
	if err != nil {
		return false
	}
	for i := range fields {
		if fields[i].FieldName == fieldName {
			return fields[i].IsRelation()
		}
	}
	return false
}

func (r *Resolver) fail(ctx context.Context, tenantID snowflake.ID, entityType, field, reason string) {
	r.log.Warn("relation resolution failed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entity_type", entityType),
		zap.String("field", field),
		zap.String("error", reason),
	)
	r.metrics.RecordComputedFieldFailure(ctx, metrics.KindRelation)
}
