package formula

import (
	"context"

	"github.com/bwmarrin/snowflake"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Definitions is the custom field lookup the resolver reads from.
type Definitions interface {
	Definitions(ctx context.Context, tenantID snowflake.ID, entityType string) ([]cfdomain.CustomField, error)
}

type Params struct {
	fx.In

	Fields  cfdomain.Service
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Resolver struct {
	defs    Definitions
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewResolver(p Params) *Resolver {
	return New(p.Fields, p.Log, p.Metrics)
}

func New(defs Definitions, log *zap.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{defs: defs, log: log.Named("formula.resolver"), metrics: m}
}

// ResolveFormulaFields evaluates every formula field of entityType against
// rec. A failing formula yields null for that field and never fails the call.
func (r *Resolver) ResolveFormulaFields(ctx context.Context, tenantID snowflake.ID, entityType string, rec map[string]any) map[string]any {
	out := map[string]any{}
	fields, err := r.defs.Definitions(ctx, tenantID, entityType)
	if err != nil {
		r.log.Error("load formula fields failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("entity_type", entityType),
			zap.Error(err),
		)
		return out
	}

	for i := range fields {
		field := &fields[i]
		if !field.IsFormula() {
			continue
		}
		cfg, err := field.FormulaConfig()
		if err != nil {
			r.fail(ctx, tenantID, entityType, field.FieldName, err.Error())
			out[field.FieldName] = nil
			continue
		}
		res := EvaluateFormula(cfg, rec)
		if !res.Success {
			r.fail(ctx, tenantID, entityType, field.FieldName, res.Error)
			out[field.FieldName] = nil
			continue
		}
		out[field.FieldName] = res.Value
	}
	return out
}

// IsFormulaField reports whether fieldName is a formula field. Lookup errors
// report false.
func (r *Resolver) IsFormulaField(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) bool {
	fields, err := r.defs.Definitions(ctx, tenantID, entityType)
	if err != nil {
		return false
	}
	for i := range fields {
		if fields[i].FieldName == fieldName {
			return fields[i].IsFormula()
		}
	}
	return false
}

func (r *Resolver) fail(ctx context.Context, tenantID snowflake.ID, entityType, field, reason string) {
	r.log.Warn("formula evaluation failed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entity_type", entityType),
		zap.String("field", field),
		zap.String("error", reason),
	)
	r.metrics.RecordComputedFieldFailure(ctx, metrics.KindFormula)
}
