// Package mutationguard rejects record updates that cross tenants, touch
// fields the caller may not write, or target computed fields.
package mutationguard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/formula"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/relation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TenantMismatchError is returned when the payload names another tenant.
type TenantMismatchError struct {
	Requested string
}

func (e *TenantMismatchError) Error() string {
	return "cannot change tenant_id"
}

// PermissionError lists every field the caller is not allowed to write.
type PermissionError struct {
	Fields  []string
	Reasons map[string]string
	Denials []permission.FieldDenial
}

func (e *PermissionError) Error() string {
	return "permission denied: " + strings.Join(e.Fields, ", ")
}

// ComputedFieldWriteError lists formula and relation fields present in an update.
type ComputedFieldWriteError struct {
	Fields []string
}

func (e *ComputedFieldWriteError) Error() string {
	return "computed fields are read-only: " + strings.Join(e.Fields, ", ")
}

type Definitions interface {
	Definitions(ctx context.Context, tenantID snowflake.ID, entityType string) ([]cfdomain.CustomField, error)
}

type FormulaChecker interface {
	IsFormulaField(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) bool
}

type RelationChecker interface {
	IsRelationField(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) bool
}

type Params struct {
	fx.In

	Fields   cfdomain.Service
	Formula  *formula.Resolver
	Relation *relation.Resolver
	Log      *zap.Logger
}

type Guard struct {
	defs     Definitions
	formula  FormulaChecker
	relation RelationChecker
	log      *zap.Logger
}

func NewGuard(p Params) *Guard {
	return New(p.Fields, p.Formula, p.Relation, p.Log)
}

func New(defs Definitions, f FormulaChecker, r RelationChecker, log *zap.Logger) *Guard {
	return &Guard{defs: defs, formula: f, relation: r, log: log.Named("mutationguard")}
}

// Request describes one proposed update.
type Request struct {
	TenantID   snowflake.ID
	Role       permission.Role
	EntityType string
	Update     map[string]any
}

// Check runs the tenant, permission and computed field checks in that order.
// Each check reports every offending field rather than stopping at the first.
func (g *Guard) Check(ctx context.Context, req Request) error {
	if raw, ok := req.Update["tenant_id"]; ok && raw != nil {
		requested := strings.TrimSpace(fmt.Sprint(raw))
		if requested != req.TenantID.String() {
			return &TenantMismatchError{Requested: requested}
		}
	}

	defs, err := g.defs.Definitions(ctx, req.TenantID, req.EntityType)
	if err != nil {
		return err
	}
	configs := make(map[string]permission.FieldConfig, len(defs))
	for i := range defs {
		configs[defs[i].FieldName] = defs[i].PermissionConfig()
	}

	res := permission.ValidateUpdate(permission.UpdateContext{
		Role:         req.Role,
		EntityType:   req.EntityType,
		CustomFields: configs,
	}, req.Update)
	if !res.Valid {
		perr := &PermissionError{Reasons: map[string]string{}, Denials: res.ForbiddenFields}
		for _, d := range res.ForbiddenFields {
			if len(d.Nested) == 0 {
				perr.Fields = append(perr.Fields, d.Field)
				perr.Reasons[d.Field] = d.Reason
				continue
			}
			for _, n := range d.Nested {
				perr.Fields = append(perr.Fields, n.Field)
				perr.Reasons[n.Field] = n.Reason
			}
		}
		return perr
	}

	if computed := g.computedFields(ctx, req); len(computed) > 0 {
		return &ComputedFieldWriteError{Fields: computed}
	}
	return nil
}

func (g *Guard) computedFields(ctx context.Context, req Request) []string {
	var out []string
	check := func(key, name string) {
		if g.isComputed(ctx, req, name) {
			out = append(out, key)
		}
	}
	for key, value := range req.Update {
		switch {
		case key == permission.CustomFieldsKey:
			nested, ok := value.(map[string]any)
			if !ok {
				continue
			}
			for name := range nested {
				check(permission.CustomFieldsKey+"."+name, name)
			}
		case strings.HasPrefix(key, permission.CustomFieldsKey+"."):
			check(key, strings.TrimPrefix(key, permission.CustomFieldsKey+"."))
		default:
			check(key, key)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Guard) isComputed(ctx context.Context, req Request, name string) bool {
	if g.formula != nil && g.formula.IsFormulaField(ctx, req.TenantID, req.EntityType, name) {
		return true
	}
	return g.relation != nil && g.relation.IsRelationField(ctx, req.TenantID, req.EntityType, name)
}
