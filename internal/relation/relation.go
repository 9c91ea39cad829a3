package relation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/expression"
	"github.com/smallbiznis/imobi360/internal/record"
)

var (
	ErrRecordNotFound    = errors.New("related_record_not_found")
	ErrInvalidForeignKey = errors.New("invalid_foreign_key")
)

// Result is the outcome of resolving one relation.
type Result struct {
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

// ValidateRelationConfig reports configuration errors before any query runs.
func ValidateRelationConfig(cfg cfdomain.RelationConfig) error {
	return cfg.Validate()
}

// Resolve computes the value of one relation for rec. A many_to_one relation
// whose foreign key is unset resolves to null; one whose target row is
// missing fails.
func Resolve(ctx context.Context, store Store, cfg cfdomain.RelationConfig, tenantID snowflake.ID, rec map[string]any) Result {
	if err := ValidateRelationConfig(cfg); err != nil {
		return failure(err)
	}

	switch cfg.RelationType {
	case cfdomain.RelationManyToOne:
		raw := rec[cfg.ForeignKey]
		if isBlank(raw) {
			return Result{Success: true}
		}
		id, err := toID(raw)
		if err != nil {
			return failure(err)
		}
		row, err := store.FindByID(ctx, tenantID, cfg.TargetEntity, id)
		if err != nil {
			return failure(err)
		}
		if row == nil {
			return failure(ErrRecordNotFound)
		}
		if cfg.LookupField != "" {
			return Result{Success: true, Value: record.Value(row, cfg.LookupField)}
		}
		return Result{Success: true, Value: row}

	default:
		id, err := toID(rec["id"])
		if err != nil {
			return failure(err)
		}
		rows, err := store.FindByForeignKey(ctx, tenantID, cfg.TargetEntity, cfg.ForeignKey, id)
		if err != nil {
			return failure(err)
		}
		if cfg.Rollup == nil {
			return Result{Success: true, Value: float64(len(rows))}
		}
		return Result{Success: true, Value: PerformRollup(rows, cfg.Rollup.Operation, cfg.Rollup.SourceField)}
	}
}

// PerformRollup aggregates sourceField over rows. Empty input yields 0 for
// count and null for every other operation. sum and avg count non numeric
// values as 0; min and max skip them.
func PerformRollup(rows []map[string]any, operation, sourceField string) any {
	if len(rows) == 0 {
		if operation == cfdomain.RollupCount {
			return 0.0
		}
		return nil
	}

	switch operation {
	case cfdomain.RollupCount:
		return float64(len(rows))
	case cfdomain.RollupSum, cfdomain.RollupAvg:
		if sourceField == "" {
			return nil
		}
		sum := 0.0
		for _, row := range rows {
			if f, ok := numeric(row, sourceField); ok {
				sum += f
			}
		}
		if operation == cfdomain.RollupAvg {
			return sum / float64(len(rows))
		}
		return sum
	case cfdomain.RollupMin, cfdomain.RollupMax:
		if sourceField == "" {
			return nil
		}
		var (
			best  float64
			found bool
		)
		for _, row := range rows {
			f, ok := numeric(row, sourceField)
			if !ok {
				continue
			}
			switch {
			case !found:
				best, found = f, true
			case operation == cfdomain.RollupMin && f < best:
				best = f
			case operation == cfdomain.RollupMax && f > best:
				best = f
			}
		}
		if !found {
			return nil
		}
		return best
	default:
		return nil
	}
}

func numeric(row map[string]any, field string) (float64, bool) {
	v, ok := record.GetPath(row, field)
	if !ok {
		return 0, false
	}
	f := expression.ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func toID(v any) (snowflake.ID, error) {
	switch t := v.(type) {
	case snowflake.ID:
		if t != 0 {
			return t, nil
		}
	case int64:
		if t != 0 {
			return snowflake.ID(t), nil
		}
	case float64:
		if t > 0 && t == math.Trunc(t) {
			return snowflake.ID(int64(t)), nil
		}
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil && id != 0 {
			return snowflake.ID(id), nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidForeignKey, v)
}
