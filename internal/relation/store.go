package relation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownEntity = errors.New("unknown_target_entity")

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var tables = map[string]string{
	"deal":       "deals",
	"deals":      "deals",
	"contact":    "contacts",
	"contacts":   "contacts",
	"lead":       "contacts",
	"leads":      "contacts",
	"activity":   "activities",
	"activities": "activities",
}

// TableFor maps an entity name to its table.
func TableFor(entity string) (string, error) {
	table, ok := tables[strings.ToLower(strings.TrimSpace(entity))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return table, nil
}

// Store reads related rows. Every query is tenant scoped.
type Store interface {
	// FindByID returns nil without error when no row matches.
	FindByID(ctx context.Context, tenantID snowflake.ID, entity string, id snowflake.ID) (map[string]any, error)
	FindByForeignKey(ctx context.Context, tenantID snowflake.ID, entity, foreignKey string, id snowflake.ID) ([]map[string]any, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByID(ctx context.Context, tenantID snowflake.ID, entity string, id snowflake.ID) (map[string]any, error) {
	table, err := TableFor(entity)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	err = s.db.WithContext(ctx).
		Table(table).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return normalizeRow(rows[0]), nil
	default:
		return nil, fmt.Errorf("multiple %s rows for id %s", table, id)
	}
}

func (s *GormStore) FindByForeignKey(ctx context.Context, tenantID snowflake.ID, entity, foreignKey string, id snowflake.ID) ([]map[string]any, error) {
	table, err := TableFor(entity)
	if err != nil {
		return nil, err
	}
	if !columnPattern.MatchString(foreignKey) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidForeignKey, foreignKey)
	}
	var rows []map[string]any
	err = s.db.WithContext(ctx).
		Table(table).
		Where("tenant_id = ?", tenantID).
		Where(clause.Eq{Column: clause.Column{Name: foreignKey}, Value: id}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = normalizeRow(rows[i])
	}
	return rows, nil
}

// normalizeRow renders identifiers as strings and decodes JSON columns so
// rows look like the records handed to the resolvers.
func normalizeRow(row map[string]any) map[string]any {
	for key, value := range row {
		switch typed := value.(type) {
		case []byte:
			value = string(typed)
			row[key] = value
		}
		if key == "id" || strings.HasSuffix(key, "_id") {
			if n, ok := value.(int64); ok {
				row[key] = snowflake.ID(n).String()
			}
			continue
		}
		if key == "custom_fields" {
			if s, ok := value.(string); ok {
				decoded := map[string]any{}
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					row[key] = decoded
				}
			}
		}
	}
	return row
}
