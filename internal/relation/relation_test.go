package relation

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tenantID = snowflake.ID(1)

func seedStore(t *testing.T) *gorm.DB {
	t.Helper()
	db := dbtest.New(t)
	require.NoError(t, db.Exec(`CREATE TABLE contacts (id INTEGER PRIMARY KEY, tenant_id INTEGER NOT NULL, name TEXT, type TEXT, custom_fields TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE deals (id INTEGER PRIMARY KEY, tenant_id INTEGER NOT NULL, title TEXT, value REAL, contact_id INTEGER)`).Error)

	require.NoError(t, db.Exec(`INSERT INTO contacts (id, tenant_id, name, type, custom_fields) VALUES (10, 1, 'Ana', 'lead', '{"score": 7}'), (11, 2, 'Other tenant', 'lead', '{}')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO deals (id, tenant_id, title, value, contact_id) VALUES
		(100, 1, 'Casa', 300000, 10),
		(101, 1, 'Apto', 200000, 10),
		(102, 1, 'Sem valor', NULL, 10),
		(103, 2, 'Foreign', 999, 10)`).Error)
	return db
}

func TestPerformRollupEmpty(t *testing.T) {
	assert.Equal(t, 0.0, PerformRollup(nil, "count", ""))
	assert.Nil(t, PerformRollup(nil, "sum", "value"))
	assert.Nil(t, PerformRollup(nil, "avg", "value"))
	assert.Nil(t, PerformRollup([]map[string]any{}, "min", "value"))
}

func TestPerformRollup(t *testing.T) {
	rows := []map[string]any{
		{"value": 10.0},
		{"value": "30"},
		{"value": "n/a"},
		{},
	}
	assert.Equal(t, 4.0, PerformRollup(rows, "count", ""))
	assert.Equal(t, 40.0, PerformRollup(rows, "sum", "value"))
	assert.Equal(t, 10.0, PerformRollup(rows, "avg", "value"))
	assert.Equal(t, 10.0, PerformRollup(rows, "min", "value"))
	assert.Equal(t, 30.0, PerformRollup(rows, "max", "value"))
	assert.Nil(t, PerformRollup([]map[string]any{{"value": "x"}}, "max", "value"))
	assert.Nil(t, PerformRollup(rows, "median", "value"))
}

func TestManyToOneLookup(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(seedStore(t))
	cfg := cfdomain.RelationConfig{TargetEntity: "contact", RelationType: "many_to_one", ForeignKey: "contact_id", LookupField: "name"}

	res := Resolve(ctx, store, cfg, tenantID, map[string]any{"contact_id": "10"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Ana", res.Value)

	res = Resolve(ctx, store, cfg, tenantID, map[string]any{"contact_id": nil})
	assert.True(t, res.Success)
	assert.Nil(t, res.Value)

	res = Resolve(ctx, store, cfg, tenantID, map[string]any{"contact_id": "999"})
	assert.False(t, res.Success)

	res = Resolve(ctx, store, cfg, tenantID, map[string]any{"contact_id": "11"})
	assert.False(t, res.Success, "rows of other tenants are invisible")
}

func TestManyToOneWholeRowAndNestedLookup(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(seedStore(t))

	res := Resolve(ctx, store, cfdomain.RelationConfig{TargetEntity: "contacts", RelationType: "many_to_one", ForeignKey: "contact_id"},
		tenantID, map[string]any{"contact_id": "10"})
	require.True(t, res.Success, res.Error)
	row, ok := res.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10", row["id"])

	res = Resolve(ctx, store, cfdomain.RelationConfig{TargetEntity: "contact", RelationType: "many_to_one", ForeignKey: "contact_id", LookupField: "custom_fields.score"},
		tenantID, map[string]any{"contact_id": "10"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 7.0, res.Value)
}

func TestOneToManyRollup(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(seedStore(t))
	contact := map[string]any{"id": "10"}

	res := Resolve(ctx, store, cfdomain.RelationConfig{TargetEntity: "deals", RelationType: "one_to_many", ForeignKey: "contact_id"}, tenantID, contact)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3.0, res.Value)

	res = Resolve(ctx, store, cfdomain.RelationConfig{
		TargetEntity: "deals", RelationType: "one_to_many", ForeignKey: "contact_id",
		Rollup: &cfdomain.Rollup{Operation: "sum", SourceField: "value"},
	}, tenantID, contact)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 500000.0, res.Value)

	res = Resolve(ctx, store, cfdomain.RelationConfig{
		TargetEntity: "deals", RelationType: "one_to_many", ForeignKey: "contact_id",
		Rollup: &cfdomain.Rollup{Operation: "avg", SourceField: "value"},
	}, tenantID, map[string]any{"id": "12345"})
	require.True(t, res.Success, res.Error)
	assert.Nil(t, res.Value)
}

func TestInvalidConfigFailsBeforeQuery(t *testing.T) {
	res := Resolve(context.Background(), nil, cfdomain.RelationConfig{RelationType: "many_to_one"}, tenantID, nil)
	assert.False(t, res.Success)

	res = Resolve(context.Background(), NewGormStore(seedStore(t)), cfdomain.RelationConfig{TargetEntity: "invoices", RelationType: "many_to_one", ForeignKey: "x"}, tenantID, map[string]any{"x": "1"})
	assert.False(t, res.Success)
}

type staticDefs []cfdomain.CustomField

func (s staticDefs) Definitions(context.Context, snowflake.ID, string) ([]cfdomain.CustomField, error) {
	return s, nil
}

func TestResolveRelationFieldsIsolatesFailures(t *testing.T) {
	store := NewGormStore(seedStore(t))
	defs := staticDefs{
		{FieldName: "deal_count", FieldType: "number", Options: map[string]any{
			"kind": "relation", "target_entity": "deals", "relation_type": "one_to_many", "foreign_key": "contact_id",
			"rollup": map[string]any{"operation": "count"},
		}},
		{FieldName: "broken", FieldType: "number", Options: map[string]any{
			"kind": "relation", "target_entity": "invoices", "relation_type": "one_to_many", "foreign_key": "contact_id",
		}},
		{FieldName: "plain", FieldType: "text"},
	}
	r := New(defs, store, zap.NewNop(), nil)

	out := r.ResolveRelationFields(context.Background(), tenantID, "contact", map[string]any{"id": "10"})
	assert.Equal(t, 3.0, out["deal_count"])
	v, ok := out["broken"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, out, "plain")

	assert.True(t, r.IsRelationField(context.Background(), tenantID, "contact", "deal_count"))
	assert.False(t, r.IsRelationField(context.Background(), tenantID, "contact", "plain"))
}
