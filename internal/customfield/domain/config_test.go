package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  RelationConfig
		ok   bool
	}{
		{"lookup", RelationConfig{TargetEntity: "contacts", RelationType: RelationManyToOne, ForeignKey: "contact_id", LookupField: "name"}, true},
		{"count without source", RelationConfig{TargetEntity: "deals", RelationType: RelationOneToMany, ForeignKey: "contact_id", Rollup: &Rollup{Operation: RollupCount}}, true},
		{"plain one to many", RelationConfig{TargetEntity: "deals", RelationType: RelationOneToMany, ForeignKey: "contact_id"}, true},
		{"missing target", RelationConfig{RelationType: RelationManyToOne, ForeignKey: "contact_id"}, false},
		{"missing foreign key", RelationConfig{TargetEntity: "contacts", RelationType: RelationManyToOne}, false},
		{"unknown type", RelationConfig{TargetEntity: "contacts", RelationType: "many_to_many", ForeignKey: "x"}, false},
		{"lookup on one to many", RelationConfig{TargetEntity: "deals", RelationType: RelationOneToMany, ForeignKey: "contact_id", LookupField: "title"}, false},
		{"rollup on many to one", RelationConfig{TargetEntity: "contacts", RelationType: RelationManyToOne, ForeignKey: "contact_id", Rollup: &Rollup{Operation: RollupCount}}, false},
		{"sum without source", RelationConfig{TargetEntity: "deals", RelationType: RelationOneToMany, ForeignKey: "contact_id", Rollup: &Rollup{Operation: RollupSum}}, false},
		{"unknown operation", RelationConfig{TargetEntity: "deals", RelationType: RelationOneToMany, ForeignKey: "contact_id", Rollup: &Rollup{Operation: "median", SourceField: "value"}}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidRelationConfig, tc.name)
		}
	}
}

func TestKindDetection(t *testing.T) {
	formula := CustomField{FieldType: TypeNumber, Options: map[string]any{"kind": "formula"}}
	assert.True(t, formula.IsFormula())
	assert.True(t, formula.IsComputed())

	button := CustomField{FieldType: TypeButton, Options: map[string]any{"action": "event"}}
	assert.True(t, button.IsAction())
	assert.False(t, button.IsComputed())

	plain := CustomField{FieldType: TypeText}
	assert.Equal(t, "", plain.Kind())
}

func TestDecodeFormulaConfig(t *testing.T) {
	field := CustomField{
		FieldName: "tier",
		FieldType: TypeText,
		Options: map[string]any{
			"kind":         "formula",
			"expression":   "IF(value>=100,'high','low')",
			"dependencies": []any{"value"},
			"return_type":  "string",
		},
	}
	cfg, err := field.FormulaConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, cfg.Dependencies)
	assert.NoError(t, cfg.Validate())

	_, err = field.RelationConfig()
	assert.ErrorIs(t, err, ErrInvalidRelationConfig)
}
