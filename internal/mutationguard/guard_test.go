package mutationguard

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/formula"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/relation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticDefs []cfdomain.CustomField

func (s staticDefs) Definitions(context.Context, snowflake.ID, string) ([]cfdomain.CustomField, error) {
	return s, nil
}

func newGuard(fields ...cfdomain.CustomField) *Guard {
	defs := staticDefs(fields)
	log := zap.NewNop()
	return New(defs, formula.New(defs, log, nil), relation.New(defs, nil, log, nil), log)
}

var testFields = []cfdomain.CustomField{
	{FieldName: "commission_rate", FieldType: cfdomain.TypeNumber, Options: map[string]any{"required_role": "manager"}},
	{FieldName: "notes", FieldType: cfdomain.TypeText},
	{FieldName: "total", FieldType: cfdomain.TypeNumber, Options: map[string]any{
		"kind": "formula", "expression": "value * 2", "return_type": "number",
	}},
	{FieldName: "deal_count", FieldType: cfdomain.TypeNumber, Options: map[string]any{
		"kind": "relation", "target_entity": "deals", "relation_type": "one_to_many", "foreign_key": "contact_id",
	}},
}

func TestTenantMismatchComesFirst(t *testing.T) {
	g := newGuard(testFields...)
	err := g.Check(context.Background(), Request{
		TenantID:   snowflake.ID(1),
		Role:       permission.RoleViewer,
		EntityType: permission.EntityDeal,
		Update:     map[string]any{"tenant_id": "2", "title": "x"},
	})
	var mismatch *TenantMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "2", mismatch.Requested)
}

func TestPermissionErrorListsEveryField(t *testing.T) {
	g := newGuard(testFields...)
	err := g.Check(context.Background(), Request{
		TenantID:   snowflake.ID(1),
		Role:       permission.RoleMember,
		EntityType: permission.EntityDeal,
		Update: map[string]any{
			"title":  "ok",
			"status": "won",
			"id":     "9",
			"custom_fields": map[string]any{
				"commission_rate": 5,
				"notes":           "fine",
			},
		},
	})
	var perr *PermissionError
	require.True(t, errors.As(err, &perr))
	assert.ElementsMatch(t, []string{"custom_fields.commission_rate", "id", "status"}, perr.Fields)
	assert.Equal(t, "field requires manager role or higher", perr.Reasons["custom_fields.commission_rate"])
	assert.Equal(t, permission.ReasonSystemField, perr.Reasons["id"])
}

func TestComputedFieldsRejectedAfterPermissions(t *testing.T) {
	g := newGuard(testFields...)
	err := g.Check(context.Background(), Request{
		TenantID:   snowflake.ID(1),
		Role:       permission.RoleManager,
		EntityType: permission.EntityDeal,
		Update: map[string]any{
			"total":         10,
			"title":         "x",
			"custom_fields": map[string]any{"deal_count": 3, "notes": "ok"},
		},
	})
	var cerr *ComputedFieldWriteError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"custom_fields.deal_count", "total"}, cerr.Fields)
}

func TestAllowedUpdatePasses(t *testing.T) {
	g := newGuard(testFields...)
	err := g.Check(context.Background(), Request{
		TenantID:   snowflake.ID(1),
		Role:       permission.RoleMember,
		EntityType: permission.EntityDeal,
		Update: map[string]any{
			"title":         "New title",
			"value":         1500,
			"custom_fields": map[string]any{"notes": "call back"},
		},
	})
	assert.NoError(t, err)
}

func TestSameTenantStillLocked(t *testing.T) {
	g := newGuard()
	err := g.Check(context.Background(), Request{
		TenantID:   snowflake.ID(7),
		Role:       permission.RoleAdmin,
		EntityType: permission.EntityDeal,
		Update:     map[string]any{"tenant_id": "7"},
	})
	var perr *PermissionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"tenant_id"}, perr.Fields)
}
