package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/authorization"
	"github.com/smallbiznis/imobi360/internal/clock"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	eventrepository "github.com/smallbiznis/imobi360/internal/event/repository"
	eventservice "github.com/smallbiznis/imobi360/internal/event/service"
	"github.com/smallbiznis/imobi360/internal/formula"
	"github.com/smallbiznis/imobi360/internal/lead/domain"
	"github.com/smallbiznis/imobi360/internal/lead/repository"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/relation"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"github.com/smallbiznis/imobi360/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tenantID = snowflake.ID(42)

type staticDefs []cfdomain.CustomField

func (s staticDefs) Definitions(context.Context, snowflake.ID, string) ([]cfdomain.CustomField, error) {
	return s, nil
}

type dealRow struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID
	ContactID snowflake.ID
	Value     float64
}

func (dealRow) TableName() string { return "deals" }

func newService(t *testing.T) (domain.Service, eventdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	log := zap.NewNop()
	db := dbtest.New(t, &domain.Lead{}, &eventdomain.Event{}, &dealRow{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	defs := staticDefs{
		{FieldName: "budget", FieldType: cfdomain.TypeNumber, Options: map[string]any{"required_role": "manager"}},
		{FieldName: "pipeline_total", FieldType: cfdomain.TypeNumber, Options: map[string]any{
			"kind": "relation", "target_entity": "deals", "relation_type": "one_to_many",
			"foreign_key": "contact_id", "rollup": map[string]any{"operation": "sum", "source_field": "value"},
		}},
	}
	formulas := formula.New(defs, log, nil)
	relations := relation.New(defs, relation.NewGormStore(db), log, nil)
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	events := eventservice.New(eventservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: eventrepository.Provide()})

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Guard:    mutationguard.New(defs, formulas, relations, log),
		Formula:  formulas,
		Relation: relations,
		Events:   events,
		Authz:    authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
	})
	return svc, events, db, clk
}

func asRole(role permission.Role) context.Context {
	ctx := tenantcontext.WithTenantID(context.Background(), tenantID)
	return tenantcontext.WithRole(ctx, role)
}

func strPtr(s string) *string { return &s }

func TestCreateLead(t *testing.T) {
	svc, events, _, _ := newService(t)
	lead, err := svc.Create(asRole(permission.RoleMember), domain.CreateRequest{
		Name:  "  Ana Souza ",
		Email: strPtr("ana@example.com"),
		Phone: strPtr(" "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", lead.Name)
	assert.Equal(t, domain.TypeLead, lead.Type)
	assert.Equal(t, domain.StatusActive, lead.Status)
	assert.Nil(t, lead.Phone)

	events.Wait()
	got, err := events.ListForEntity(context.Background(), tenantID, "contact", lead.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, eventdomain.TypeCreated, got[0].EventType)
	assert.Equal(t, "ana@example.com", got[0].Payload["email"])

	_, err = svc.Create(asRole(permission.RoleMember), domain.CreateRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCreateLeadWriteGates(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Create(asRole(permission.RoleViewer), domain.CreateRequest{Name: "Ana"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	member := asRole(permission.RoleMember)
	_, err = svc.Create(member, domain.CreateRequest{Name: "Ana", CustomFields: map[string]any{"pipeline_total": 10}})
	var computedErr *mutationguard.ComputedFieldWriteError
	require.ErrorAs(t, err, &computedErr)
	assert.Equal(t, []string{"custom_fields.pipeline_total"}, computedErr.Fields)

	_, err = svc.Create(member, domain.CreateRequest{Name: "Ana", CustomFields: map[string]any{"budget": 5000}})
	var permErr *mutationguard.PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, []string{"custom_fields.budget"}, permErr.Fields)

	lead, err := svc.Create(asRole(permission.RoleManager), domain.CreateRequest{Name: "Ana", CustomFields: map[string]any{"budget": 5000}})
	require.NoError(t, err)
	assert.EqualValues(t, 5000, lead.CustomFields["budget"])
}

func TestGetSkipsNonLeadContacts(t *testing.T) {
	svc, _, db, _ := newService(t)
	require.NoError(t, db.Exec(
		`INSERT INTO contacts (id, tenant_id, type, name, status, created_at, updated_at) VALUES (900, 42, 'customer', 'Bob', 'active', ?, ?)`,
		time.Now(), time.Now(),
	).Error)

	_, err := svc.Get(asRole(permission.RoleViewer), snowflake.ID(900))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetRollsUpDeals(t *testing.T) {
	svc, _, db, _ := newService(t)
	lead, err := svc.Create(asRole(permission.RoleMember), domain.CreateRequest{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&[]dealRow{
		{ID: 1, TenantID: tenantID, ContactID: lead.ID, Value: 100},
		{ID: 2, TenantID: tenantID, ContactID: lead.ID, Value: 250},
	}).Error)

	got, err := svc.Get(asRole(permission.RoleViewer), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 350.0, got.ComputedFields["pipeline_total"])
}

func TestUpdateLead(t *testing.T) {
	svc, events, _, clk := newService(t)
	lead, err := svc.Create(asRole(permission.RoleMember), domain.CreateRequest{Name: "Ana"})
	require.NoError(t, err)
	clk.Advance(time.Minute)

	_, err = svc.Update(asRole(permission.RoleManager), lead.ID, map[string]any{"type": "customer"})
	assert.ErrorIs(t, err, domain.ErrTypeImmutable)

	_, err = svc.Update(asRole(permission.RoleMember), lead.ID, map[string]any{"name": ""})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Update(asRole(permission.RoleMember), lead.ID, map[string]any{
		"custom_fields": map[string]any{"budget": 10},
	})
	var perr *mutationguard.PermissionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"custom_fields.budget"}, perr.Fields)

	_, err = svc.Update(asRole(permission.RoleManager), lead.ID, map[string]any{"pipeline_total": 1})
	var cerr *mutationguard.ComputedFieldWriteError
	require.True(t, errors.As(err, &cerr))

	updated, err := svc.Update(asRole(permission.RoleMember), lead.ID, map[string]any{
		"name":  "Ana Lima",
		"email": "ana@lima.dev",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", updated.Name)
	require.NotNil(t, updated.Email)
	assert.Equal(t, "ana@lima.dev", *updated.Email)
	assert.True(t, updated.UpdatedAt.Equal(clk.Now()))

	events.Wait()
	got, err := events.ListForEntity(context.Background(), tenantID, "contact", lead.ID, 10)
	require.NoError(t, err)
	var updatedEvent *eventdomain.Event
	for i := range got {
		if got[i].EventType == eventdomain.TypeUpdated {
			updatedEvent = &got[i]
		}
	}
	require.NotNil(t, updatedEvent)
	assert.Equal(t, []any{"email", "name"}, updatedEvent.Payload["updated_fields"])

	_, err = svc.Update(asRole(permission.RoleMember), snowflake.ID(77), map[string]any{"name": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteLead(t *testing.T) {
	svc, _, _, _ := newService(t)
	lead, err := svc.Create(asRole(permission.RoleMember), domain.CreateRequest{Name: "Ana"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(asRole(permission.RoleMember), lead.ID), authorization.ErrForbidden)
	require.NoError(t, svc.Delete(asRole(permission.RoleManager), lead.ID))
	assert.ErrorIs(t, svc.Delete(asRole(permission.RoleManager), lead.ID), domain.ErrNotFound)
}

func TestListLeads(t *testing.T) {
	svc, _, _, clk := newService(t)
	ctx := asRole(permission.RoleMember)
	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: name, Source: strPtr("portal")})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}
	_, err := svc.Create(ctx, domain.CreateRequest{Name: "D", Status: domain.StatusArchived})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListRequest{Source: "portal"})
	require.NoError(t, err)
	require.Len(t, resp.Leads, 3)
	assert.Equal(t, "C", resp.Leads[0].Name)

	resp, err = svc.List(ctx, domain.ListRequest{Status: domain.StatusArchived})
	require.NoError(t, err)
	require.Len(t, resp.Leads, 1)
	assert.Equal(t, "D", resp.Leads[0].Name)

	_, err = svc.List(ctx, domain.ListRequest{Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
