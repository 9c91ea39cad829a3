package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/authorization"
	"github.com/smallbiznis/imobi360/internal/automation"
	"github.com/smallbiznis/imobi360/internal/config"
	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	dealdomain "github.com/smallbiznis/imobi360/internal/deal/domain"
	leaddomain "github.com/smallbiznis/imobi360/internal/lead/domain"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
	"github.com/smallbiznis/imobi360/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "callback-secret"

type fakeDealService struct {
	deals      map[snowflake.ID]*dealdomain.Deal
	updateErr  error
	lastRole   permission.Role
	lastPatch  map[string]any
	deleteErrs map[snowflake.ID]error
	board      *dealdomain.Board
}

func (f *fakeDealService) Create(ctx context.Context, req dealdomain.CreateRequest) (*dealdomain.Deal, error) {
	if req.Title == "" {
		return nil, dealdomain.ErrInvalidTitle
	}
	f.lastRole = tenantcontext.RoleOrViewer(ctx)
	return &dealdomain.Deal{ID: snowflake.ID(99), Title: req.Title, Status: dealdomain.StatusOpen}, nil
}

func (f *fakeDealService) Get(_ context.Context, id snowflake.ID) (*dealdomain.Deal, error) {
	d, ok := f.deals[id]
	if !ok {
		return nil, dealdomain.ErrNotFound
	}
	return d, nil
}

func (f *fakeDealService) List(context.Context, dealdomain.ListRequest) (dealdomain.ListResponse, error) {
	out := dealdomain.ListResponse{}
	for _, d := range f.deals {
		out.Deals = append(out.Deals, *d)
	}
	return out, nil
}

func (f *fakeDealService) Update(ctx context.Context, id snowflake.ID, patch map[string]any) (*dealdomain.Deal, error) {
	f.lastRole = tenantcontext.RoleOrViewer(ctx)
	f.lastPatch = patch
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.Get(ctx, id)
}

func (f *fakeDealService) Board(_ context.Context, pipelineID *snowflake.ID) (*dealdomain.Board, error) {
	if pipelineID != nil && *pipelineID != f.board.PipelineID {
		return nil, dealdomain.ErrInvalidPipeline
	}
	return f.board, nil
}

func (f *fakeDealService) MoveStage(ctx context.Context, id snowflake.ID, _ snowflake.ID) (*dealdomain.Deal, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, dealdomain.ErrStageNotInPipeline
}

func (f *fakeDealService) Delete(_ context.Context, id snowflake.ID) error {
	if err, ok := f.deleteErrs[id]; ok {
		return err
	}
	delete(f.deals, id)
	return nil
}

type fakeLeadService struct{}

func (fakeLeadService) Create(context.Context, leaddomain.CreateRequest) (*leaddomain.Lead, error) {
	return nil, leaddomain.ErrInvalidName
}

func (fakeLeadService) Get(context.Context, snowflake.ID) (*leaddomain.Lead, error) {
	return nil, leaddomain.ErrNotFound
}

func (fakeLeadService) List(context.Context, leaddomain.ListRequest) (leaddomain.ListResponse, error) {
	return leaddomain.ListResponse{}, nil
}

func (fakeLeadService) Update(context.Context, snowflake.ID, map[string]any) (*leaddomain.Lead, error) {
	return nil, leaddomain.ErrTypeImmutable
}

func (fakeLeadService) Delete(context.Context, snowflake.ID) error {
	return leaddomain.ErrNotFound
}

type fakeTenantService struct {
	cfg     *tenantdomain.TenantConfig
	loadErr error
	patched bool
}

func (f *fakeTenantService) Load(_ context.Context, tenantID snowflake.ID) (*tenantdomain.TenantConfig, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := *f.cfg
	out.TenantID = tenantID.String()
	return &out, nil
}

func (f *fakeTenantService) Settings(context.Context) (tenantdomain.TenantSettings, error) {
	return tenantdomain.TenantSettings{TemplateID: "real_estate"}, nil
}

func (f *fakeTenantService) SetTemplate(_ context.Context, req tenantdomain.SetTemplateRequest) (tenantdomain.TenantSettings, error) {
	if req.TemplateID != "real_estate" {
		return tenantdomain.TenantSettings{}, tenantdomain.ErrTemplateNotFound
	}
	return tenantdomain.TenantSettings{TemplateID: req.TemplateID}, nil
}

func (f *fakeTenantService) UpdateOverrides(_ context.Context, patch tenantdomain.Overrides) (tenantdomain.TenantSettings, error) {
	f.patched = true
	return tenantdomain.TenantSettings{Overrides: &patch}, nil
}

func (f *fakeTenantService) ClearTemplate(context.Context) (tenantdomain.TenantSettings, error) {
	return tenantdomain.TenantSettings{}, nil
}

func (f *fakeTenantService) Provision(context.Context, tenantdomain.ProvisionRequest) (tenantdomain.ProvisionResponse, error) {
	return tenantdomain.ProvisionResponse{}, nil
}

type fakeCustomFieldService struct {
	cfdomain.Service
	createErr error
}

func (f *fakeCustomFieldService) Create(_ context.Context, req cfdomain.CreateRequest) (*cfdomain.CustomField, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cfdomain.CustomField{ID: snowflake.ID(7), EntityType: req.EntityType, FieldName: req.FieldName}, nil
}

func (f *fakeCustomFieldService) List(context.Context, string) ([]cfdomain.CustomField, error) {
	return []cfdomain.CustomField{}, nil
}

type fakeAuditService struct {
	timelineType string
	timelineID   snowflake.ID
	limit        int
}

func (f *fakeAuditService) AuditLog(context.Context, *snowflake.ID, string, string, *string, map[string]any) error {
	return nil
}

func (f *fakeAuditService) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}, nil
}

func (f *fakeAuditService) Timeline(_ context.Context, entityType string, entityID snowflake.ID, limit int) ([]auditdomain.TimelineEntry, error) {
	f.timelineType = entityType
	f.timelineID = entityID
	f.limit = limit
	return []auditdomain.TimelineEntry{}, nil
}

type testDeps struct {
	deals   *fakeDealService
	tenants *fakeTenantService
	fields  *fakeCustomFieldService
	audit   *fakeAuditService
}

func strPtr(v string) *string { return &v }

func defaultTenantConfig() *tenantdomain.TenantConfig {
	return &tenantdomain.TenantConfig{
		Modules: []template.ModuleConfig{
			{ID: "deals", Label: "Negócios", Enabled: true, Order: 1, EntityTypeID: strPtr("deal"), Route: "/deals"},
			{ID: "reports", Label: "Relatórios", Enabled: false, Order: 2, Route: "/reports"},
			{ID: "settings", Label: "Configurações", Enabled: true, Order: 3, Route: "/settings"},
		},
		Navigation: template.Navigation{
			SidebarItems: []template.NavItem{
				{ModuleID: "settings", Label: "Configurações", Route: "/settings", Order: 3, MinRole: "admin"},
				{ModuleID: "deals", Label: "Negócios", Route: "/deals", Order: 1},
				{ModuleID: "reports", Label: "Relatórios", Route: "/reports", Order: 2},
			},
			ShowIcons: true,
			Position:  "left",
		},
		EntityTypes: []template.EntityType{{ID: "deal", NameSingular: "Negócio", NamePlural: "Negócios"}},
	}
}

func newTestServer(t *testing.T) (*gin.Engine, testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewEnforcer(dbtest.New(t))
	require.NoError(t, err)

	deps := testDeps{
		deals: &fakeDealService{
			deals: map[snowflake.ID]*dealdomain.Deal{
				snowflake.ID(10): {ID: snowflake.ID(10), TenantID: snowflake.ID(1), Title: "Casa Jardins", Status: dealdomain.StatusOpen},
			},
			deleteErrs: map[snowflake.ID]error{},
			board: &dealdomain.Board{
				PipelineID: snowflake.ID(3),
				Stages: []dealdomain.BoardStage{
					{ID: snowflake.ID(31), Name: "Novo", Position: 1, Deals: []dealdomain.Deal{
						{ID: snowflake.ID(10), Title: "Casa Jardins", Status: dealdomain.StatusOpen},
					}},
					{ID: snowflake.ID(32), Name: "Ganho", Position: 2, IsWon: true, Deals: []dealdomain.Deal{}},
				},
			},
		},
		tenants: &fakeTenantService{cfg: defaultTenantConfig()},
		fields:  &fakeCustomFieldService{},
		audit:   &fakeAuditService{},
	}

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	s := NewServer(ServerParams{
		Gin:            r,
		Cfg:            config.Config{},
		Log:            zap.NewNop(),
		AuthzSvc:       authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		AuditSvc:       deps.audit,
		DealSvc:        deps.deals,
		LeadSvc:        fakeLeadService{},
		TenantSvc:      deps.tenants,
		CustomFieldSvc: deps.fields,
		Templates:      nil,
		Automation: automation.NewClient(config.NewStaticAutomationHolder(config.AutomationConfig{
			SigningSecret: testSecret,
		}), zap.NewNop()),
	})
	s.RegisterAPIRoutes()
	s.RegisterWebhookRoutes()
	s.RegisterFallback()
	return r, deps
}

func doRequest(r http.Handler, method, path string, body any, role string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTenant, "1")
	if role != "" {
		req.Header.Set(HeaderRole, role)
	}
	req.Header.Set(HeaderUser, "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestMissingTenantHeaderIsUnauthorized(t *testing.T) {
	r, _ := newTestServer(t)

	for _, tenant := range []string{"", "abc", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/deals", nil)
		if tenant != "" {
			req.Header.Set(HeaderTenant, tenant)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, tenant)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
	}
}

func TestUnknownRoleFallsBackToViewer(t *testing.T) {
	r, deps := newTestServer(t)

	rec := doRequest(r, http.MethodPatch, "/api/deals/10", map[string]any{"title": "x"}, "owner")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, permission.RoleViewer, deps.deals.lastRole)

	rec = doRequest(r, http.MethodPatch, "/api/deals/10", map[string]any{"title": "x"}, "Manager")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, permission.RoleManager, deps.deals.lastRole)
}

func TestCreateDeal(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doRequest(r, http.MethodPost, "/api/deals", map[string]any{"title": "  Apto Centro "}, "member")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data dealdomain.Deal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Apto Centro", resp.Data.Title)

	rec = doRequest(r, http.MethodPost, "/api/deals", map[string]any{"title": " "}, "member")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_title", payload.Errors[0].Code)
	assert.Equal(t, "title", payload.Errors[0].Field)
}

func TestUpdateDealPermissionDenied(t *testing.T) {
	r, deps := newTestServer(t)
	deps.deals.updateErr = &mutationguard.PermissionError{
		Fields:  []string{"probability", "status"},
		Reasons: map[string]string{"probability": permission.ReasonInsufficientRole, "status": permission.ReasonWorkflowField},
	}

	rec := doRequest(r, http.MethodPatch, "/api/deals/10", map[string]any{"probability": 10, "status": "won"}, "member")
	require.Equal(t, http.StatusForbidden, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "forbidden", payload.Type)
	assert.Equal(t, []string{"probability", "status"}, payload.ForbiddenFields)
	assert.Equal(t, permission.ReasonWorkflowField, payload.Reasons["status"])
	assert.Equal(t, map[string]any{"probability": float64(10), "status": "won"}, deps.deals.lastPatch)
}

func TestUpdateDealComputedAndTenantErrors(t *testing.T) {
	r, deps := newTestServer(t)

	deps.deals.updateErr = &mutationguard.ComputedFieldWriteError{Fields: []string{"commission"}}
	rec := doRequest(r, http.MethodPatch, "/api/deals/10", map[string]any{"custom_fields": map[string]any{"commission": 1}}, "admin")
	require.Equal(t, http.StatusForbidden, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "computed_field_write", payload.Type)
	assert.Equal(t, []string{"commission"}, payload.ComputedFields)

	deps.deals.updateErr = &mutationguard.TenantMismatchError{}
	rec = doRequest(r, http.MethodPatch, "/api/deals/10", map[string]any{"tenant_id": "2"}, "admin")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "tenant_mismatch", decodeError(t, rec).Type)
}

func TestDealNotFound(t *testing.T) {
	r, _ := newTestServer(t)

	for _, path := range []string{"/api/deals/404", "/api/deals/not-a-number", "/api/nothing-here"} {
		rec := doRequest(r, http.MethodGet, path, nil, "viewer")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not_found", decodeError(t, rec).Type, path)
	}
}

func TestMoveDealStageValidation(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doRequest(r, http.MethodPost, "/api/deals/10/stage", map[string]any{}, "member")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "stage_id", decodeError(t, rec).Errors[0].Field)

	rec = doRequest(r, http.MethodPost, "/api/deals/10/stage", map[string]any{"stage_id": "55"}, "member")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "stage_not_in_pipeline", payload.Errors[0].Code)
	assert.Equal(t, "stage_id", payload.Errors[0].Field)
}

func TestKanbanBoard(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doRequest(r, http.MethodGet, "/api/kanban", nil, "viewer")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data dealdomain.Board `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Stages, 2)
	assert.Equal(t, "Novo", resp.Data.Stages[0].Name)
	require.Len(t, resp.Data.Stages[0].Deals, 1)
	assert.Equal(t, "Casa Jardins", resp.Data.Stages[0].Deals[0].Title)
	assert.True(t, resp.Data.Stages[1].IsWon)
	assert.Empty(t, resp.Data.Stages[1].Deals)

	rec = doRequest(r, http.MethodGet, "/api/kanban?pipeline_id=abc", nil, "viewer")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, http.MethodGet, "/api/kanban?pipeline_id=99", nil, "viewer")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkDeleteRequiresManager(t *testing.T) {
	r, deps := newTestServer(t)
	deps.deals.deals[snowflake.ID(11)] = &dealdomain.Deal{ID: snowflake.ID(11)}
	deps.deals.deleteErrs[snowflake.ID(12)] = dealdomain.ErrNotFound

	body := map[string]any{"ids": []string{"10", "11", "12"}}

	rec := doRequest(r, http.MethodPost, "/api/deals/bulk-delete", body, "member")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, deps.deals.deals, 2)

	rec = doRequest(r, http.MethodPost, "/api/deals/bulk-delete", body, "manager")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Deleted []string          `json:"deleted"`
		Failed  map[string]string `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"10", "11"}, resp.Deleted)
	assert.Equal(t, map[string]string{"12": "not_found"}, resp.Failed)
	assert.Empty(t, deps.deals.deals)
}

func TestLeadTypeImmutable(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doRequest(r, http.MethodPatch, "/api/leads/5", map[string]any{"type": "client"}, "admin")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "lead_type_immutable", payload.Errors[0].Code)
	assert.Equal(t, "type", payload.Errors[0].Field)
}

func TestConfigurationErrorHidesDetails(t *testing.T) {
	r, deps := newTestServer(t)
	deps.tenants.loadErr = &tenantdomain.ConfigurationError{
		TenantID: "1",
		Problems: []string{"navigation references unknown module \"ghost\""},
	}

	rec := doRequest(r, http.MethodGet, "/api/tenant/config", nil, "admin")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "configuration_error", payload.Type)
	assert.NotContains(t, rec.Body.String(), "ghost")
}

func TestNavigationIsFilteredByRoleAndModules(t *testing.T) {
	r, _ := newTestServer(t)

	labels := func(role string) []string {
		rec := doRequest(r, http.MethodGet, "/api/navigation", nil, role)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data struct {
				SidebarItems []template.NavItem `json:"sidebar_items"`
				ShowIcons    bool               `json:"show_icons"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Data.ShowIcons)
		out := make([]string, 0, len(resp.Data.SidebarItems))
		for _, item := range resp.Data.SidebarItems {
			out = append(out, item.ModuleID)
		}
		return out
	}

	assert.Equal(t, []string{"deals"}, labels("member"))
	assert.Equal(t, []string{"deals", "settings"}, labels("admin"))
}

func TestModuleAccess(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doRequest(r, http.MethodGet, "/api/modules/deals/access", nil, "viewer")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Module     template.ModuleConfig `json:"module"`
			EntityType *template.EntityType   `json:"entity_type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "deals", resp.Data.Module.ID)
	require.NotNil(t, resp.Data.EntityType)
	assert.Equal(t, "deal", resp.Data.EntityType.ID)

	cases := map[string]string{
		"ghost":   "MODULE_NOT_CONFIGURED",
		"reports": "MODULE_DISABLED",
	}
	for module, code := range cases {
		rec = doRequest(r, http.MethodGet, "/api/modules/"+module+"/access", nil, "admin")
		require.Equal(t, http.StatusForbidden, rec.Code, module)
		payload := decodeError(t, rec)
		assert.Equal(t, "module_access_denied", payload.Type)
		assert.Equal(t, code, payload.Code, module)
	}

	rec = doRequest(r, http.MethodGet, "/api/modules/settings/access", nil, "manager")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
}

func TestTenantOverridesRequireAdmin(t *testing.T) {
	r, deps := newTestServer(t)
	patch := map[string]any{"settings": map[string]any{"currency": "BRL"}}

	rec := doRequest(r, http.MethodPatch, "/api/tenant/overrides", patch, "manager")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, deps.tenants.patched)

	rec = doRequest(r, http.MethodPatch, "/api/tenant/overrides", patch, "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deps.tenants.patched)
}

func TestSetTemplateUnknown(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doRequest(r, http.MethodPut, "/api/tenant/template", map[string]any{"template_id": "nope"}, "admin")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "template_not_found", payload.Errors[0].Code)
	assert.Equal(t, "template_id", payload.Errors[0].Field)
}

func TestCustomFieldConflict(t *testing.T) {
	r, deps := newTestServer(t)
	deps.fields.createErr = cfdomain.ErrFieldNameTaken
	body := map[string]any{"entity_type": "deal", "field_name": "budget", "field_label": "Budget", "field_type": "number"}

	rec := doRequest(r, http.MethodPost, "/api/custom-fields", body, "member")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(r, http.MethodPost, "/api/custom-fields", body, "admin")
	require.Equal(t, http.StatusConflict, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "field_name_taken", payload.Code)
}

func TestTimelineDefaults(t *testing.T) {
	r, deps := newTestServer(t)

	rec := doRequest(r, http.MethodGet, "/api/timeline/deal/10", nil, "viewer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deal", deps.audit.timelineType)
	assert.Equal(t, snowflake.ID(10), deps.audit.timelineID)
	assert.Equal(t, 50, deps.audit.limit)

	rec = doRequest(r, http.MethodGet, "/api/audit-logs", nil, "member")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAutomationCallbackSignature(t *testing.T) {
	r, _ := newTestServer(t)
	body := []byte(`{"event_id":"123","status":"completed","workflow_id":"wf-1"}`)

	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/automation/callback", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set(automation.HeaderSignature, signature)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := send(automation.Sign(testSecret, body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, send("").Code)
	assert.Equal(t, http.StatusUnauthorized, send(automation.Sign("other", body)).Code)
}
