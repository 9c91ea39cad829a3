package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/authorization"
	"github.com/smallbiznis/imobi360/internal/clock"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	"github.com/smallbiznis/imobi360/internal/formula"
	"github.com/smallbiznis/imobi360/internal/lead/domain"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/record"
	"github.com/smallbiznis/imobi360/internal/relation"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"github.com/smallbiznis/imobi360/pkg/db/pagination"
	"github.com/smallbiznis/imobi360/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// field definitions and permissions are declared per lead
	entityType = permission.EntityLead
	// events and automations address leads as contacts
	eventEntityType = permission.EntityContact
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Guard    *mutationguard.Guard
	Formula  *formula.Resolver
	Relation *relation.Resolver
	Events   eventdomain.Service
	Authz    authorization.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	guard    *mutationguard.Guard
	formula  *formula.Resolver
	relation *relation.Resolver
	events   eventdomain.Service
	authz    authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("lead.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		guard:    p.Guard,
		formula:  p.Formula,
		relation: p.Relation,
		events:   p.Events,
		authz:    p.Authz,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Lead, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	role := tenantcontext.RoleOrViewer(ctx)
	if err := s.authz.Authorize(ctx, role, authorization.ObjectLead, authorization.ActionLeadCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.StatusActive
	}
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	if len(req.CustomFields) > 0 {
		if err := s.guard.Check(ctx, mutationguard.Request{
			TenantID:   tenantID,
			Role:       role,
			EntityType: entityType,
			Update:     map[string]any{permission.CustomFieldsKey: req.CustomFields},
		}); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	lead := domain.Lead{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		Type:         domain.TypeLead,
		Name:         name,
		Email:        trimmedPtr(req.Email),
		Phone:        trimmedPtr(req.Phone),
		Source:       trimmedPtr(req.Source),
		Status:       status,
		AssignedTo:   trimmedPtr(req.AssignedTo),
		CustomFields: datatypes.JSONMap(req.CustomFields),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := rls.Transaction(s.db, tenantID, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &lead)
	}); err != nil {
		return nil, err
	}

	s.emit(ctx, tenantID, lead.ID, eventdomain.TypeCreated, map[string]any{
		"name":   lead.Name,
		"email":  lead.Email,
		"phone":  lead.Phone,
		"type":   lead.Type,
		"source": lead.Source,
	})
	return &lead, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Lead, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	lead, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.attachComputed(ctx, lead)
	return lead, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidTenant
	}
	filter := domain.ListFilter{
		Status:     strings.TrimSpace(req.Status),
		Source:     strings.TrimSpace(req.Source),
		AssignedTo: strings.TrimSpace(req.AssignedTo),
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.PageToken != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.Pagination.Size()}
	items, err := s.repo.List(ctx, s.db, tenantID, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	leads, info := pagination.Trim(items, page.PageSize, func(l *domain.Lead) pagination.Cursor {
		return pagination.Cursor{ID: l.ID, CreatedAt: l.CreatedAt}
	})
	return domain.ListResponse{Leads: leads, PageInfo: info}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, patch map[string]any) (*domain.Lead, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	if raw, ok := patch["name"]; ok {
		name, _ := raw.(string)
		if strings.TrimSpace(name) == "" {
			return nil, domain.ErrInvalidName
		}
	}
	if raw, ok := patch["type"]; ok && raw != domain.TypeLead {
		return nil, domain.ErrTypeImmutable
	}
	if err := s.guard.Check(ctx, mutationguard.Request{
		TenantID:   tenantID,
		Role:       tenantcontext.RoleOrViewer(ctx),
		EntityType: entityType,
		Update:     patch,
	}); err != nil {
		return nil, err
	}

	changes, err := decodePatch(patch)
	if err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, tenantID, id); err != nil {
		return nil, err
	}

	updatedFields := make([]string, 0, len(changes))
	for key := range changes {
		updatedFields = append(updatedFields, key)
	}
	sort.Strings(updatedFields)

	changes["updated_at"] = s.clock.Now()
	if err := rls.Transaction(s.db, tenantID, func(tx *gorm.DB) error {
		return s.repo.Update(ctx, tx, tenantID, id, changes)
	}); err != nil {
		return nil, err
	}

	updated, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, tenantID, id, eventdomain.TypeUpdated, map[string]any{
		"updated_fields": updatedFields,
	})
	s.attachComputed(ctx, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}
	role := tenantcontext.RoleOrViewer(ctx)
	if err := s.authz.Authorize(ctx, role, authorization.ObjectLead, authorization.ActionLeadDelete); err != nil {
		return err
	}
	current, err := s.find(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := rls.Transaction(s.db, tenantID, func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, tenantID, id)
	}); err != nil {
		return err
	}
	s.emit(ctx, tenantID, id, eventdomain.TypeDeleted, map[string]any{
		"name": current.Name,
		"type": current.Type,
	})
	return nil
}

func (s *Service) find(ctx context.Context, tenantID, id snowflake.ID) (*domain.Lead, error) {
	lead, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}
	return lead, nil
}

func (s *Service) attachComputed(ctx context.Context, lead *domain.Lead) {
	rec, err := record.FromStruct(lead)
	if err != nil {
		s.log.Warn("lead record conversion failed", zap.String("lead_id", lead.ID.String()), zap.Error(err))
		return
	}
	computed := s.formula.ResolveFormulaFields(ctx, lead.TenantID, entityType, rec)
	for k, v := range s.relation.ResolveRelationFields(ctx, lead.TenantID, entityType, rec) {
		computed[k] = v
	}
	lead.ComputedFields = computed
}

func (s *Service) emit(ctx context.Context, tenantID, leadID snowflake.ID, eventType string, payload map[string]any) {
	s.events.EmitAsync(ctx, eventdomain.EmitRequest{
		TenantID:   tenantID,
		EntityType: eventEntityType,
		EntityID:   leadID,
		EventType:  eventType,
		Payload:    payload,
	})
}

// decodePatch maps an accepted update onto contact columns. type is accepted
// only as lead and never written.
func decodePatch(patch map[string]any) (map[string]any, error) {
	changes := map[string]any{}
	for key, raw := range patch {
		switch key {
		case "name":
			name, _ := raw.(string)
			changes[key] = strings.TrimSpace(name)
		case "email", "phone", "source", "assigned_to":
			value, err := record.ParseOptionalString(raw)
			if err != nil {
				return nil, domain.ErrInvalidValue
			}
			changes[key] = value
		case "status":
			status, _ := raw.(string)
			status = strings.TrimSpace(status)
			if !domain.ValidStatus(status) {
				return nil, domain.ErrInvalidStatus
			}
			changes[key] = status
		case "custom_fields":
			fields, err := record.ParseObject(raw)
			if err != nil {
				return nil, domain.ErrInvalidCustomFields
			}
			changes[key] = datatypes.JSONMap(fields)
		}
	}
	return changes, nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
