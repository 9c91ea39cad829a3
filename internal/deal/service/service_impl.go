package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/imobi360/internal/authorization"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/deal/domain"
	eventdomain "github.com/smallbiznis/imobi360/internal/event/domain"
	"github.com/smallbiznis/imobi360/internal/formula"
	"github.com/smallbiznis/imobi360/internal/mutationguard"
	"github.com/smallbiznis/imobi360/internal/permission"
	pipelinedomain "github.com/smallbiznis/imobi360/internal/pipeline/domain"
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

const entityType = permission.EntityDeal

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Pipelines pipelinedomain.Service
	Guard     *mutationguard.Guard
	Formula   *formula.Resolver
	Relation  *relation.Resolver
	Events    eventdomain.Service
	Authz     authorization.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	pipelines pipelinedomain.Service
	guard     *mutationguard.Guard
	formula   *formula.Resolver
	relation  *relation.Resolver
	events    eventdomain.Service
	authz     authorization.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("deal.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		pipelines: p.Pipelines,
		guard:     p.Guard,
		formula:   p.Formula,
		relation:  p.Relation,
		events:    p.Events,
		authz:     p.Authz,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Deal, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	role := tenantcontext.RoleOrViewer(ctx)
	if err := s.authz.Authorize(ctx, role, authorization.ObjectDeal, authorization.ActionDealCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.StatusOpen
	}
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	var expectedClose *time.Time
	if req.ExpectedCloseDate != nil {
		parsed, err := record.ParseOptionalTime(*req.ExpectedCloseDate)
		if err != nil {
			return nil, domain.ErrInvalidCloseDate
		}
		expectedClose = parsed
	}

	pipelineID, err := s.resolvePipeline(ctx, tenantID, req.PipelineID)
	if err != nil {
		return nil, err
	}
	stage, err := s.resolveStage(ctx, tenantID, pipelineID, req.StageID)
	if err != nil {
		return nil, err
	}
	// Below admin, a closed status only comes from a won or lost stage.
	want, terminal := terminalStatus(stage)
	if status != domain.StatusOpen && !terminal && role != permission.RoleAdmin {
		return nil, domain.ErrStatusFromStage
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
	if req.ContactID != nil {
		if err := s.verifyContact(ctx, tenantID, *req.ContactID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	deal := domain.Deal{
		ID:                s.genID.Generate(),
		TenantID:          tenantID,
		PipelineID:        pipelineID,
		StageID:           stage.ID,
		ContactID:         req.ContactID,
		Title:             title,
		Value:             req.Value,
		Status:            status,
		AssignedTo:        trimmedPtr(req.AssignedTo),
		ExpectedCloseDate: expectedClose,
		CustomFields:      datatypes.JSONMap(req.CustomFields),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if terminal {
		deal.Status = want
	}
	if deal.Status != domain.StatusOpen {
		deal.ClosedAt = &now
	}

	if err := rls.Transaction(s.db, tenantID, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &deal)
	}); err != nil {
		return nil, err
	}

	s.emit(ctx, tenantID, deal.ID, eventdomain.TypeCreated, map[string]any{
		"title":       deal.Title,
		"value":       deal.Value,
		"status":      deal.Status,
		"pipeline_id": deal.PipelineID.String(),
		"stage_id":    deal.StageID.String(),
		"contact_id":  idString(deal.ContactID),
	})
	return &deal, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Deal, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	deal, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.attachComputed(ctx, deal)
	return deal, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidTenant
	}
	filter := domain.ListFilter{
		PipelineID: req.PipelineID,
		StageID:    req.StageID,
		ContactID:  req.ContactID,
		Status:     strings.TrimSpace(req.Status),
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

	deals, info := pagination.Trim(items, page.PageSize, func(d *domain.Deal) pagination.Cursor {
		return pagination.Cursor{ID: d.ID, CreatedAt: d.CreatedAt}
	})
	return domain.ListResponse{Deals: deals, PageInfo: info}, nil
}

func (s *Service) Board(ctx context.Context, pipelineID *snowflake.ID) (*domain.Board, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	id, err := s.resolvePipeline(ctx, tenantID, pipelineID)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.pipelines.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	deals, err := s.repo.ListByPipeline(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}

	byStage := make(map[snowflake.ID][]domain.Deal, len(pipeline.Stages))
	for _, d := range deals {
		byStage[d.StageID] = append(byStage[d.StageID], *d)
	}
	board := &domain.Board{PipelineID: id, Stages: make([]domain.BoardStage, 0, len(pipeline.Stages))}
	for _, st := range pipeline.Stages {
		stageDeals := byStage[st.ID]
		if stageDeals == nil {
			stageDeals = []domain.Deal{}
		}
		board.Stages = append(board.Stages, domain.BoardStage{
			ID:       st.ID,
			Name:     st.Name,
			Color:    st.Color,
			Position: st.Position,
			IsWon:    st.IsWon,
			IsLost:   st.IsLost,
			Deals:    stageDeals,
		})
	}
	return board, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, patch map[string]any) (*domain.Deal, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	if err := s.guard.Check(ctx, mutationguard.Request{
		TenantID:   tenantID,
		Role:       tenantcontext.RoleOrViewer(ctx),
		EntityType: entityType,
		Update:     patch,
	}); err != nil {
		return nil, err
	}

	changes, err := s.decodePatch(ctx, tenantID, patch)
	if err != nil {
		return nil, err
	}
	current, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, tenantID, current, changes)
}

// MoveStage changes the stage through the stage transition rules only. It is
// open to members, who cannot write stage_id through Update.
func (s *Service) MoveStage(ctx context.Context, id snowflake.ID, stageID snowflake.ID) (*domain.Deal, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	role := tenantcontext.RoleOrViewer(ctx)
	if err := s.authz.Authorize(ctx, role, authorization.ObjectDeal, authorization.ActionDealStageMove); err != nil {
		return nil, err
	}

	current, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if current.StageID == stageID {
		s.attachComputed(ctx, current)
		return current, nil
	}
	return s.apply(ctx, tenantID, current, map[string]any{"stage_id": stageID})
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}
	role := tenantcontext.RoleOrViewer(ctx)
	if err := s.authz.Authorize(ctx, role, authorization.ObjectDeal, authorization.ActionDealDelete); err != nil {
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
		"title":  current.Title,
		"status": current.Status,
	})
	return nil
}

func (s *Service) find(ctx context.Context, tenantID, id snowflake.ID) (*domain.Deal, error) {
	deal, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, domain.ErrNotFound
	}
	return deal, nil
}

func (s *Service) attachComputed(ctx context.Context, deal *domain.Deal) {
	rec, err := record.FromStruct(deal)
	if err != nil {
		s.log.Warn("deal record conversion failed", zap.String("deal_id", deal.ID.String()), zap.Error(err))
		return
	}
	computed := s.formula.ResolveFormulaFields(ctx, deal.TenantID, entityType, rec)
	for k, v := range s.relation.ResolveRelationFields(ctx, deal.TenantID, entityType, rec) {
		computed[k] = v
	}
	deal.ComputedFields = computed
}

func (s *Service) resolvePipeline(ctx context.Context, tenantID snowflake.ID, requested *snowflake.ID) (snowflake.ID, error) {
	if requested == nil {
		pipeline, err := s.pipelines.Default(ctx, tenantID, entityType)
		if errors.Is(err, pipelinedomain.ErrNoDefaultPipeline) {
			return 0, domain.ErrNoDefaultPipeline
		}
		if err != nil {
			return 0, err
		}
		return pipeline.ID, nil
	}
	pipeline, err := s.pipelines.Get(ctx, tenantID, *requested)
	if errors.Is(err, pipelinedomain.ErrPipelineNotFound) {
		return 0, domain.ErrInvalidPipeline
	}
	if err != nil {
		return 0, err
	}
	return pipeline.ID, nil
}

func (s *Service) resolveStage(ctx context.Context, tenantID, pipelineID snowflake.ID, requested *snowflake.ID) (*pipelinedomain.Stage, error) {
	if requested == nil {
		return s.firstStage(ctx, tenantID, pipelineID)
	}
	stage, err := s.stage(ctx, tenantID, *requested)
	if err != nil {
		return nil, err
	}
	if stage.PipelineID != pipelineID {
		return nil, domain.ErrStageNotInPipeline
	}
	return stage, nil
}

func (s *Service) stage(ctx context.Context, tenantID, id snowflake.ID) (*pipelinedomain.Stage, error) {
	stage, err := s.pipelines.Stage(ctx, tenantID, id)
	if errors.Is(err, pipelinedomain.ErrStageNotFound) {
		return nil, domain.ErrInvalidStage
	}
	return stage, err
}

func (s *Service) firstStage(ctx context.Context, tenantID, pipelineID snowflake.ID) (*pipelinedomain.Stage, error) {
	stage, err := s.pipelines.FirstStage(ctx, tenantID, pipelineID)
	if errors.Is(err, pipelinedomain.ErrPipelineHasNoStage) {
		return nil, domain.ErrPipelineHasNoStages
	}
	return stage, err
}

func (s *Service) verifyContact(ctx context.Context, tenantID, contactID snowflake.ID) error {
	exists, err := s.repo.ContactExists(ctx, s.db, tenantID, contactID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrContactNotFound
	}
	return nil
}

func (s *Service) emit(ctx context.Context, tenantID, dealID snowflake.ID, eventType string, payload map[string]any) {
	s.events.EmitAsync(ctx, eventdomain.EmitRequest{
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   dealID,
		EventType:  eventType,
		Payload:    payload,
	})
}

func terminalStatus(stage *pipelinedomain.Stage) (string, bool) {
	switch {
	case stage.IsWon:
		return domain.StatusWon, true
	case stage.IsLost:
		return domain.StatusLost, true
	default:
		return "", false
	}
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

func idString(id *snowflake.ID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
