package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/hashicorp/golang-lru/v2/expirable"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/clock"
	"github.com/smallbiznis/imobi360/internal/config"
	"github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	fieldNamePattern  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	entityTypePattern = regexp.MustCompile(`^[a-z][a-z_]*$`)
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
	Audit  auditdomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service
	cache *expirable.LRU[string, []domain.CustomField]
}

func New(p Params) domain.Service {
	size := p.Config.CustomFieldCacheSize
	if size <= 0 {
		size = 1024
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customfield.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
		cache: expirable.NewLRU[string, []domain.CustomField](size, nil, p.Config.CustomFieldCacheTTL),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CustomField, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}

	field, err := s.build(tenantID, req.EntityType, template.FieldDefinition{
		FieldName:  req.FieldName,
		FieldLabel: req.FieldLabel,
		FieldType:  req.FieldType,
		Options:    req.Options,
		IsRequired: req.IsRequired,
		Position:   req.Position,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, s.db, tenantID, field.EntityType, field.FieldName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrFieldNameTaken
	}

	if err := s.repo.Insert(ctx, s.db, field); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrFieldNameTaken
		}
		return nil, err
	}
	s.invalidate(tenantID, field.EntityType)

	s.log.Info("custom field created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entity_type", field.EntityType),
		zap.String("field_name", field.FieldName),
		zap.String("kind", field.Kind()),
	)
	s.writeAudit(ctx, tenantID, auditdomain.ActionCustomFieldCreated, field)
	return field, nil
}

func (s *Service) List(ctx context.Context, entityType string) ([]domain.CustomField, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	entityType = strings.TrimSpace(entityType)
	if !entityTypePattern.MatchString(entityType) {
		return nil, domain.ErrInvalidEntityType
	}
	return s.Definitions(ctx, tenantID, entityType)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}
	field, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return err
	}
	if field == nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, s.db, tenantID, id); err != nil {
		return err
	}
	s.invalidate(tenantID, field.EntityType)
	s.writeAudit(ctx, tenantID, auditdomain.ActionCustomFieldDeleted, field)
	return nil
}

func (s *Service) writeAudit(ctx context.Context, tenantID snowflake.ID, action string, field *domain.CustomField) {
	if s.audit == nil {
		return
	}
	target := field.ID.String()
	err := s.audit.AuditLog(ctx, &tenantID, action, "custom_field", &target, map[string]any{
		"entity_type": field.EntityType,
		"field_name":  field.FieldName,
		"field_type":  field.FieldType,
	})
	if err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) Definitions(ctx context.Context, tenantID snowflake.ID, entityType string) ([]domain.CustomField, error) {
	key := cacheKey(tenantID, entityType)
	if cached, ok := s.cache.Get(key); ok {
		return copyFields(cached), nil
	}

	items, err := s.repo.ListByEntity(ctx, s.db, tenantID, entityType)
	if err != nil {
		return nil, err
	}
	fields := make([]domain.CustomField, 0, len(items))
	for _, item := range items {
		fields = append(fields, *item)
	}
	s.cache.Add(key, fields)
	return copyFields(fields), nil
}

func (s *Service) Find(ctx context.Context, tenantID snowflake.ID, entityType, fieldName string) (*domain.CustomField, error) {
	fields, err := s.Definitions(ctx, tenantID, entityType)
	if err != nil {
		return nil, err
	}
	for i := range fields {
		if fields[i].FieldName == fieldName {
			return &fields[i], nil
		}
	}
	return nil, nil
}

func (s *Service) Seed(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, presets []template.FieldPreset) (int, error) {
	if tx == nil {
		tx = s.db
	}
	count := 0
	for _, preset := range presets {
		for _, def := range preset.Fields {
			field, err := s.build(tenantID, preset.EntityTypeID, def)
			if err != nil {
				return 0, fmt.Errorf("preset %s.%s: %w", preset.EntityTypeID, def.FieldName, err)
			}
			if err := s.repo.Insert(ctx, tx, field); err != nil {
				return 0, err
			}
			count++
		}
		s.invalidate(tenantID, preset.EntityTypeID)
	}
	return count, nil
}

func (s *Service) build(tenantID snowflake.ID, entityType string, def template.FieldDefinition) (*domain.CustomField, error) {
	entityType = strings.TrimSpace(entityType)
	if !entityTypePattern.MatchString(entityType) {
		return nil, domain.ErrInvalidEntityType
	}
	label := strings.TrimSpace(def.FieldLabel)
	if label == "" {
		return nil, domain.ErrInvalidFieldLabel
	}
	name := strings.TrimSpace(def.FieldName)
	if name == "" {
		name = strings.ReplaceAll(slug.Make(label), "-", "_")
	}
	if !fieldNamePattern.MatchString(name) {
		return nil, domain.ErrInvalidFieldName
	}
	fieldType := strings.TrimSpace(def.FieldType)
	if !domain.ValidFieldType(fieldType) {
		return nil, domain.ErrInvalidFieldType
	}

	field := &domain.CustomField{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		EntityType: entityType,
		FieldName:  name,
		FieldLabel: label,
		FieldType:  fieldType,
		Options:    datatypes.JSONMap(template.CopyMap(def.Options)),
		IsRequired: def.IsRequired,
		Position:   def.Position,
		CreatedAt:  s.clock.Now(),
	}
	if err := validateOptions(field); err != nil {
		return nil, err
	}
	return field, nil
}

func validateOptions(field *domain.CustomField) error {
	switch field.Kind() {
	case domain.KindFormula:
		cfg, err := field.FormulaConfig()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidFormulaConfig, err)
		}
		return cfg.Validate()
	case domain.KindRelation:
		cfg, err := field.RelationConfig()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidRelationConfig, err)
		}
		return cfg.Validate()
	case domain.KindAction:
		cfg, err := field.ActionConfig()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidActionConfig, err)
		}
		return cfg.Validate()
	case "":
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidFieldType, field.Kind())
	}
}

func (s *Service) invalidate(tenantID snowflake.ID, entityType string) {
	s.cache.Remove(cacheKey(tenantID, entityType))
}

func cacheKey(tenantID snowflake.ID, entityType string) string {
	return tenantID.String() + ":" + entityType
}

func copyFields(in []domain.CustomField) []domain.CustomField {
	out := make([]domain.CustomField, len(in))
	for i, f := range in {
		out[i] = f
		out[i].Options = datatypes.JSONMap(template.CopyMap(f.Options))
	}
	return out
}
