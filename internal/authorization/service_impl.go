package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/imobi360/internal/audit/domain"
	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectDeal         = "deal"
	ObjectLead         = "lead"
	ObjectTenantConfig = "tenant_config"
	ObjectCustomField  = "custom_field"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionDealCreate    = "deal.create"
	ActionDealDelete    = "deal.delete"
	ActionDealBulk      = "deal.bulk"
	ActionDealStageMove = "deal.stage_move"

	ActionLeadCreate = "lead.create"
	ActionLeadDelete = "lead.delete"

	ActionTenantConfigManage = "tenant_config.manage"
	ActionCustomFieldManage  = "custom_field.manage"
	ActionAuditLogView       = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role permission.Role, object string, action string) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, role, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, role permission.Role, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return
	}
	targetID := "capability"
	if err := s.auditSvc.AuditLog(ctx, &tenantID, auditdomain.ActionAuthorizationDeny, "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   role.String(),
	}); err != nil {
		s.log.Warn("audit denied authorization failed", zap.Error(err))
	}
}

func subject(role permission.Role) string {
	return "role:" + role.String()
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	// each role inherits every grant of the role below it
	inheritance := [][]string{
		{subject(permission.RoleAdmin), subject(permission.RoleManager)},
		{subject(permission.RoleManager), subject(permission.RoleMember)},
		{subject(permission.RoleMember), subject(permission.RoleViewer)},
	}
	for _, rule := range inheritance {
		if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	policies := [][]string{
		{subject(permission.RoleMember), ObjectDeal, ActionDealCreate},
		{subject(permission.RoleMember), ObjectDeal, ActionDealStageMove},
		{subject(permission.RoleMember), ObjectLead, ActionLeadCreate},

		{subject(permission.RoleManager), ObjectDeal, ActionDealDelete},
		{subject(permission.RoleManager), ObjectDeal, ActionDealBulk},
		{subject(permission.RoleManager), ObjectLead, ActionLeadDelete},
		{subject(permission.RoleManager), ObjectAuditLog, ActionAuditLogView},

		{subject(permission.RoleAdmin), ObjectTenantConfig, ActionTenantConfigManage},
		{subject(permission.RoleAdmin), ObjectCustomField, ActionCustomFieldManage},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
