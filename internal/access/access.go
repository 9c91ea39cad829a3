package access

import (
	"fmt"

	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/template"
	tenantdomain "github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
)

type Code string

const (
	CodeModuleNotConfigured Code = "MODULE_NOT_CONFIGURED"
	CodeModuleDisabled      Code = "MODULE_DISABLED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
)

// Error is a module access denial.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// ModuleView is the static metadata of a module page.
type ModuleView struct {
	ID      string
	Name    string
	MinRole permission.Role
}

var moduleViews = map[string]ModuleView{
	"deals":      {ID: "deals", Name: "Deals"},
	"contacts":   {ID: "contacts", Name: "Contacts"},
	"leads":      {ID: "leads", Name: "Leads"},
	"activities": {ID: "activities", Name: "Activities"},
	"properties": {ID: "properties", Name: "Properties"},
	"reports":    {ID: "reports", Name: "Reports", MinRole: permission.RoleManager},
	"settings":   {ID: "settings", Name: "Settings", MinRole: permission.RoleAdmin},
}

// LookupView returns the registered view of a module.
func LookupView(moduleID string) (ModuleView, bool) {
	view, ok := moduleViews[moduleID]
	return view, ok
}

// CheckModuleAccess runs the configured, enabled and role checks in order and
// returns the module on success.
func CheckModuleAccess(moduleID string, cfg *tenantdomain.TenantConfig, role permission.Role) (*template.ModuleConfig, error) {
	if cfg == nil {
		return nil, &Error{Code: CodeModuleNotConfigured, Message: fmt.Sprintf("Module %q is not configured for this tenant", moduleID)}
	}
	module, ok := cfg.Module(moduleID)
	if !ok {
		return nil, &Error{Code: CodeModuleNotConfigured, Message: fmt.Sprintf("Module %q is not configured for this tenant", moduleID)}
	}
	if !module.Enabled {
		return nil, &Error{Code: CodeModuleDisabled, Message: fmt.Sprintf("Module %q is disabled", module.Label)}
	}
	if view, ok := LookupView(moduleID); ok && view.MinRole != "" && !role.AtLeast(view.MinRole) {
		return nil, &Error{
			Code:    CodeUnauthorized,
			Message: fmt.Sprintf("Insufficient permissions to access %q. Required role: %s", module.Label, view.MinRole),
		}
	}
	out := *module
	return &out, nil
}

func CanAccessModule(moduleID string, cfg *tenantdomain.TenantConfig, role permission.Role) bool {
	_, err := CheckModuleAccess(moduleID, cfg, role)
	return err == nil
}
