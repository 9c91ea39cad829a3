package merge

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
)

// ValidateTenantConfig lists every referential problem in cfg. A nil result
// means the config can be served.
func ValidateTenantConfig(cfg *domain.TenantConfig) []string {
	if cfg == nil {
		return []string{"Missing tenant config"}
	}
	var problems []string

	if strings.TrimSpace(cfg.TenantID) == "" {
		problems = append(problems, "Missing tenant_id")
	}
	if len(cfg.Modules) == 0 {
		problems = append(problems, "No modules configured")
	}
	if len(cfg.EntityTypes) == 0 {
		problems = append(problems, "No entity types configured")
	}
	if len(cfg.Navigation.SidebarItems) == 0 {
		problems = append(problems, "No navigation items configured")
	}

	entityTypes := make(map[string]struct{}, len(cfg.EntityTypes))
	for _, et := range cfg.EntityTypes {
		entityTypes[et.ID] = struct{}{}
	}
	known := func(id string) bool {
		_, ok := entityTypes[id]
		return ok
	}

	modules := make(map[string]struct{}, len(cfg.Modules))
	for _, m := range cfg.Modules {
		modules[m.ID] = struct{}{}
		if m.EntityTypeID != nil && *m.EntityTypeID != "" && !known(*m.EntityTypeID) {
			problems = append(problems, fmt.Sprintf("Module %q references unknown entity_type_id: %s", m.ID, *m.EntityTypeID))
		}
	}
	for _, v := range cfg.Views {
		if !known(v.EntityTypeID) {
			problems = append(problems, fmt.Sprintf("View %q references unknown entity_type_id: %s", v.Label, v.EntityTypeID))
		}
	}
	for _, p := range cfg.Pipelines {
		if !known(p.EntityTypeID) {
			problems = append(problems, fmt.Sprintf("Pipeline %q references unknown entity_type_id: %s", p.Name, p.EntityTypeID))
		}
	}
	problems = append(problems, danglingNavRefs(cfg.Navigation.SidebarItems, modules)...)

	return problems
}

func danglingNavRefs(items []template.NavItem, modules map[string]struct{}) []string {
	var problems []string
	for _, item := range items {
		if item.ModuleID != "" {
			if _, ok := modules[item.ModuleID]; !ok {
				problems = append(problems, fmt.Sprintf("Navigation item %q references unknown module: %s", item.Label, item.ModuleID))
			}
		}
		problems = append(problems, danglingNavRefs(item.Children, modules)...)
	}
	return problems
}
