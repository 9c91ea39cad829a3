package access

import (
	"fmt"
	"sort"

	"github.com/smallbiznis/imobi360/internal/permission"
	"github.com/smallbiznis/imobi360/internal/template"
)

// CanViewNavItem reports whether role meets the item's min_role.
func CanViewNavItem(item template.NavItem, role permission.Role) bool {
	if item.MinRole == "" {
		return true
	}
	min, ok := permission.ParseRole(item.MinRole)
	if !ok {
		return false
	}
	return role.AtLeast(min)
}

// FilterNavigation drops items the role cannot see and items whose module is
// missing or disabled, recursing into children. The input is left untouched
// and every level is sorted by order.
func FilterNavigation(items []template.NavItem, modules []template.ModuleConfig, role permission.Role) []template.NavItem {
	enabled := make(map[string]bool, len(modules))
	for _, m := range modules {
		enabled[m.ID] = m.Enabled
	}
	return filterItems(items, enabled, role)
}

func filterItems(items []template.NavItem, enabled map[string]bool, role permission.Role) []template.NavItem {
	out := make([]template.NavItem, 0, len(items))
	for _, item := range items {
		if !CanViewNavItem(item, role) {
			continue
		}
		if item.ModuleID != "" && !enabled[item.ModuleID] {
			continue
		}
		if item.Children != nil {
			item.Children = filterItems(item.Children, enabled, role)
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ValidateNavigationConfig lists malformed items: unknown module references and
// missing icon or route, at any depth.
func ValidateNavigationConfig(nav template.Navigation, modules []template.ModuleConfig) []string {
	var problems []string
	if len(nav.SidebarItems) == 0 {
		problems = append(problems, "Navigation config has no sidebar items")
	}
	known := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		known[m.ID] = struct{}{}
	}
	return validateItems(nav.SidebarItems, known, "", problems)
}

func validateItems(items []template.NavItem, known map[string]struct{}, parent string, problems []string) []string {
	for _, item := range items {
		name := item.Label
		if parent != "" {
			name = parent + " > " + item.Label
		}
		if item.ModuleID != "" {
			if _, ok := known[item.ModuleID]; !ok {
				problems = append(problems, fmt.Sprintf("Navigation item %q references unknown module: %s", name, item.ModuleID))
			}
		}
		if item.Icon == "" {
			problems = append(problems, fmt.Sprintf("Navigation item %q has no icon", name))
		}
		if item.Route == "" {
			problems = append(problems, fmt.Sprintf("Navigation item %q has no route", name))
		}
		problems = validateItems(item.Children, known, name, problems)
	}
	return problems
}
