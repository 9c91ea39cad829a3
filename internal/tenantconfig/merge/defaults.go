package merge

import "github.com/smallbiznis/imobi360/internal/template"

// Layer is the mergeable body of a tenant configuration.
type Layer struct {
	Modules      []template.ModuleConfig
	Navigation   template.Navigation
	EntityTypes  []template.EntityType
	Views        []template.View
	Pipelines    []template.Pipeline
	FieldPresets []template.FieldPreset
	RBACPresets  template.RBACPresets
	Settings     map[string]any
}

// CoreDefaults is the baseline used when a tenant has no template. It is not
// a valid configuration on its own: it declares no modules.
func CoreDefaults() Layer {
	return Layer{
		Modules: []template.ModuleConfig{},
		Navigation: template.Navigation{
			SidebarItems:     []template.NavItem{},
			ShowIcons:        true,
			Position:         "left",
			UserCustomizable: true,
		},
		EntityTypes:  []template.EntityType{},
		Views:        []template.View{},
		Pipelines:    []template.Pipeline{},
		FieldPresets: []template.FieldPreset{},
		RBACPresets:  defaultRBAC(),
		Settings:     map[string]any{},
	}
}

func defaultRBAC() template.RBACPresets {
	return template.RBACPresets{
		RoleLabels: map[string]string{
			"admin":   "Administrator",
			"manager": "Manager",
			"member":  "Member",
			"viewer":  "Viewer",
		},
		RoleDescriptions: map[string]string{
			"admin":   "Full system access",
			"manager": "Team management access",
			"member":  "Standard user access",
			"viewer":  "Read-only access",
		},
		DefaultRole: "member",
	}
}
