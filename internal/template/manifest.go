package template

// Manifest is a named, versioned bundle of default tenant configuration.
type Manifest struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Version     string `yaml:"version" json:"version"`
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	Category    string `yaml:"category" json:"category"`
	Locale      string `yaml:"locale" json:"locale"`

	Modules      []ModuleConfig `yaml:"modules" json:"modules"`
	Navigation   Navigation     `yaml:"navigation" json:"navigation"`
	EntityTypes  []EntityType   `yaml:"entity_types" json:"entity_types"`
	Views        []View         `yaml:"views" json:"views"`
	FieldPresets []FieldPreset  `yaml:"field_presets" json:"field_presets"`
	Pipelines    []Pipeline     `yaml:"pipelines" json:"pipelines"`
	RBACPresets  *RBACPresets   `yaml:"rbac_presets,omitempty" json:"rbac_presets,omitempty"`
	Settings     map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
}

type ModuleConfig struct {
	ID           string         `yaml:"id" json:"id"`
	Label        string         `yaml:"label" json:"label"`
	Icon         string         `yaml:"icon" json:"icon"`
	Enabled      bool           `yaml:"enabled" json:"enabled"`
	Order        int            `yaml:"order" json:"order"`
	EntityTypeID *string        `yaml:"entity_type_id" json:"entity_type_id"`
	Route        string         `yaml:"route" json:"route"`
	Settings     map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
}

type Navigation struct {
	SidebarItems     []NavItem `yaml:"sidebar_items" json:"sidebar_items"`
	ShowIcons        bool      `yaml:"show_icons" json:"show_icons"`
	Position         string    `yaml:"position" json:"position"`
	UserCustomizable bool      `yaml:"user_customizable" json:"user_customizable"`
}

type NavItem struct {
	ModuleID string    `yaml:"module_id" json:"module_id"`
	Label    string    `yaml:"label" json:"label"`
	Icon     string    `yaml:"icon" json:"icon"`
	Route    string    `yaml:"route" json:"route"`
	Order    int       `yaml:"order" json:"order"`
	Children []NavItem `yaml:"children,omitempty" json:"children,omitempty"`
	MinRole  string    `yaml:"min_role,omitempty" json:"min_role,omitempty"`
}

type EntityType struct {
	ID           string `yaml:"id" json:"id"`
	NameSingular string `yaml:"name_singular" json:"name_singular"`
	NamePlural   string `yaml:"name_plural" json:"name_plural"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Icon         string `yaml:"icon" json:"icon"`
	HasPipeline  bool   `yaml:"has_pipeline" json:"has_pipeline"`
	IsPrimary    bool   `yaml:"is_primary,omitempty" json:"is_primary,omitempty"`
	TableName    string `yaml:"table_name" json:"table_name"`
	TypeValue    string `yaml:"type_value,omitempty" json:"type_value,omitempty"`
}

type View struct {
	EntityTypeID string         `yaml:"entity_type_id" json:"entity_type_id"`
	Type         string         `yaml:"type" json:"type"`
	Label        string         `yaml:"label" json:"label"`
	IsDefault    bool           `yaml:"is_default" json:"is_default"`
	Config       map[string]any `yaml:"config" json:"config"`
}

type FieldPreset struct {
	EntityTypeID string            `yaml:"entity_type_id" json:"entity_type_id"`
	Fields       []FieldDefinition `yaml:"fields" json:"fields"`
}

type FieldDefinition struct {
	FieldName  string         `yaml:"field_name" json:"field_name"`
	FieldLabel string         `yaml:"field_label" json:"field_label"`
	FieldType  string         `yaml:"field_type" json:"field_type"`
	Options    map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
	IsRequired bool           `yaml:"is_required" json:"is_required"`
	Position   int            `yaml:"position" json:"position"`
}

type Pipeline struct {
	EntityTypeID string  `yaml:"entity_type_id" json:"entity_type_id"`
	Name         string  `yaml:"name" json:"name"`
	IsDefault    bool    `yaml:"is_default" json:"is_default"`
	Stages       []Stage `yaml:"stages" json:"stages"`
}

type Stage struct {
	Name     string `yaml:"name" json:"name"`
	Color    string `yaml:"color" json:"color"`
	Position int    `yaml:"position" json:"position"`
	IsWon    bool   `yaml:"is_won,omitempty" json:"is_won,omitempty"`
	IsLost   bool   `yaml:"is_lost,omitempty" json:"is_lost,omitempty"`
}

type RBACPresets struct {
	RoleLabels       map[string]string `yaml:"role_labels,omitempty" json:"role_labels,omitempty"`
	RoleDescriptions map[string]string `yaml:"role_descriptions,omitempty" json:"role_descriptions,omitempty"`
	DefaultRole      string            `yaml:"default_role,omitempty" json:"default_role,omitempty"`
}

// PipelinesFor returns the pipelines declared for an entity type.
func (m *Manifest) PipelinesFor(entityTypeID string) []Pipeline {
	var out []Pipeline
	for _, p := range m.Pipelines {
		if p.EntityTypeID == entityTypeID {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	out := *m
	out.Modules = make([]ModuleConfig, len(m.Modules))
	for i, mod := range m.Modules {
		out.Modules[i] = mod
		if mod.EntityTypeID != nil {
			id := *mod.EntityTypeID
			out.Modules[i].EntityTypeID = &id
		}
		out.Modules[i].Settings = CopyMap(mod.Settings)
	}
	out.Navigation = m.Navigation
	out.Navigation.SidebarItems = cloneNavItems(m.Navigation.SidebarItems)
	out.EntityTypes = append([]EntityType(nil), m.EntityTypes...)
	out.Views = make([]View, len(m.Views))
	for i, v := range m.Views {
		out.Views[i] = v
		out.Views[i].Config = CopyMap(v.Config)
	}
	out.FieldPresets = make([]FieldPreset, len(m.FieldPresets))
	for i, p := range m.FieldPresets {
		out.FieldPresets[i] = FieldPreset{EntityTypeID: p.EntityTypeID, Fields: make([]FieldDefinition, len(p.Fields))}
		for j, f := range p.Fields {
			out.FieldPresets[i].Fields[j] = f
			out.FieldPresets[i].Fields[j].Options = CopyMap(f.Options)
		}
	}
	out.Pipelines = make([]Pipeline, len(m.Pipelines))
	for i, p := range m.Pipelines {
		out.Pipelines[i] = p
		out.Pipelines[i].Stages = append([]Stage(nil), p.Stages...)
	}
	if m.RBACPresets != nil {
		rbac := RBACPresets{
			RoleLabels:       copyStrings(m.RBACPresets.RoleLabels),
			RoleDescriptions: copyStrings(m.RBACPresets.RoleDescriptions),
			DefaultRole:      m.RBACPresets.DefaultRole,
		}
		out.RBACPresets = &rbac
	}
	out.Settings = CopyMap(m.Settings)
	return &out
}

func cloneNavItems(items []NavItem) []NavItem {
	if items == nil {
		return nil
	}
	out := make([]NavItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Children = cloneNavItems(item.Children)
	}
	return out
}

// CopyMap deep copies nested maps and slices. Scalars are shared.
func CopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = CopyValue(v)
	}
	return out
}

// CopyValue deep copies maps and slices inside v.
func CopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return CopyMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = CopyValue(item)
		}
		return out
	default:
		return v
	}
}

func copyStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
