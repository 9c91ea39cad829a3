package merge

import (
	"fmt"

	"github.com/smallbiznis/imobi360/internal/template"
	"github.com/smallbiznis/imobi360/internal/tenantconfig/domain"
)

// MergeTemplateWithCore lays a template over the core defaults. Template keys
// replace the defaults wholesale; rbac presets and settings fall back to the
// core values when the template omits them.
func MergeTemplateWithCore(tpl *template.Manifest) Layer {
	core := CoreDefaults()
	if tpl == nil {
		return core
	}
	tpl = tpl.Clone()

	layer := Layer{
		Modules:      tpl.Modules,
		Navigation:   tpl.Navigation,
		EntityTypes:  tpl.EntityTypes,
		Views:        tpl.Views,
		Pipelines:    tpl.Pipelines,
		FieldPresets: tpl.FieldPresets,
		RBACPresets:  core.RBACPresets,
		Settings:     tpl.Settings,
	}
	if tpl.RBACPresets != nil {
		layer.RBACPresets = *tpl.RBACPresets
	}
	if layer.Settings == nil {
		layer.Settings = map[string]any{}
	}
	return layer
}

// MergeTenantOverrides applies tenant overrides to base. List entries are
// matched by key and merged field by field; unmatched base entries pass
// through untouched and unmatched patches are ignored.
func MergeTenantOverrides(base Layer, o *domain.Overrides) (Layer, error) {
	if o == nil {
		return base, nil
	}
	out := base

	if len(o.Modules) > 0 {
		modules, err := mergeList(base.Modules, o.Modules, func(m template.ModuleConfig, p domain.Patch) bool {
			return stringKey(p, "id") == m.ID
		})
		if err != nil {
			return base, fmt.Errorf("modules: %w", err)
		}
		out.Modules = modules
	}

	if o.Navigation != nil {
		nav, err := mergeItem(base.Navigation, o.Navigation)
		if err != nil {
			return base, fmt.Errorf("navigation: %w", err)
		}
		out.Navigation = nav
	}

	if len(o.EntityTypes) > 0 {
		entityTypes, err := mergeList(base.EntityTypes, o.EntityTypes, func(et template.EntityType, p domain.Patch) bool {
			return stringKey(p, "id") == et.ID
		})
		if err != nil {
			return base, fmt.Errorf("entity_types: %w", err)
		}
		out.EntityTypes = entityTypes
	}

	if len(o.Views) > 0 {
		views, err := mergeList(base.Views, o.Views, func(v template.View, p domain.Patch) bool {
			return stringKey(p, "entity_type_id") == v.EntityTypeID && stringKey(p, "type") == v.Type
		})
		if err != nil {
			return base, fmt.Errorf("views: %w", err)
		}
		out.Views = views
	}

	if len(o.Pipelines) > 0 {
		pipelines, err := mergeList(base.Pipelines, o.Pipelines, func(pl template.Pipeline, p domain.Patch) bool {
			return stringKey(p, "entity_type_id") == pl.EntityTypeID && stringKey(p, "name") == pl.Name
		})
		if err != nil {
			return base, fmt.Errorf("pipelines: %w", err)
		}
		out.Pipelines = pipelines
	}

	if o.Settings != nil {
		out.Settings = DeepMerge(base.Settings, o.Settings)
	}

	return out, nil
}

func mergeList[T any](base []T, patches []domain.Patch, match func(T, domain.Patch) bool) ([]T, error) {
	out := make([]T, len(base))
	for i, item := range base {
		patch, ok := findPatch(patches, func(p domain.Patch) bool { return match(item, p) })
		if !ok {
			out[i] = item
			continue
		}
		merged, err := mergeItem(item, patch)
		if err != nil {
			return nil, err
		}
		out[i] = merged
	}
	return out, nil
}

// BuildTenantConfig merges core defaults, the template (nil for none) and the
// tenant overrides into a runtime configuration.
func BuildTenantConfig(tenantID string, tpl *template.Manifest, settings *domain.TenantSettings) (*domain.TenantConfig, error) {
	layer := MergeTemplateWithCore(tpl)
	if settings != nil {
		var err error
		layer, err = MergeTenantOverrides(layer, settings.Overrides)
		if err != nil {
			return nil, err
		}
	}

	cfg := &domain.TenantConfig{
		TenantID:     tenantID,
		Modules:      layer.Modules,
		Navigation:   layer.Navigation,
		EntityTypes:  layer.EntityTypes,
		Views:        layer.Views,
		Pipelines:    layer.Pipelines,
		FieldPresets: layer.FieldPresets,
		RBACPresets:  layer.RBACPresets,
		Settings:     layer.Settings,
	}
	if tpl != nil {
		id, version := tpl.ID, tpl.Version
		cfg.TemplateID = &id
		cfg.TemplateVersion = &version
	}
	return cfg, nil
}
