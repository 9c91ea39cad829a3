package domain

import "github.com/smallbiznis/imobi360/internal/template"

// TenantConfig is the runtime configuration of one tenant. It is derived on
// read and never persisted.
type TenantConfig struct {
	TenantID        string                  `json:"tenant_id"`
	TemplateID      *string                 `json:"template_id"`
	TemplateVersion *string                 `json:"template_version"`
	Modules         []template.ModuleConfig `json:"modules"`
	Navigation      template.Navigation     `json:"navigation"`
	EntityTypes     []template.EntityType   `json:"entity_types"`
	Views           []template.View         `json:"views"`
	Pipelines       []template.Pipeline     `json:"pipelines"`
	FieldPresets    []template.FieldPreset  `json:"field_presets,omitempty"`
	RBACPresets     template.RBACPresets    `json:"rbac_presets"`
	Settings        map[string]any          `json:"settings"`
}

func (c *TenantConfig) Module(id string) (*template.ModuleConfig, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

func (c *TenantConfig) EntityType(id string) (*template.EntityType, bool) {
	for i := range c.EntityTypes {
		if c.EntityTypes[i].ID == id {
			return &c.EntityTypes[i], true
		}
	}
	return nil, false
}

// ModuleEnabled reports whether id names a configured, enabled module.
func (c *TenantConfig) ModuleEnabled(id string) bool {
	m, ok := c.Module(id)
	return ok && m.Enabled
}
