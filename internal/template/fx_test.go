package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestModuleProvidesRegistry(t *testing.T) {
	var reg *Registry
	app := fx.New(Module, fx.NopLogger, fx.Populate(&reg))
	require.NoError(t, app.Err())
	require.NotNil(t, reg)

	m, err := reg.Get("imobi360")
	require.NoError(t, err)
	var deals ModuleConfig
	for _, mod := range m.Modules {
		if mod.ID == "deals" {
			deals = mod
		}
	}
	assert.True(t, deals.Enabled)
}
