package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("REDIS_ENABLED", "off")
	t.Setenv("DISPATCHER_BATCH_SIZE", "25")
	t.Setenv("TENANT_CONFIG_CACHE_TTL", "90s")
	t.Setenv("CUSTOM_FIELD_CACHE_TTL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 25, cfg.Dispatcher.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.TenantConfigCacheTTL)
	assert.Equal(t, time.Minute, cfg.CustomFieldCacheTTL)
	assert.False(t, cfg.TenantConfigLocalCache)
}

func TestValidateAutomationConfig(t *testing.T) {
	assert.NoError(t, ValidateAutomationConfig(DefaultAutomationConfig()))

	cfg := AutomationConfig{Enabled: true, Timeout: time.Second, WebhookURL: "ftp://x", SigningSecret: "s"}
	assert.Error(t, ValidateAutomationConfig(cfg))

	cfg.WebhookURL = "https://automation.example.com/hook"
	assert.NoError(t, ValidateAutomationConfig(cfg))

	cfg.SigningSecret = " "
	assert.Error(t, ValidateAutomationConfig(cfg))

	cfg.SigningSecret = "s"
	cfg.Timeout = 0
	assert.Error(t, ValidateAutomationConfig(cfg))
}

func TestNewAutomationHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	body := "automation:\n  enabled: true\n  webhookUrl: https://hooks.example.com/crm\n  signingSecret: shh\n  timeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "automation.yml"), []byte(body), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewAutomationHolder()
	require.NoError(t, err)
	cfg := holder.Get()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "https://hooks.example.com/crm", cfg.WebhookURL)
	assert.Equal(t, "shh", cfg.SigningSecret)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}
