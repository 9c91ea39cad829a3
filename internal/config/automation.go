package config

import (
	"errors"
	"log"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AutomationConfig describes the external automation runner that receives
// domain events.
type AutomationConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	WebhookURL    string        `mapstructure:"webhookUrl"`
	SigningSecret string        `mapstructure:"signingSecret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func DefaultAutomationConfig() AutomationConfig {
	return AutomationConfig{
		Enabled: false,
		Timeout: 10 * time.Second,
	}
}

type AutomationHolder struct {
	current atomic.Value // holds AutomationConfig
}

// NewStaticAutomationHolder returns a holder that never reloads.
func NewStaticAutomationHolder(cfg AutomationConfig) *AutomationHolder {
	h := &AutomationHolder{}
	h.current.Store(cfg)
	return h
}

func NewAutomationHolder() (*AutomationHolder, error) {
	v := viper.New()

	v.SetConfigName("automation")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/imobi360/config")
	v.AddConfigPath("/etc/imobi360")
	v.AddConfigPath(".")

	v.SetEnvPrefix("IMOBI360")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAutomationConfig()
	v.SetDefault("automation.enabled", defaults.Enabled)
	v.SetDefault("automation.timeout", defaults.Timeout)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeAutomation(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticAutomationHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeAutomation(v)
		if err != nil {
			log.Printf("[automation-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[automation-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func decodeAutomation(v *viper.Viper) (AutomationConfig, error) {
	var cfg AutomationConfig
	if err := v.UnmarshalKey("automation", &cfg); err != nil {
		return AutomationConfig{}, err
	}
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	if err := ValidateAutomationConfig(cfg); err != nil {
		return AutomationConfig{}, err
	}
	return cfg, nil
}

func (h *AutomationHolder) Get() AutomationConfig {
	return h.current.Load().(AutomationConfig)
}

// ValidateAutomationConfig rejects enabled configs that cannot deliver.
func ValidateAutomationConfig(cfg AutomationConfig) error {
	if cfg.Timeout <= 0 {
		return errors.New("automation.timeout must be positive")
	}
	if !cfg.Enabled {
		return nil
	}
	u, err := url.Parse(cfg.WebhookURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("automation.webhookUrl must be an absolute http(s) url")
	}
	if strings.TrimSpace(cfg.SigningSecret) == "" {
		return errors.New("automation.signingSecret cannot be empty")
	}
	return nil
}
