package logging

import (
	"testing"

	"github.com/sirupsen/logrus"

	"jobradar/internal/config"
)

func TestNewDefaultsToInfoAndJSON(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"

	entry := New(cfg)
	if entry.Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %v", entry.Logger.GetLevel())
	}
	if _, ok := entry.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("expected JSON formatter, got %T", entry.Logger.Formatter)
	}
}

func TestNewFallsBackOnInvalidLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "not-a-level"
	cfg.Logging.Output = "stdout"

	entry := New(cfg)
	if entry.Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected fallback to info level, got %v", entry.Logger.GetLevel())
	}
}

func TestNewSkipsBetterstackAdapterWithoutSourceToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Output = "stdout"
	cfg.Logging.Adapters = append(cfg.Logging.Adapters, struct {
		Name    string                 `yaml:"name"`
		Type    string                 `yaml:"type"`
		Enabled bool                   `yaml:"enabled"`
		Options map[string]interface{} `yaml:"options"`
	}{Name: "betterstack", Type: "betterstack", Enabled: true})

	entry := New(cfg)
	if len(entry.Logger.Hooks[logrus.InfoLevel]) != 0 {
		t.Error("expected no hook registered without a source token")
	}
}
