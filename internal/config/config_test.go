package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "pebble", cfg.Drafts.Backend)
	assert.Equal(t, "spm:tratamiento:", cfg.Drafts.Prefix)
	assert.Equal(t, []string{"0100"}, cfg.Stock.AllowedWarehouses)
	assert.Empty(t, cfg.Events.Sinks)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "memory drafts need no dir", modify: func(c *Config) { c.Drafts.Backend = "memory"; c.Drafts.Dir = "" }},
		{name: "missing base url", modify: func(c *Config) { c.Backend.BaseURL = "" }, wantField: "backend.base_url"},
		{name: "relative base url", modify: func(c *Config) { c.Backend.BaseURL = "/api" }, wantField: "backend.base_url"},
		{name: "zero timeout", modify: func(c *Config) { c.Backend.Timeout = 0 }, wantField: "backend.timeout"},
		{name: "unknown drafts backend", modify: func(c *Config) { c.Drafts.Backend = "redis" }, wantField: "drafts.backend"},
		{name: "pebble without dir", modify: func(c *Config) { c.Drafts.Dir = "" }, wantField: "drafts.dir"},
		{name: "kafka without bootstrap", modify: func(c *Config) { c.Events.Sinks = []string{"kafka"} }, wantField: "events.kafka_bootstrap"},
		{name: "kafka-tx without tx id", modify: func(c *Config) {
			c.Events.Sinks = []string{"kafka-tx"}
			c.Events.KafkaBootstrap = "localhost:9092"
			c.Events.TxID = ""
		}, wantField: "events.tx_id"},
		{name: "nats without url", modify: func(c *Config) { c.Events.Sinks = []string{"nats"} }, wantField: "events.nats_url"},
		{name: "unknown sink", modify: func(c *Config) { c.Events.Sinks = []string{"smtp"} }, wantField: "events.sinks"},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "trace" }, wantField: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ves ValidationErrors
			require.True(t, errors.As(err, &ves), "want ValidationErrors, got %v", err)
			var fields []string
			for _, ve := range ves {
				fields = append(fields, ve.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestLoadFromFile_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spm.yaml")
	data := `
backend:
  base_url: https://spm.example.com
  timeout: 5s
drafts:
  backend: sqlite
stock:
  allowed_warehouses: ["100", "9999"]
user:
  id: 7
  name: planner
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://spm.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "sqlite", cfg.Drafts.Backend)
	assert.Equal(t, ".spm/drafts", cfg.Drafts.Dir, "unset keys keep defaults")
	assert.Equal(t, []string{"100", "9999"}, cfg.Stock.AllowedWarehouses)
	assert.EqualValues(t, 7, cfg.User.ID)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unclosed"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "spm.yaml")
	cfg := DefaultConfig()
	cfg.Events.Sinks = []string{"file"}
	require.NoError(t, cfg.SaveToFile(path))

	back, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(nil)
	cfg.Merge(&Config{
		Backend: BackendConfig{Token: "tok"},
		Drafts:  DraftsConfig{Backend: "badger"},
		Log:     LogConfig{Level: "debug"},
	})
	assert.Equal(t, "tok", cfg.Backend.Token)
	assert.Equal(t, "badger", cfg.Drafts.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL, "zero values do not override")
	assert.Equal(t, []string{"0100"}, cfg.Stock.AllowedWarehouses)
}
