// Package config provides configuration loading for spmctl.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spm/internal/session"
)

// Config represents the complete spmctl configuration
type Config struct {
	Backend BackendConfig     `yaml:"backend"`
	Drafts  DraftsConfig      `yaml:"drafts"`
	Events  EventsConfig      `yaml:"events"`
	Stock   StockConfig       `yaml:"stock"`
	Metrics MetricsConfig     `yaml:"metrics"`
	Log     LogConfig         `yaml:"log"`
	User    session.Principal `yaml:"user"`
}

// BackendConfig configures the SPM REST API
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Token   string        `yaml:"token"`
}

// DraftsConfig configures draft persistence
type DraftsConfig struct {
	// Backend is one of memory, pebble, badger, sqlite
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	Prefix  string `yaml:"prefix"`
}

// EventsConfig configures the treatment journal
type EventsConfig struct {
	// Sinks is any of file, kafka, kafka-tx, nats (empty = no journal)
	Sinks          []string `yaml:"sinks"`
	Dir            string   `yaml:"dir"`
	KafkaBootstrap string   `yaml:"kafka_bootstrap"`
	Topic          string   `yaml:"topic"`
	TxID           string   `yaml:"tx_id"`
	NATSURL        string   `yaml:"nats_url"`
	Subject        string   `yaml:"subject"`
}

// StockConfig lists the warehouses whose stock counts as directly available
type StockConfig struct {
	AllowedWarehouses []string `yaml:"allowed_warehouses"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Drafts: DraftsConfig{
			Backend: "pebble",
			Dir:     ".spm/drafts",
			Prefix:  "spm:tratamiento:",
		},
		Events: EventsConfig{
			Dir:     ".spm/events",
			Topic:   "spm.treatments",
			TxID:    "spmctl-journal",
			Subject: "spm.events",
		},
		Stock: StockConfig{
			AllowedWarehouses: []string{"0100"},
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every problem found by Validate.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) { errs = append(errs, ValidationError{Field: field, Message: msg}) }

	if c.Backend.BaseURL == "" {
		add("backend.base_url", "is required")
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("backend.base_url", "must be an absolute http(s) URL")
	}
	if c.Backend.Timeout <= 0 {
		add("backend.timeout", "must be positive")
	}

	switch c.Drafts.Backend {
	case "memory":
	case "pebble", "badger", "sqlite":
		if c.Drafts.Dir == "" {
			add("drafts.dir", "is required for persistent backends")
		}
	default:
		add("drafts.backend", fmt.Sprintf("unknown backend %q", c.Drafts.Backend))
	}

	for _, s := range c.Events.Sinks {
		switch s {
		case "file":
			if c.Events.Dir == "" {
				add("events.dir", "is required for the file sink")
			}
		case "kafka", "kafka-tx":
			if c.Events.KafkaBootstrap == "" {
				add("events.kafka_bootstrap", "is required for kafka sinks")
			}
			if c.Events.Topic == "" {
				add("events.topic", "is required for kafka sinks")
			}
			if s == "kafka-tx" && c.Events.TxID == "" {
				add("events.tx_id", "is required for the kafka-tx sink")
			}
		case "nats":
			if c.Events.NATSURL == "" {
				add("events.nats_url", "is required for the nats sink")
			}
			if c.Events.Subject == "" {
				add("events.subject", "is required for the nats sink")
			}
		default:
			add("events.sinks", fmt.Sprintf("unknown sink %q", s))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Backend
	if other.Backend.BaseURL != "" {
		c.Backend.BaseURL = other.Backend.BaseURL
	}
	if other.Backend.Timeout != 0 {
		c.Backend.Timeout = other.Backend.Timeout
	}
	if other.Backend.Token != "" {
		c.Backend.Token = other.Backend.Token
	}

	// Drafts
	if other.Drafts.Backend != "" {
		c.Drafts.Backend = other.Drafts.Backend
	}
	if other.Drafts.Dir != "" {
		c.Drafts.Dir = other.Drafts.Dir
	}
	if other.Drafts.Prefix != "" {
		c.Drafts.Prefix = other.Drafts.Prefix
	}

	// Events
	if len(other.Events.Sinks) > 0 {
		c.Events.Sinks = other.Events.Sinks
	}
	if other.Events.Dir != "" {
		c.Events.Dir = other.Events.Dir
	}
	if other.Events.KafkaBootstrap != "" {
		c.Events.KafkaBootstrap = other.Events.KafkaBootstrap
	}
	if other.Events.Topic != "" {
		c.Events.Topic = other.Events.Topic
	}
	if other.Events.TxID != "" {
		c.Events.TxID = other.Events.TxID
	}
	if other.Events.NATSURL != "" {
		c.Events.NATSURL = other.Events.NATSURL
	}
	if other.Events.Subject != "" {
		c.Events.Subject = other.Events.Subject
	}

	// Stock
	if len(other.Stock.AllowedWarehouses) > 0 {
		c.Stock.AllowedWarehouses = other.Stock.AllowedWarehouses
	}

	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.User.ID != 0 || other.User.Name != "" {
		c.User = other.User
	}
}
