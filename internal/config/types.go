package config

import (
	"github.com/hookbridge/hookbridge/internal/event"
)

// Config represents the complete hookbridge configuration.
type Config struct {
	Service      ServiceConfig       `yaml:"service"`
	Server       ServerConfig        `yaml:"server"`
	API          APIConfig           `yaml:"api,omitempty"`
	Store        StoreConfig         `yaml:"store"`
	Workers      WorkersConfig       `yaml:"workers,omitempty"`
	Telemetry    TelemetryConfig     `yaml:"telemetry,omitempty"`
	Integrations []IntegrationConfig `yaml:"integrations"`
	Include      []string            `yaml:"include,omitempty"`

	// sourcePaths holds the absolute paths of every file that contributed
	// to this config (root plus includes), for fingerprinting.
	sourcePaths []string
}

// SourcePaths returns the files this config was assembled from.
func (c *Config) SourcePaths() []string {
	return c.sourcePaths
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	PIDFile   string `yaml:"pid_file,omitempty"`
}

// ServerConfig defines the webhook ingest listener.
type ServerConfig struct {
	Listen      string `yaml:"listen"`
	MaxBodySize int64  `yaml:"max_body_size,omitempty"`
}

// APIConfig defines the operational HTTP API server.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "postgres", "redis".
	Driver string `yaml:"driver"`

	// Path is the database file location (sqlite).
	Path string `yaml:"path,omitempty"`

	// DSN is the connection string (postgres).
	DSN string `yaml:"dsn,omitempty"`

	// Addr, Password and DB configure the redis driver.
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// WorkersConfig bounds the background pipeline execution pool.
type WorkersConfig struct {
	// Count is the number of pipeline workers.
	Count int `yaml:"count"`

	// QueueSize is the dispatch buffer; webhook handlers block once it
	// fills, which is the system's backpressure mechanism.
	QueueSize int `yaml:"queue_size"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// IntegrationConfig binds one webhook endpoint to its verification secret
// and processing pipelines.
type IntegrationConfig struct {
	Name string `yaml:"name"`

	// Source selects a built-in event-type registry ("jira") or the
	// generic "webhook" source configured entirely via EventTypes.
	Source string `yaml:"source"`

	// Path is the URL path for this integration's endpoint.
	Path string `yaml:"path,omitempty"`

	// SignatureHeader carries the HMAC signature, e.g. "X-Hub-Signature".
	SignatureHeader string `yaml:"signature_header,omitempty"`

	// EventTypeField is the top-level body field naming the event type.
	EventTypeField string `yaml:"event_type_field,omitempty"`

	// Secret verifies inbound signatures. Resolved once at startup.
	Secret Secret `yaml:"secret"`

	// EventTypes extends or overrides the source registry.
	EventTypes map[string]event.TypeSpec `yaml:"event_types,omitempty"`

	Pipelines []PipelineConfig `yaml:"pipelines"`
}

// PipelineConfig is an ordered processor chain terminating in one or more
// sinks.
type PipelineConfig struct {
	Name       string            `yaml:"name"`
	Processors []ProcessorConfig `yaml:"processors,omitempty"`
	Sinks      []SinkConfig      `yaml:"sinks"`
}

// Processor and sink kinds form a closed set; configuration enumerates
// them by a type tag.
const (
	ProcessorFilter = "filter"
	ProcessorMapper = "mapper"

	SinkDatabase = "database"

	SinkModeUpsert     = "upsert"
	SinkModeInsertOnly = "insert_only"
)

// ProcessorConfig is one stage of a pipeline: a filter expression or a
// mapper template, discriminated by Type.
type ProcessorConfig struct {
	Type string `yaml:"type"`

	// Expression is the boolean filter expression (type: filter).
	Expression string `yaml:"expression,omitempty"`

	// Template is the JSON-shaped output template (type: mapper).
	Template any `yaml:"template,omitempty"`
}

// SinkConfig is one pipeline output, discriminated by Type.
type SinkConfig struct {
	Type string `yaml:"type"`

	// Collection names the target document collection (type: database).
	Collection string `yaml:"collection,omitempty"`

	// Mode is "upsert" (replace-or-insert keyed by event identity) or
	// "insert_only" (append every delivery, no dedup).
	Mode string `yaml:"mode,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "hookbridge",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Listen:      "127.0.0.1:8081",
			MaxBodySize: DefaultMaxBodySize,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8080",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "./data/hookbridge.db",
		},
		Workers: WorkersConfig{
			Count:     4,
			QueueSize: 100,
		},
	}
}

// DefaultMaxBodySize caps webhook request bodies at 1 MB.
const DefaultMaxBodySize = 1048576
