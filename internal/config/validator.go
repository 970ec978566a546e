package config

import (
	"fmt"
	"strings"

	"github.com/hookbridge/hookbridge/internal/event"
	"github.com/hookbridge/hookbridge/internal/source"
)

// validate performs semantic validation on the fully merged, defaulted
// configuration. Secrets are resolved here so a missing environment
// variable or unreadable file fails the process before any listener
// starts.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if cfg.Server.MaxBodySize <= 0 {
		return fmt.Errorf("server.max_body_size must be positive")
	}

	if err := validateStore(&cfg.Store); err != nil {
		return err
	}

	if cfg.Workers.Count <= 0 {
		return fmt.Errorf("workers.count must be positive")
	}
	if cfg.Workers.QueueSize <= 0 {
		return fmt.Errorf("workers.queue_size must be positive")
	}

	if cfg.API.Enabled {
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				return fmt.Errorf("api.auth.tokens[%d].token is required", i)
			}
			if envVarPattern.MatchString(tok.Token) {
				matches := envVarPattern.FindStringSubmatch(tok.Token)
				if len(matches) > 1 {
					return fmt.Errorf("api.auth.tokens[%d].token: environment variable ${%s} is not set", i, matches[1])
				}
				return fmt.Errorf("api.auth.tokens[%d].token: unresolved environment variable", i)
			}
			if len(tok.Scopes) == 0 {
				return fmt.Errorf("api.auth.tokens[%d].scopes must be non-empty", i)
			}
		}
	}

	if len(cfg.Integrations) == 0 {
		return fmt.Errorf("at least one integration is required")
	}

	seenNames := make(map[string]bool)
	seenPaths := make(map[string]bool)
	for i := range cfg.Integrations {
		ic := &cfg.Integrations[i]
		label := ic.Name
		if label == "" {
			label = fmt.Sprintf("integrations[%d]", i)
		}

		if ic.Name == "" {
			return fmt.Errorf("%s: name is required", label)
		}
		if seenNames[ic.Name] {
			return fmt.Errorf("integration %q: duplicate name", ic.Name)
		}
		seenNames[ic.Name] = true

		if _, err := source.ForKind(ic.Source); err != nil {
			return fmt.Errorf("integration %q: %w", ic.Name, err)
		}

		if ic.Path == "" {
			return fmt.Errorf("integration %q: path is required", ic.Name)
		}
		if !strings.HasPrefix(ic.Path, "/") {
			return fmt.Errorf("integration %q: path must start with / (got %q)", ic.Name, ic.Path)
		}
		if seenPaths[ic.Path] {
			return fmt.Errorf("integration %q: duplicate path %q", ic.Name, ic.Path)
		}
		seenPaths[ic.Path] = true

		if ic.Secret.IsZero() {
			return fmt.Errorf("integration %q: secret is required", ic.Name)
		}
		if _, err := ic.Secret.Resolve(); err != nil {
			return fmt.Errorf("integration %q: %w", ic.Name, err)
		}

		for et, spec := range ic.EventTypes {
			if len(spec.PKFields) == 0 {
				return fmt.Errorf("integration %q: event_types[%s]: pk must be non-empty", ic.Name, et)
			}
			if spec.Operation != event.OpWrite && spec.Operation != event.OpDelete {
				return fmt.Errorf("integration %q: event_types[%s]: operation must be write or delete (got %q)", ic.Name, et, spec.Operation)
			}
		}

		if err := validatePipelines(ic); err != nil {
			return err
		}
	}

	return nil
}

func validateStore(sc *StoreConfig) error {
	switch sc.Driver {
	case "sqlite":
		if sc.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if sc.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case "redis":
		if sc.Addr == "" {
			return fmt.Errorf("store.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of: sqlite, postgres, redis (got %q)", sc.Driver)
	}
	return nil
}

func validatePipelines(ic *IntegrationConfig) error {
	seen := make(map[string]bool)
	for pi := range ic.Pipelines {
		p := &ic.Pipelines[pi]
		if p.Name == "" {
			return fmt.Errorf("integration %q: pipelines[%d]: name is required", ic.Name, pi)
		}
		if seen[p.Name] {
			return fmt.Errorf("integration %q: duplicate pipeline name %q", ic.Name, p.Name)
		}
		seen[p.Name] = true

		for xi, proc := range p.Processors {
			switch proc.Type {
			case ProcessorFilter:
				if strings.TrimSpace(proc.Expression) == "" {
					return fmt.Errorf("integration %q: pipeline %q: processors[%d]: expression is required for filters", ic.Name, p.Name, xi)
				}
			case ProcessorMapper:
				if proc.Template == nil {
					return fmt.Errorf("integration %q: pipeline %q: processors[%d]: template is required for mappers", ic.Name, p.Name, xi)
				}
			default:
				return fmt.Errorf("integration %q: pipeline %q: processors[%d]: type must be filter or mapper (got %q)", ic.Name, p.Name, xi, proc.Type)
			}
		}

		if len(p.Sinks) == 0 {
			return fmt.Errorf("integration %q: pipeline %q: at least one sink is required", ic.Name, p.Name)
		}
		for si, sink := range p.Sinks {
			if sink.Type != SinkDatabase {
				return fmt.Errorf("integration %q: pipeline %q: sinks[%d]: type must be database (got %q)", ic.Name, p.Name, si, sink.Type)
			}
			if sink.Collection == "" {
				return fmt.Errorf("integration %q: pipeline %q: sinks[%d]: collection is required", ic.Name, p.Name, si)
			}
			if sink.Mode != SinkModeUpsert && sink.Mode != SinkModeInsertOnly {
				return fmt.Errorf("integration %q: pipeline %q: sinks[%d]: mode must be upsert or insert_only (got %q)", ic.Name, p.Name, si, sink.Mode)
			}
		}
	}
	return nil
}
