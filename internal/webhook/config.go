package webhook

import (
	"fmt"

	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/source"
)

// FromConfig compiles the validated gateway config into the ingest
// listener's form: secrets resolved to bytes and per-integration
// event-type registries built from the source kind plus any overrides.
func FromConfig(cfg *config.Config) (Config, error) {
	out := Config{
		Listen:      cfg.Server.Listen,
		MaxBodySize: cfg.Server.MaxBodySize,
		Trace:       cfg.Telemetry.Enabled,
		Endpoints:   make([]Endpoint, 0, len(cfg.Integrations)),
	}

	for _, integ := range cfg.Integrations {
		secret, err := integ.Secret.Resolve()
		if err != nil {
			return Config{}, fmt.Errorf("integration %q: %w", integ.Name, err)
		}

		registry, err := source.ForKind(integ.Source)
		if err != nil {
			return Config{}, fmt.Errorf("integration %q: %w", integ.Name, err)
		}
		if len(integ.EventTypes) > 0 {
			registry = registry.Merge(integ.EventTypes)
		}

		out.Endpoints = append(out.Endpoints, Endpoint{
			Integration:     integ.Name,
			Path:            integ.Path,
			SignatureHeader: integ.SignatureHeader,
			EventTypeField:  integ.EventTypeField,
			Secret:          secret,
			Registry:        registry,
		})
	}

	return out, nil
}
