// Package doctor lints hookbridge configuration beyond the hard
// validation performed at load time. It catches configurations that load
// cleanly but will misbehave at runtime: listener collisions, missing
// store directories, filter syntax errors, and a set of advisory
// warnings (secret hygiene, dead pipelines, ambiguous sink modes).
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/filter"
)

// Result holds the outcome of a lint run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single lint error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor lints a loaded configuration.
type Doctor struct {
	cfg  *config.Config
	eval *filter.Evaluator
}

// New creates a Doctor from a loaded config and a filter evaluator for
// expression syntax checks.
func New(cfg *config.Config, eval *filter.Evaluator) *Doctor {
	return &Doctor{cfg: cfg, eval: eval}
}

// Validate runs all checks and returns a result. Warnings never make
// the result invalid.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateListenAddrs(r)
	d.validateStorePaths(r)
	d.validateFilterSyntax(r)
	d.warnAPIAuth(r)
	d.warnSecretHygiene(r)
	d.warnIdleIntegrations(r)
	d.warnSinkModeMix(r)
	d.warnWorkerQueue(r)
	d.warnUnresolvedEnvVars(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateListenAddrs checks that the ingest and API servers do not bind
// the same address.
func (d *Doctor) validateListenAddrs(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == d.cfg.Server.Listen {
		d.addError(r, "listen", "api.listen",
			fmt.Sprintf("api.listen conflicts with server.listen (%q); both servers cannot bind the same address", d.cfg.API.Listen))
	}
}

// validateStorePaths checks that file-backed paths point into existing
// directories.
func (d *Doctor) validateStorePaths(r *Result) {
	if d.cfg.Store.Driver == "sqlite" {
		dir := filepath.Dir(d.cfg.Store.Path)
		if _, err := os.Stat(dir); err != nil {
			d.addError(r, "store", "store.path",
				fmt.Sprintf("parent directory %q does not exist", dir))
		}
	}
	if d.cfg.Service.PIDFile != "" {
		dir := filepath.Dir(d.cfg.Service.PIDFile)
		if _, err := os.Stat(dir); err != nil {
			d.addError(r, "service", "service.pid_file",
				fmt.Sprintf("parent directory %q does not exist", dir))
		}
	}
}

// validateFilterSyntax parses every filter expression. Load-time
// validation only checks that expressions are non-empty; a syntax error
// would otherwise surface as a per-event drop at runtime.
func (d *Doctor) validateFilterSyntax(r *Result) {
	for _, ic := range d.cfg.Integrations {
		for _, p := range ic.Pipelines {
			for xi, proc := range p.Processors {
				if proc.Type != config.ProcessorFilter {
					continue
				}
				field := fmt.Sprintf("integrations.%s.pipelines.%s.processors[%d]", ic.Name, p.Name, xi)

				if err := d.eval.Check(proc.Expression); err != nil {
					d.addError(r, "filters", field, err.Error())
					continue
				}

				switch strings.TrimSpace(proc.Expression) {
				case "false":
					d.addWarning(r, "filters", field,
						fmt.Sprintf("expression is constant false; pipeline %q drops every event", p.Name))
				case "true":
					d.addWarning(r, "filters", field,
						"expression is constant true; the filter is a no-op")
				}
			}
		}
	}
}

// warnAPIAuth warns when the API is reachable but no token can use it.
func (d *Doctor) warnAPIAuth(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "api", "api.auth",
			"API enabled but no bearer tokens configured; every request will be rejected")
	}
}

// warnSecretHygiene flags literal webhook secrets.
func (d *Doctor) warnSecretHygiene(r *Result) {
	for _, ic := range d.cfg.Integrations {
		if ic.Secret.Literal == "" {
			continue
		}
		field := fmt.Sprintf("integrations.%s.secret", ic.Name)
		d.addWarning(r, "secrets", field,
			"literal secret in config; prefer from_env or from_file")
		if len(ic.Secret.Literal) < 16 {
			d.addWarning(r, "secrets", field,
				fmt.Sprintf("literal secret is only %d characters; use at least 16", len(ic.Secret.Literal)))
		}
	}
}

// warnIdleIntegrations warns about integrations whose events go nowhere.
func (d *Doctor) warnIdleIntegrations(r *Result) {
	for _, ic := range d.cfg.Integrations {
		if len(ic.Pipelines) == 0 {
			d.addWarning(r, "pipelines", fmt.Sprintf("integrations.%s", ic.Name),
				fmt.Sprintf("integration %q has no pipelines; accepted events are discarded", ic.Name))
		}
	}
}

// warnSinkModeMix warns when one collection receives both upsert and
// insert_only writes, which makes its document count ambiguous.
func (d *Doctor) warnSinkModeMix(r *Result) {
	modes := make(map[string]map[string]bool)
	for _, ic := range d.cfg.Integrations {
		for _, p := range ic.Pipelines {
			for _, s := range p.Sinks {
				if modes[s.Collection] == nil {
					modes[s.Collection] = make(map[string]bool)
				}
				modes[s.Collection][s.Mode] = true
			}
		}
	}
	for collection, seen := range modes {
		if seen[config.SinkModeUpsert] && seen[config.SinkModeInsertOnly] {
			d.addWarning(r, "sinks", "",
				fmt.Sprintf("collection %q is written in both upsert and insert_only modes", collection))
		}
	}
}

// warnWorkerQueue warns about a dispatch queue smaller than the worker
// pool, which blocks webhook handlers under light bursts.
func (d *Doctor) warnWorkerQueue(r *Result) {
	if d.cfg.Workers.QueueSize < d.cfg.Workers.Count {
		d.addWarning(r, "workers", "workers.queue_size",
			fmt.Sprintf("queue_size (%d) is smaller than workers.count (%d); webhook handlers will block early",
				d.cfg.Workers.QueueSize, d.cfg.Workers.Count))
	}
}

// warnUnresolvedEnvVars warns about ${VAR} remnants left by
// interpolation when VAR is not set.
func (d *Doctor) warnUnresolvedEnvVars(r *Result) {
	envVarRe := regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

	check := func(field, value string) {
		for _, m := range envVarRe.FindAllStringSubmatch(value, -1) {
			if os.Getenv(m[1]) == "" {
				d.addWarning(r, "env_vars", field,
					fmt.Sprintf("environment variable ${%s} not set", m[1]))
			}
		}
	}

	check("store.dsn", d.cfg.Store.DSN)
	check("store.addr", d.cfg.Store.Addr)
	check("store.password", d.cfg.Store.Password)
	for _, ic := range d.cfg.Integrations {
		check(fmt.Sprintf("integrations.%s.secret", ic.Name), ic.Secret.Literal)
	}
}

// FormatHuman returns a human-readable lint report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
