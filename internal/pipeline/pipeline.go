package pipeline

import (
	"github.com/hookbridge/hookbridge/internal/config"
)

// step is one compiled processor in a pipeline chain.
type step struct {
	kind     string
	expr     string
	template any
}

// Pipeline is a compiled, immutable processing chain. Safe for
// concurrent use across workers.
type Pipeline struct {
	Name  string
	steps []step
	sinks []Sink
}

// Compile turns a validated pipeline config into its runnable form.
func Compile(cfg config.PipelineConfig) Pipeline {
	p := Pipeline{Name: cfg.Name}
	for _, proc := range cfg.Processors {
		p.steps = append(p.steps, step{
			kind:     proc.Type,
			expr:     proc.Expression,
			template: proc.Template,
		})
	}
	for _, s := range cfg.Sinks {
		p.sinks = append(p.sinks, Sink{Collection: s.Collection, Mode: s.Mode})
	}
	return p
}

// CompileAll builds the pipeline set for every integration, keyed by
// integration name.
func CompileAll(integrations []config.IntegrationConfig) map[string][]Pipeline {
	out := make(map[string][]Pipeline, len(integrations))
	for _, integ := range integrations {
		pipelines := make([]Pipeline, 0, len(integ.Pipelines))
		for _, pc := range integ.Pipelines {
			pipelines = append(pipelines, Compile(pc))
		}
		out[integ.Name] = pipelines
	}
	return out
}

// Bindings builds the evaluation context shared by filters and mappers:
// the top-level fields of body spread into scope, with eventType and body
// always bound explicitly. Explicit names win on collision.
func Bindings(eventType string, body map[string]any) map[string]any {
	vars := make(map[string]any, len(body)+2)
	for k, v := range body {
		vars[k] = v
	}
	vars["eventType"] = eventType
	vars["body"] = body
	return vars
}
