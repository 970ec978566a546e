// Package filter evaluates boolean CEL expressions against event
// bindings. It is the expression engine behind pipeline filters; the
// fail-closed policy (treat any error as drop) belongs to the caller.
package filter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

var identPattern = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// reservedWords are CEL keywords and literals that cannot be declared as
// variables.
var reservedWords = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true,
	"break": true, "const": true, "continue": true, "else": true,
	"for": true, "function": true, "if": true, "import": true,
	"let": true, "loop": true, "package": true, "namespace": true,
	"return": true, "var": true, "void": true, "while": true,
}

const maxCachedPrograms = 128

// Evaluator compiles and runs filter expressions. The base environment
// declares eventType and body; each event's top-level body fields are
// declared dynamically, so expressions can reference them directly
// ("issue.id == ...") or through body ("body.issue.id == ...").
type Evaluator struct {
	base *cel.Env

	mu    sync.Mutex
	cache map[string]cel.Program
}

// NewEvaluator builds the shared evaluator. Safe for concurrent use.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("eventType", cel.StringType),
		cel.Variable("body", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}
	return &Evaluator{base: env, cache: make(map[string]cel.Program)}, nil
}

// Check parses expr and reports syntax errors. It does not type-check:
// identifiers the event body provides at runtime are only known per
// event, so a full compile would reject valid expressions.
func (e *Evaluator) Check(expr string) error {
	_, iss := e.base.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return fmt.Errorf("parse %q: %w", expr, iss.Err())
	}
	return nil
}

// Evaluate runs expr against the given bindings and returns its boolean
// result. Compile failures, runtime errors and non-boolean results are
// all returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, expr string, vars map[string]any) (bool, error) {
	prg, err := e.program(expr, vars)
	if err != nil {
		return false, err
	}

	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expr, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", expr, out.Value())
	}
	return b, nil
}

// program returns a compiled program for expr with the declarable names
// in vars, cached by expression + declared-name set.
func (e *Evaluator) program(expr string, vars map[string]any) (cel.Program, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if name == "eventType" || name == "body" {
			continue
		}
		// keys that aren't valid CEL identifiers stay reachable via body
		if !identPattern.MatchString(name) || reservedWords[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	key := expr + "\x00" + strings.Join(names, "\x00")

	e.mu.Lock()
	prg, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		return prg, nil
	}

	env := e.base
	if len(names) > 0 {
		decls := make([]cel.EnvOption, 0, len(names))
		for _, name := range names {
			decls = append(decls, cel.Variable(name, cel.DynType))
		}
		extended, err := e.base.Extend(decls...)
		if err != nil {
			return nil, fmt.Errorf("extend cel environment: %w", err)
		}
		env = extended
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, iss.Err())
	}

	compiled, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program for %q: %w", expr, err)
	}

	e.mu.Lock()
	if len(e.cache) >= maxCachedPrograms {
		e.cache = make(map[string]cel.Program)
	}
	e.cache[key] = compiled
	e.mu.Unlock()

	return compiled, nil
}
