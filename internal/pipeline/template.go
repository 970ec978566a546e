package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hookbridge/hookbridge/internal/event"
)

// ErrUnresolvedReference is returned when a template placeholder names a
// path that does not exist in the binding context.
var ErrUnresolvedReference = errors.New("unresolved template reference")

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)
	barePattern        = regexp.MustCompile(`^\{\{\s*([^{}\s]+)\s*\}\}$`)
)

// Render walks a JSON-shaped template and substitutes placeholders
// against the binding context.
//
// A string leaf that is exactly one placeholder takes the referenced
// value with its original type, which is how a mapped field becomes a
// nested object, array or number instead of its stringified form. A leaf
// mixing literal text with placeholders renders each placeholder as a
// string and concatenates. Objects and arrays are recursed into; other
// scalars pass through untouched. "{{ body }}" as a whole leaf resolves
// to the entire event body.
func Render(template any, bindings map[string]any) (any, error) {
	switch t := template.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			rendered, err := Render(v, bindings)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			rendered, err := Render(v, bindings)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case string:
		return renderString(t, bindings)
	default:
		return template, nil
	}
}

// RenderDocument renders a mapper template whose result must be a JSON
// object, since it replaces the working body.
func RenderDocument(template any, bindings map[string]any) (map[string]any, error) {
	rendered, err := Render(template, bindings)
	if err != nil {
		return nil, err
	}
	doc, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("template produced %T, want object", rendered)
	}
	return doc, nil
}

func renderString(s string, bindings map[string]any) (any, error) {
	if m := barePattern.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		v, ok := event.Lookup(bindings, m[1])
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, m[1])
		}
		return v, nil
	}

	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := event.Lookup(bindings, path)
		if !ok {
			if missing == "" {
				missing = path
			}
			return match
		}
		return event.ValueString(v)
	})
	if missing != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, missing)
	}
	return out, nil
}
