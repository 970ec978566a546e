package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Secret is a signing secret declared in configuration. It accepts either
// a bare scalar (the literal value) or a mapping selecting a source:
//
//	secret: "shared-literal"
//	secret:
//	  from_env: JIRA_WEBHOOK_SECRET
//	secret:
//	  from_file: /run/secrets/jira-webhook
//
// Secrets resolve exactly once, before the listener starts; a resolution
// failure is fatal at startup.
type Secret struct {
	Literal  string
	FromEnv  string
	FromFile string

	resolved []byte
}

type secretSources struct {
	FromEnv  string `yaml:"from_env"`
	FromFile string `yaml:"from_file"`
}

// UnmarshalYAML accepts the scalar-or-mapping forms described above.
func (s *Secret) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&s.Literal)
	case yaml.MappingNode:
		var src secretSources
		if err := value.Decode(&src); err != nil {
			return err
		}
		s.FromEnv = src.FromEnv
		s.FromFile = src.FromFile
		return nil
	default:
		return fmt.Errorf("secret must be a string or a from_env/from_file mapping")
	}
}

// redacted is what literal secrets render as when config is printed.
const redacted = "<redacted>"

// MarshalYAML renders the secret's source without its value, so resolved
// configuration can be printed or logged safely.
func (s Secret) MarshalYAML() (any, error) {
	switch {
	case s.FromEnv != "":
		return map[string]string{"from_env": s.FromEnv}, nil
	case s.FromFile != "":
		return map[string]string{"from_file": s.FromFile}, nil
	case s.Literal != "":
		return redacted, nil
	default:
		return "", nil
	}
}

// MarshalJSON mirrors MarshalYAML for JSON output.
func (s Secret) MarshalJSON() ([]byte, error) {
	v, err := s.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Resolve returns the secret bytes, reading the environment or file on
// first call and caching the result. File contents are trimmed of
// surrounding whitespace so trailing newlines don't break signatures.
func (s *Secret) Resolve() ([]byte, error) {
	if s.resolved != nil {
		return s.resolved, nil
	}

	switch {
	case s.FromEnv != "":
		v, ok := os.LookupEnv(s.FromEnv)
		if !ok || v == "" {
			return nil, fmt.Errorf("secret: environment variable %s is not set", s.FromEnv)
		}
		s.resolved = []byte(v)
	case s.FromFile != "":
		data, err := os.ReadFile(s.FromFile)
		if err != nil {
			return nil, fmt.Errorf("secret: read %s: %w", s.FromFile, err)
		}
		s.resolved = []byte(strings.TrimSpace(string(data)))
	case s.Literal != "":
		s.resolved = []byte(s.Literal)
	default:
		return nil, fmt.Errorf("secret is required (literal, from_env or from_file)")
	}

	if len(s.resolved) == 0 {
		return nil, fmt.Errorf("secret resolved to an empty value")
	}
	return s.resolved, nil
}

// IsZero reports whether no secret source was configured at all.
func (s *Secret) IsZero() bool {
	return s.Literal == "" && s.FromEnv == "" && s.FromFile == ""
}
