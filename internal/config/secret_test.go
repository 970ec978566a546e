package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSecretUnmarshalForms(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want Secret
	}{
		{
			name: "bare literal",
			yaml: `secret: hunter2`,
			want: Secret{Literal: "hunter2"},
		},
		{
			name: "from_env mapping",
			yaml: "secret:\n  from_env: WEBHOOK_SECRET",
			want: Secret{FromEnv: "WEBHOOK_SECRET"},
		},
		{
			name: "from_file mapping",
			yaml: "secret:\n  from_file: /run/secrets/hook",
			want: Secret{FromFile: "/run/secrets/hook"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc struct {
				Secret Secret `yaml:"secret"`
			}
			if err := yaml.Unmarshal([]byte(tt.yaml), &doc); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if doc.Secret.Literal != tt.want.Literal ||
				doc.Secret.FromEnv != tt.want.FromEnv ||
				doc.Secret.FromFile != tt.want.FromFile {
				t.Errorf("got %+v, want %+v", doc.Secret, tt.want)
			}
		})
	}

	var doc struct {
		Secret Secret `yaml:"secret"`
	}
	if err := yaml.Unmarshal([]byte("secret:\n  - a\n  - b"), &doc); err == nil {
		t.Error("sequence form should be rejected")
	}
}

func TestSecretMarshalRedacts(t *testing.T) {
	tests := []struct {
		name   string
		secret Secret
		want   string
	}{
		{"literal", Secret{Literal: "hunter2"}, redacted},
		{"from_env", Secret{FromEnv: "WEBHOOK_SECRET"}, "from_env: WEBHOOK_SECRET"},
		{"from_file", Secret{FromFile: "/run/secrets/hook"}, "from_file: /run/secrets/hook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := yaml.Marshal(tt.secret)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !strings.Contains(string(out), tt.want) {
				t.Errorf("marshal output %q, want %q", out, tt.want)
			}
			if strings.Contains(string(out), "hunter2") {
				t.Error("marshal output leaked the literal value")
			}
		})
	}

	// JSON path used by config show --json.
	out, err := json.Marshal(Secret{Literal: "hunter2"})
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	if strings.Contains(string(out), "hunter2") {
		t.Error("JSON output leaked the literal value")
	}
}

func TestSecretResolve(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		s := Secret{Literal: "hunter2"}
		got, err := s.Resolve()
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if string(got) != "hunter2" {
			t.Errorf("Resolve() = %q", got)
		}
	})

	t.Run("env set", func(t *testing.T) {
		os.Setenv("HB_TEST_SECRET", "from-the-env")
		defer os.Unsetenv("HB_TEST_SECRET")

		s := Secret{FromEnv: "HB_TEST_SECRET"}
		got, err := s.Resolve()
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if string(got) != "from-the-env" {
			t.Errorf("Resolve() = %q", got)
		}
	})

	t.Run("env unset", func(t *testing.T) {
		s := Secret{FromEnv: "HB_TEST_SECRET_UNSET"}
		if _, err := s.Resolve(); err == nil {
			t.Fatal("Resolve() should fail for unset variable")
		}
	})

	t.Run("file trimmed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		if err := os.WriteFile(path, []byte("  file-secret\n"), 0600); err != nil {
			t.Fatal(err)
		}

		s := Secret{FromFile: path}
		got, err := s.Resolve()
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		// trailing newline must not end up in the HMAC key
		if string(got) != "file-secret" {
			t.Errorf("Resolve() = %q, want trimmed content", got)
		}
	})

	t.Run("file missing", func(t *testing.T) {
		s := Secret{FromFile: filepath.Join(t.TempDir(), "nope")}
		if _, err := s.Resolve(); err == nil {
			t.Fatal("Resolve() should fail for missing file")
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		var s Secret
		if _, err := s.Resolve(); err == nil {
			t.Fatal("Resolve() should fail when no source is set")
		}
	})

	t.Run("cached after first resolve", func(t *testing.T) {
		os.Setenv("HB_TEST_SECRET_CACHE", "v1")
		s := Secret{FromEnv: "HB_TEST_SECRET_CACHE"}
		if _, err := s.Resolve(); err != nil {
			t.Fatal(err)
		}
		os.Unsetenv("HB_TEST_SECRET_CACHE")

		got, err := s.Resolve()
		if err != nil {
			t.Fatalf("cached Resolve() error = %v", err)
		}
		if string(got) != "v1" {
			t.Errorf("cached Resolve() = %q, want v1", got)
		}
	})
}
