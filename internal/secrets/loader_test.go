package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(Source{Name: "api key", File: path, Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(Source{Name: "api key", File: path})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("JOBSCOUT_TEST_SECRET", " env-secret ")

	got, err := Load(Source{Name: "token", Env: "JOBSCOUT_TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-secret" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	_, err := Load(Source{Name: "token"})
	if err == nil || !strings.Contains(err.Error(), "token is not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "dsn"})
	if err != nil || got != "" {
		t.Fatalf("expected empty optional secret, got %q, %v", got, err)
	}

	got, err = Optional(Source{Name: "dsn", Value: "postgres://x"})
	if err != nil || got != "postgres://x" {
		t.Fatalf("expected inline value, got %q, %v", got, err)
	}
}
