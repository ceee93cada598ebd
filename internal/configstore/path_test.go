package configstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscoverPrefersTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{".cajon.yml", ".cajon.toml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("image: x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if want := filepath.Join(dir, ".cajon.toml"); got != want {
		t.Fatalf("Discover = %q, want %q", got, want)
	}
}

func TestDiscoverFallsBackToYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".cajon.yaml")
	if err := os.WriteFile(path, []byte("image: x\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	got, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if got != path {
		t.Fatalf("Discover = %q, want %q", got, path)
	}
}

func TestDiscoverIgnoresDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".cajon.toml"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, err := Discover(dir)
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), dir) {
		t.Fatalf("error %q should mention %q", err, dir)
	}
}

func TestDefaultName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/home/dev/Cajon":         "cajon",
		"/src/My Cool_App":        "my-cool-app",
		"/src/--weird--":          "weird",
		"/":                       "cajon",
		"":                        "cajon",
		"/src/" + strings.Repeat("a", 70): strings.Repeat("a", 63),
		"/src/ünïcode":            "n-code",
	}
	for in, want := range cases {
		if got := DefaultName(in); got != want {
			t.Errorf("DefaultName(%q) = %q, want %q", in, got, want)
		}
	}
}
