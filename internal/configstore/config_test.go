package configstore

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveAppliesDefaults(t *testing.T) {
	t.Parallel()

	image := fileConfig{Image: "alpine:3"}
	cfg := image.resolve("/home/dev/My Project", nil)

	if cfg.Name != "my-project" {
		t.Fatalf("Name = %q, want my-project", cfg.Name)
	}
	if !cfg.MountCwd {
		t.Fatal("MountCwd should default to true")
	}
	if cfg.Workdir != "/home/dev/My Project" {
		t.Fatalf("Workdir = %q, want cwd", cfg.Workdir)
	}
	if cfg.Shell != DefaultShell {
		t.Fatalf("Shell = %q, want %q", cfg.Shell, DefaultShell)
	}
	if cfg.Cmd != nil {
		t.Fatalf("Cmd = %#v, want nil", cfg.Cmd)
	}
	if cfg.Background {
		t.Fatal("Background should default to false")
	}
}

func TestResolveWithoutMountLeavesWorkdirEmpty(t *testing.T) {
	t.Parallel()

	off := false
	cfg := fileConfig{Image: "alpine", MountCwd: &off}.resolve("/src/app", nil)
	if cfg.Workdir != "" {
		t.Fatalf("Workdir = %q, want empty", cfg.Workdir)
	}
}

func TestResolveCookScriptForcesBackground(t *testing.T) {
	t.Parallel()

	cfg := fileConfig{Image: "alpine", CookScript: "apk add git"}.resolve("/src/app", nil)
	if !cfg.Background {
		t.Fatal("cook_script must force background mode")
	}
	if !cfg.HasCookScript() {
		t.Fatal("HasCookScript() = false")
	}
}

func TestResolveWhitespaceScriptsAreAbsent(t *testing.T) {
	t.Parallel()

	cfg := fileConfig{Image: "alpine", CookScript: "  \n", PreScript: "\t"}.resolve("/src/app", nil)
	if cfg.HasCookScript() || cfg.HasPreScript() {
		t.Fatal("blank scripts should not count as configured")
	}
	if cfg.Background {
		t.Fatal("blank cook_script should not force background")
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Name:     "-bad",
		MountCwd: true,
		Workdir:  "relative/dir",
		Env: []EnvVar{
			{Key: "A", Value: "1"},
			{Key: "A", Value: "2"},
			{Key: "B=C", Value: "3"},
		},
		Volumes: []string{" "},
		Cmd:     []string{},
		Source:  "/tmp/.cajon.toml",
	}
	err := cfg.Validate()
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	want := []string{
		"image is required",
		`name "-bad"`,
		"must be an absolute path",
		`"A" is declared twice`,
		`"B=C" must not contain`,
		"volumes[0]",
		"cmd must not be empty",
		"shell must not be empty",
	}
	msg := vErr.Error()
	for _, fragment := range want {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("error %q missing %q", msg, fragment)
		}
	}
	if !strings.Contains(msg, "/tmp/.cajon.toml") {
		t.Fatalf("error %q should name the source file", msg)
	}
}

func TestValidContainerName(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"web":         true,
		"Web_1.dev-x": true,
		"9lives":      true,
		"":            false,
		"_hidden":     false,
		"has space":   false,
		"slash/name":  false,
	}
	for name, want := range cases {
		if got := validContainerName(name); got != want {
			t.Errorf("validContainerName(%q) = %v, want %v", name, got, want)
		}
	}
}
