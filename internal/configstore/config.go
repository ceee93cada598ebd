package configstore

import (
	"fmt"
	"path"
	"strings"
)

// DefaultShell is used for the preScript wrapper and the bare fallback shell.
const DefaultShell = "bash"

// EnvVar is one entry of the env table, kept in declaration order.
type EnvVar struct {
	Key   string
	Value string
}

// Config is the validated project configuration. It is treated as immutable
// once returned by Load.
type Config struct {
	Image       string
	Name        string
	MountCwd    bool
	Workdir     string
	Env         []EnvVar
	DockerFlags []string
	Volumes     []string
	Cmd         []string
	PreScript   string
	CookScript  string
	Shell       string
	Stateful    bool
	WithNix     bool
	// Background is forced on whenever CookScript is set.
	Background bool

	// Source is the file the configuration was read from.
	Source string
}

// HasCookScript reports whether a one-time provisioning script is configured.
func (c Config) HasCookScript() bool {
	return strings.TrimSpace(c.CookScript) != ""
}

// HasPreScript reports whether a pre-attach script is configured.
func (c Config) HasPreScript() bool {
	return strings.TrimSpace(c.PreScript) != ""
}

// fileConfig mirrors the on-disk schema. Pointer fields distinguish "unset"
// from zero values so defaults can be applied.
type fileConfig struct {
	Image       string            `toml:"image" yaml:"image"`
	Name        *string           `toml:"name" yaml:"name"`
	MountCwd    *bool             `toml:"mount_cwd" yaml:"mountCwd"`
	Workdir     *string           `toml:"workdir" yaml:"workdir"`
	Env         map[string]string `toml:"env" yaml:"-"`
	EnvYAML     orderedEnv        `toml:"-" yaml:"env"`
	DockerFlags []string          `toml:"docker_flags" yaml:"dockerFlags"`
	Volumes     []string          `toml:"volumes" yaml:"volumes"`
	Cmd         *[]string         `toml:"cmd" yaml:"cmd"`
	PreScript   string            `toml:"pre_script" yaml:"preScript"`
	CookScript  string            `toml:"cook_script" yaml:"cookScript"`
	Shell       *string           `toml:"shell" yaml:"shell"`
	Stateful    bool              `toml:"stateful" yaml:"stateful"`
	WithNix     bool              `toml:"with_nix" yaml:"withNix"`
	Background  bool              `toml:"background" yaml:"background"`
}

// resolve applies defaults relative to cwd. env carries the ordered env table.
func (f fileConfig) resolve(cwd string, env []EnvVar) Config {
	cfg := Config{
		Image:       strings.TrimSpace(f.Image),
		MountCwd:    true,
		Env:         env,
		DockerFlags: f.DockerFlags,
		Volumes:     f.Volumes,
		PreScript:   f.PreScript,
		CookScript:  f.CookScript,
		Shell:       DefaultShell,
		Stateful:    f.Stateful,
		WithNix:     f.WithNix,
		Background:  f.Background,
	}

	if f.Name != nil {
		cfg.Name = strings.TrimSpace(*f.Name)
	} else {
		cfg.Name = DefaultName(cwd)
	}
	if f.MountCwd != nil {
		cfg.MountCwd = *f.MountCwd
	}
	if f.Workdir != nil {
		cfg.Workdir = strings.TrimSpace(*f.Workdir)
	} else if cfg.MountCwd {
		cfg.Workdir = cwd
	}
	if f.Cmd != nil {
		cfg.Cmd = *f.Cmd
		if cfg.Cmd == nil {
			cfg.Cmd = []string{}
		}
	}
	if f.Shell != nil {
		cfg.Shell = strings.TrimSpace(*f.Shell)
	}
	if cfg.HasCookScript() {
		cfg.Background = true
	}
	return cfg
}

// Validate checks field contents and cross-field invariants.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Image == "" {
		add("image is required")
	}
	if !validContainerName(c.Name) {
		add("name %q is not a valid container name", c.Name)
	}
	if c.MountCwd && c.Workdir == "" {
		add("mount_cwd requires a workdir, but none could be resolved")
	}
	if c.Workdir != "" && !path.IsAbs(c.Workdir) {
		add("workdir %q must be an absolute path", c.Workdir)
	}
	seen := make(map[string]struct{}, len(c.Env))
	for _, env := range c.Env {
		switch {
		case strings.TrimSpace(env.Key) == "":
			add("env keys must not be empty")
		case strings.Contains(env.Key, "="):
			add("env key %q must not contain '='", env.Key)
		}
		if _, dup := seen[env.Key]; dup {
			add("env key %q is declared twice", env.Key)
		}
		seen[env.Key] = struct{}{}
	}
	for i, volume := range c.Volumes {
		if strings.TrimSpace(volume) == "" {
			add("volumes[%d] must not be empty", i)
		}
	}
	if c.Cmd != nil && len(c.Cmd) == 0 {
		add("cmd must not be empty when set")
	}
	if c.Shell == "" {
		add("shell must not be empty")
	}

	if len(problems) > 0 {
		return &ValidationError{Path: c.Source, Problems: problems}
	}
	return nil
}

// validContainerName follows the runtime rule [a-zA-Z0-9][a-zA-Z0-9_.-]*.
func validContainerName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case i > 0 && (r == '_' || r == '.' || r == '-'):
		default:
			return false
		}
	}
	return true
}
