package reconcile

import (
	"reflect"
	"strings"
	"testing"

	"github.com/strongdm/cajon/internal/configstore"
)

func scenarioConfig() configstore.Config {
	return configstore.Config{
		Image:    "debian",
		Name:     "proj",
		MountCwd: true,
		Workdir:  "/home/dev/proj",
		Env:      []configstore.EnvVar{{Key: "FOO", Value: "bar"}},
		Shell:    configstore.DefaultShell,
	}
}

func TestRunArgsForegroundScenario(t *testing.T) {
	t.Parallel()

	host := Host{Cwd: "/home/dev/proj", TTY: true}
	got := RunArgs(scenarioConfig(), host)
	want := []string{
		"run", "--name", "proj", "--network=host", "--init", "--rm",
		"--interactive", "--tty",
		"--annotation", "cajon.background=FALSE",
		"--env", "FOO=bar",
		"--volume", "/home/dev/proj:/home/dev/proj",
		"--workdir", "/home/dev/proj",
		"--entrypoint", "bash", "debian",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RunArgs =\n  %q\nwant\n  %q", got, want)
	}
}

func TestRunArgsBackgroundStateful(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Background = true
	cfg.Stateful = true
	cfg.MountCwd = false
	cfg.Workdir = "/srv"
	cfg.Volumes = []string{"cache:/root/.cache"}
	cfg.DockerFlags = []string{"--cap-add=SYS_PTRACE", "--memory=2g"}

	got := RunArgs(cfg, Host{Cwd: "/ignored", TTY: true})
	want := []string{
		"run", "--name", "proj", "--network=host", "--init",
		"--detach",
		"--annotation", "cajon.background=TRUE",
		"--env", "FOO=bar",
		"--workdir", "/srv",
		"--volume", "cache:/root/.cache",
		"--cap-add=SYS_PTRACE", "--memory=2g",
		"--entrypoint", "sleep", "debian", "infinity",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RunArgs =\n  %q\nwant\n  %q", got, want)
	}
}

func TestRunArgsWithNix(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.WithNix = true
	host := Host{
		Cwd:         "/home/dev/proj",
		Shell:       "/run/current-system/sw/bin/zsh",
		NixProfiles: "/nix/var/nix/profiles/default /home/dev/.nix-profile",
		NixPaths:    []string{"/nix", "/run/current-system"},
		ProfilePath: "/dev/shm/cajon-profile.sh",
	}
	got := strings.Join(RunArgs(cfg, host), " ")
	for _, fragment := range []string{
		"--volume /nix:/nix:ro --volume /run/current-system:/run/current-system:ro",
		"--volume /dev/shm/cajon-profile.sh:/etc/profile.d/cajon-nix.sh:ro",
		"--env NIX_PROFILES=/nix/var/nix/profiles/default /home/dev/.nix-profile",
		"--entrypoint /run/current-system/sw/bin/zsh debian -l",
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("RunArgs %q missing %q", got, fragment)
		}
	}
	if strings.Contains(got, "/etc/profiles") {
		t.Fatalf("RunArgs %q mounted a path missing on the host", got)
	}
	if strings.Contains(got, "--tty") {
		t.Fatalf("RunArgs %q requested a tty without one", got)
	}
}

func TestRunArgsDeterministic(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Env = append(cfg.Env,
		configstore.EnvVar{Key: "ZED", Value: "1"},
		configstore.EnvVar{Key: "ALPHA", Value: "2"},
		configstore.EnvVar{Key: "MID", Value: "3"},
	)
	host := Host{Cwd: "/home/dev/proj"}
	first := RunArgs(cfg, host)
	for i := 0; i < 20; i++ {
		if got := RunArgs(cfg, host); !reflect.DeepEqual(got, first) {
			t.Fatalf("RunArgs changed between calls:\n  %q\n  %q", first, got)
		}
	}
	joined := strings.Join(first, " ")
	if !strings.Contains(joined, "--env FOO=bar --env ZED=1 --env ALPHA=2 --env MID=3") {
		t.Fatalf("env flags out of declaration order: %q", joined)
	}
}

func TestAttachCommandPrecedence(t *testing.T) {
	t.Parallel()

	base := scenarioConfig()
	host := Host{Shell: "/usr/bin/fish"}

	withCmd := base
	withCmd.Cmd = []string{"make", "dev"}
	withCmd.WithNix = true
	withCmd.PreScript = "echo hi"

	withNix := base
	withNix.WithNix = true
	withNix.PreScript = "echo hi"

	withPre := base
	withPre.PreScript = "source .venv/bin/activate"
	withPre.Shell = "zsh"

	cases := []struct {
		name string
		cfg  configstore.Config
		host Host
		want []string
	}{
		{"cmd wins", withCmd, host, []string{"make", "dev"}},
		{"nix login shell", withNix, host, []string{"/usr/bin/fish", "-l"}},
		{"nix default shell", withNix, Host{}, []string{"/bin/sh", "-l"}},
		{"pre script", withPre, host, []string{"zsh", "-lc", "source .venv/bin/activate\nexec zsh\n"}},
		{"fallback", base, host, []string{"bash"}},
	}
	for _, tc := range cases {
		if got := AttachCommand(tc.cfg, tc.host); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: AttachCommand = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestAttachCommandDoesNotAliasConfig(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	cfg.Cmd = []string{"top"}
	got := AttachCommand(cfg, Host{})
	got[0] = "mutated"
	if cfg.Cmd[0] != "top" {
		t.Fatal("AttachCommand returned the config's backing array")
	}
}

func TestAttachArgs(t *testing.T) {
	t.Parallel()

	cfg := scenarioConfig()
	got := AttachArgs(cfg, Host{TTY: true})
	want := []string{"exec", "--interactive", "--tty", "--workdir", "/home/dev/proj", "proj", "bash"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AttachArgs = %q, want %q", got, want)
	}

	cfg.Workdir = ""
	cfg.MountCwd = false
	got = AttachArgs(cfg, Host{})
	want = []string{"exec", "--interactive", "proj", "bash"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AttachArgs = %q, want %q", got, want)
	}
}

func TestDetectHost(t *testing.T) {
	origTTY, origExists := stdinIsTerminal, pathExists
	t.Cleanup(func() {
		stdinIsTerminal, pathExists = origTTY, origExists
	})
	stdinIsTerminal = func() bool { return true }
	pathExists = func(path string) bool { return path == "/nix" || path == "/run/current-system" }
	t.Setenv("SHELL", " /bin/zsh ")
	t.Setenv("NIX_PROFILES", "/nix/var/nix/profiles/default")

	host := DetectHost("/work")
	if host.Cwd != "/work" || !host.TTY || host.Shell != "/bin/zsh" {
		t.Fatalf("unexpected host: %+v", host)
	}
	if host.NixProfiles != "/nix/var/nix/profiles/default" {
		t.Fatalf("NixProfiles = %q", host.NixProfiles)
	}
	if want := []string{"/nix", "/run/current-system"}; !reflect.DeepEqual(host.NixPaths, want) {
		t.Fatalf("NixPaths = %q, want %q", host.NixPaths, want)
	}
	if host.ProfilePath != "" {
		t.Fatalf("ProfilePath = %q, want empty", host.ProfilePath)
	}
}
