package reconcile

import (
	"fmt"

	"github.com/strongdm/cajon/internal/configstore"
	"github.com/strongdm/cajon/internal/engine"
	"github.com/strongdm/cajon/internal/profile"
)

// CookedMarker is created inside the container once the cook script succeeds.
const CookedMarker = "/cajon-cooked"

// keepAlive is the background entrypoint; the runtime's init reaps it.
var keepAlive = []string{"sleep", "infinity"}

// AttachCommand returns the command the user is attached to, in precedence
// order: cmd, a login shell under with_nix, the pre_script wrapper, the
// configured shell.
func AttachCommand(cfg configstore.Config, host Host) []string {
	switch {
	case cfg.Cmd != nil:
		return append([]string(nil), cfg.Cmd...)
	case cfg.WithNix:
		return []string{host.loginShell(), "-l"}
	case cfg.HasPreScript():
		return []string{cfg.Shell, "-lc", cfg.PreScript + "\nexec " + cfg.Shell + "\n"}
	default:
		return []string{cfg.Shell}
	}
}

// RunArgs builds the runtime arguments that create the container. Foreground
// containers run the attach command directly; background ones run sleep.
func RunArgs(cfg configstore.Config, host Host) []string {
	args := []string{
		"run",
		"--name", cfg.Name,
		"--network=host",
		"--init",
	}
	if !cfg.Stateful {
		args = append(args, "--rm")
	}
	if cfg.Background {
		args = append(args, "--detach")
	} else {
		args = append(args, "--interactive")
		if host.TTY {
			args = append(args, "--tty")
		}
	}
	args = append(args, "--annotation", engine.BackgroundAnnotation+"="+engine.AnnotationValue(cfg.Background))

	for _, env := range cfg.Env {
		args = append(args, "--env", env.Key+"="+env.Value)
	}
	if cfg.MountCwd {
		args = append(args, "--volume", fmt.Sprintf("%s:%s", host.Cwd, cfg.Workdir))
	}
	if cfg.Workdir != "" {
		args = append(args, "--workdir", cfg.Workdir)
	}
	if cfg.WithNix {
		for _, path := range host.NixPaths {
			args = append(args, "--volume", fmt.Sprintf("%s:%s:ro", path, path))
		}
		if host.ProfilePath != "" {
			args = append(args, "--volume", fmt.Sprintf("%s:%s:ro", host.ProfilePath, profile.ContainerPath))
		}
		if host.NixProfiles != "" {
			args = append(args, "--env", "NIX_PROFILES="+host.NixProfiles)
		}
	}
	for _, volume := range cfg.Volumes {
		args = append(args, "--volume", volume)
	}
	args = append(args, cfg.DockerFlags...)

	command := keepAlive
	if !cfg.Background {
		command = AttachCommand(cfg, host)
	}
	args = append(args, "--entrypoint", command[0], cfg.Image)
	return append(args, command[1:]...)
}

// AttachArgs builds the runtime arguments that attach to a running container.
func AttachArgs(cfg configstore.Config, host Host) []string {
	args := []string{"exec", "--interactive"}
	if host.TTY {
		args = append(args, "--tty")
	}
	if cfg.Workdir != "" {
		args = append(args, "--workdir", cfg.Workdir)
	}
	args = append(args, cfg.Name)
	return append(args, AttachCommand(cfg, host)...)
}

func cookedCheckArgs(cfg configstore.Config) []string {
	return []string{"exec", cfg.Name, "test", "-e", CookedMarker}
}

func cookArgs(cfg configstore.Config) []string {
	args := []string{"exec"}
	if cfg.Workdir != "" {
		args = append(args, "--workdir", cfg.Workdir)
	}
	return append(args, cfg.Name, "sh", "-e", "-c", cfg.CookScript)
}

func markCookedArgs(cfg configstore.Config) []string {
	return []string{"exec", cfg.Name, "touch", CookedMarker}
}
