package reconcile

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// NixPaths are the host toolchain directories shared read-only with the
// container when with_nix is set. Only the ones that exist are mounted.
var NixPaths = []string{"/nix", "/etc/profiles", "/run/current-system"}

// defaultLoginShell is used when $SHELL is unset on the host.
const defaultLoginShell = "/bin/sh"

var (
	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	pathExists      = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
)

// Host captures the facts about the calling machine that shape runtime
// arguments. Keeping them in a value keeps RunArgs and AttachArgs
// deterministic.
type Host struct {
	// Cwd is the absolute working directory bind-mounted when mount_cwd is set.
	Cwd string
	// TTY adds --tty to interactive invocations.
	TTY bool
	// Shell is the host $SHELL, used as the login shell under with_nix.
	Shell string
	// NixProfiles is the host NIX_PROFILES value, forwarded when non-empty.
	NixProfiles string
	// NixPaths lists the toolchain directories present on the host.
	NixPaths []string
	// ProfilePath is the host path of the generated profile script.
	ProfilePath string
}

// DetectHost reads Host facts from the environment. ProfilePath is left for
// the executor to fill in.
func DetectHost(cwd string) Host {
	host := Host{
		Cwd:         cwd,
		TTY:         stdinIsTerminal(),
		Shell:       strings.TrimSpace(os.Getenv("SHELL")),
		NixProfiles: os.Getenv("NIX_PROFILES"),
	}
	for _, path := range NixPaths {
		if pathExists(path) {
			host.NixPaths = append(host.NixPaths, path)
		}
	}
	return host
}

func (h Host) loginShell() string {
	if h.Shell != "" {
		return h.Shell
	}
	return defaultLoginShell
}
