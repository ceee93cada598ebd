// Package engine speaks the container runtime's command-line protocol: it
// finds a runtime binary and reads back the state of named containers.
package engine

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RuntimeEnv overrides the candidate list with a single runtime name or path.
const RuntimeEnv = "CAJON_RUNTIME"

// ErrRuntimeNotFound is returned when no candidate runtime is on PATH.
var ErrRuntimeNotFound = errors.New("no container runtime found")

// Candidates lists the runtimes tried by Locate, in preference order.
var Candidates = []string{"podman", "docker"}

var lookPath = exec.LookPath

// Locate returns the absolute path of the first available runtime. The search
// runs fresh on every call.
func Locate() (string, error) {
	candidates := Candidates
	if override := strings.TrimSpace(os.Getenv(RuntimeEnv)); override != "" {
		candidates = []string{override}
	}

	for _, name := range candidates {
		path, err := lookPath(name)
		if err != nil {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		return abs, nil
	}
	return "", fmt.Errorf("%w (tried %s)", ErrRuntimeNotFound, strings.Join(candidates, ", "))
}
