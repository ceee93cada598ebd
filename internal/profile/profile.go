// Package profile materializes the shell snippet that exposes host Nix
// profiles inside a container. The file lives on tmpfs and is written at
// most once; an existing file is trusted as-is.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the base name of the generated script on the host.
const FileName = "cajon-profile.sh"

// ContainerPath is where the script is bind-mounted so login shells source it.
const ContainerPath = "/etc/profile.d/cajon-nix.sh"

const shmDir = "/dev/shm"

//go:embed profile.sh
var script string

// Script returns the snippet written by Load.
func Script() string {
	return script
}

// Dir picks the volatile directory that holds the script: /dev/shm when it is
// a tmpfs, otherwise $XDG_RUNTIME_DIR, otherwise the OS temp dir.
func Dir() string {
	if isTmpfs(shmDir) {
		return shmDir
	}
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		return runtimeDir
	}
	return os.TempDir()
}

// Load ensures the script exists in Dir and returns its path.
func Load() (string, error) {
	return LoadAt(Dir())
}

// LoadAt ensures the script exists in dir and returns its path. The file is
// world-readable and never rewritten once present.
func LoadAt(dir string) (string, error) {
	dest := filepath.Join(dir, FileName)
	_, err := os.Stat(dest)
	if err == nil {
		return dest, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat profile script: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cajon-profile-*")
	if err != nil {
		return "", fmt.Errorf("create profile script: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(script); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write profile script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write profile script: %w", err)
	}
	// Explicit chmod: the umask must not narrow the mode.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod profile script: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("install profile script: %w", err)
	}
	return dest, nil
}
