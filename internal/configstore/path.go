package configstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileNames lists the configuration files Discover looks for, in order.
var FileNames = []string{".cajon.toml", ".cajon.yaml", ".cajon.yml"}

// ErrNoConfig is returned by Discover when dir holds no configuration file.
var ErrNoConfig = errors.New("no cajon configuration file found")

// Discover returns the first configuration file present in dir.
func Discover(dir string) (string, error) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNoConfig, dir, strings.Join(FileNames, ", "))
}

// DefaultName derives a container name from the base name of dir.
func DefaultName(dir string) string {
	name := sanitizeName(workspaceNameFrom(dir))
	if name == "" {
		return "cajon"
	}
	return name
}

func workspaceNameFrom(dir string) string {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return ""
	}
	base := filepath.Base(filepath.Clean(clean))
	if base == "." || base == string(os.PathSeparator) {
		return ""
	}
	return base
}

// sanitizeName lowercases raw and collapses every run of characters outside
// [a-z0-9] into one hyphen, capped at 63 characters.
func sanitizeName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	var (
		builder    strings.Builder
		lastHyphen bool
	)
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastHyphen = false
		default:
			if builder.Len() == 0 || lastHyphen {
				continue
			}
			builder.WriteRune('-')
			lastHyphen = true
		}
	}

	result := strings.Trim(builder.String(), "-")
	if len(result) > 63 {
		result = strings.Trim(result[:63], "-")
	}
	return result
}
