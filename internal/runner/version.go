package runner

import (
	"fmt"
	"io"
	"strings"
)

var (
	productVersion = "dev"
	buildCommit    = "unknown"
	buildDate      = "unknown"
)

// SetVersion records build metadata injected into main by the linker.
func SetVersion(version, commit, date string) {
	if v := strings.TrimSpace(version); v != "" {
		productVersion = v
	}
	if c := strings.TrimSpace(commit); c != "" {
		buildCommit = c
	}
	if d := strings.TrimSpace(date); d != "" {
		buildDate = d
	}
}

func versionTag() string {
	v := strings.TrimSpace(productVersion)
	if v == "" || v == "dev" {
		return "dev"
	}
	if strings.HasPrefix(strings.ToLower(v), "v") {
		return v
	}
	return "v" + v
}

func printVersion(w io.Writer) {
	shortHash := buildCommit
	if len(shortHash) > 7 {
		shortHash = shortHash[:7]
	}
	fmt.Fprintf(w, "version: %s\n", versionTag())
	fmt.Fprintf(w, "git hash: %s\n", shortHash)
	fmt.Fprintf(w, "build date: %s\n", buildDate)
}
