package main

import (
	"context"
	"errors"
	"os"

	"github.com/strongdm/cajon/internal/runner"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	runner.SetVersion(version, commit, buildDate)
	if err := runner.Main(context.Background(), os.Args[1:]); err != nil {
		var exitErr *runner.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		runner.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
