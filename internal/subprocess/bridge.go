// Package subprocess runs container runtime commands on behalf of the
// reconciler. Every call blocks until the child exits; a nonzero exit code is
// a result, never an error. Only a failure to launch the binary is reported
// as an error.
package subprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// ErrSpawnFailed matches any *SpawnError.
var ErrSpawnFailed = errors.New("spawn failed")

// SpawnError reports that a binary could not be launched at all (missing,
// not executable, permission denied).
type SpawnError struct {
	Bin string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Bin, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawnFailed
}

// Result holds the collected output of a captured invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Bridge is the single seam between cajon and child processes.
type Bridge interface {
	// Run starts bin attached to the caller's standard streams and returns its
	// exit code.
	Run(ctx context.Context, bin string, args ...string) (int, error)
	// Capture starts bin with piped output and returns everything it wrote.
	Capture(ctx context.Context, bin string, args ...string) (Result, error)
	// Exec attaches the user to bin. The returned exit code is terminal: the
	// caller is expected to exit with it and do nothing further.
	Exec(ctx context.Context, bin string, args ...string) (int, error)
}

// captureFailureCode is reported when a captured child gives no exit code.
const captureFailureCode = 1

// ProcessBridge implements Bridge with os/exec.
type ProcessBridge struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a ProcessBridge wired to the process's standard streams.
func New() *ProcessBridge {
	return &ProcessBridge{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run reports a child killed by a signal as 128+signal, so callers that go on
// to the next step see a failure.
func (b *ProcessBridge) Run(ctx context.Context, bin string, args ...string) (int, error) {
	return b.attached(ctx, bin, args, signalExitCode)
}

// Exec reports 0 when the child exits without a code of its own.
func (b *ProcessBridge) Exec(ctx context.Context, bin string, args ...string) (int, error) {
	return b.attached(ctx, bin, args, func(syscall.Signal) int { return 0 })
}

func (b *ProcessBridge) Capture(ctx context.Context, bin string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, &SpawnError{Bin: bin, Err: err}
	}
	err := cmd.Wait()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return res, fmt.Errorf("wait for %s: %w", bin, err)
	}
	res.ExitCode = exitErr.ExitCode()
	if res.ExitCode < 0 {
		res.ExitCode = captureFailureCode
	}
	return res, nil
}

// attached runs bin sharing the standard streams. Interrupts delivered to this
// process are swallowed until the child exits; the terminal sends them to the
// child as well, so the child decides how to react.
func (b *ProcessBridge) attached(ctx context.Context, bin string, args []string, onSignal func(syscall.Signal) int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdin = b.Stdin
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return 0, &SpawnError{Bin: bin, Err: err}
	}
	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, fmt.Errorf("wait for %s: %w", bin, err)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return onSignal(status.Signal()), nil
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code, nil
	}
	return captureFailureCode, nil
}

// signalExitCode follows the shell convention for children killed by a signal.
func signalExitCode(sig syscall.Signal) int {
	return 128 + int(sig)
}
