// Package subprocesstest provides a recording subprocess.Bridge for tests.
package subprocesstest

import (
	"context"
	"strings"
	"sync"

	"github.com/strongdm/cajon/internal/subprocess"
)

// Bridge modes as recorded in Call.Mode.
const (
	ModeRun     = "run"
	ModeCapture = "capture"
	ModeExec    = "exec"
)

// Call is one recorded invocation.
type Call struct {
	Mode string
	Bin  string
	Args []string
}

// Line renders the call as "<mode>: <args...>".
func (c Call) Line() string {
	return c.Mode + ": " + strings.Join(c.Args, " ")
}

// Recorder records invocations and answers them with Respond. A nil Respond
// reports exit code 0 for everything.
type Recorder struct {
	Respond func(c Call) (subprocess.Result, error)

	mu    sync.Mutex
	calls []Call
}

var _ subprocess.Bridge = (*Recorder)(nil)

func (r *Recorder) Run(ctx context.Context, bin string, args ...string) (int, error) {
	res, err := r.record(ModeRun, bin, args)
	return res.ExitCode, err
}

func (r *Recorder) Exec(ctx context.Context, bin string, args ...string) (int, error) {
	res, err := r.record(ModeExec, bin, args)
	return res.ExitCode, err
}

func (r *Recorder) Capture(ctx context.Context, bin string, args ...string) (subprocess.Result, error) {
	return r.record(ModeCapture, bin, args)
}

func (r *Recorder) record(mode, bin string, args []string) (subprocess.Result, error) {
	call := Call{Mode: mode, Bin: bin, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	if r.Respond == nil {
		return subprocess.Result{}, nil
	}
	return r.Respond(call)
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns Line() for every recorded call.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// Subcommands returns the first argument of every recorded call.
func (r *Recorder) Subcommands() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		if len(c.Args) > 0 {
			out = append(out, c.Args[0])
		}
	}
	return out
}
