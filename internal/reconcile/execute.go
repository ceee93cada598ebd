package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/strongdm/cajon/internal/configstore"
	"github.com/strongdm/cajon/internal/profile"
	"github.com/strongdm/cajon/internal/subprocess"
)

// ErrCookScriptFailed matches any *CookError.
var ErrCookScriptFailed = errors.New("cook script failed")

// CookError reports a nonzero exit from the cook script. The container is
// left running and uncooked.
type CookError struct {
	Container string
	ExitCode  int
}

func (e *CookError) Error() string {
	return fmt.Sprintf("cook script failed in %s with exit code %d", e.Container, e.ExitCode)
}

func (e *CookError) Is(target error) bool {
	return target == ErrCookScriptFailed
}

// ErrRuntimeCommandFailed matches any *StepError.
var ErrRuntimeCommandFailed = errors.New("runtime command failed")

// StepError reports a non-terminal runtime invocation that exited nonzero.
type StepError struct {
	Action   Action
	Args     []string
	ExitCode int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: `%s` exited with code %d", e.Action, strings.Join(e.Args, " "), e.ExitCode)
}

func (e *StepError) Is(target error) bool {
	return target == ErrRuntimeCommandFailed
}

// Logger receives progress messages. *termlog.Logger satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// Executor performs plans against a container runtime.
type Executor struct {
	Bridge  subprocess.Bridge
	Runtime string
	Log     Logger
	// LoadProfile provides the host profile script for with_nix containers.
	// Nil means profile.Load.
	LoadProfile func() (string, error)
}

// Execute runs plan in order and returns the exit code of its terminal
// action. Any error aborts the plan; nothing is retried.
func (e *Executor) Execute(ctx context.Context, cfg configstore.Config, host Host, plan []Action) (int, error) {
	for _, action := range plan {
		e.debugf("step %s", action)
		switch action {
		case Remove:
			if err := e.step(ctx, action, "rm", "-f", cfg.Name); err != nil {
				return 0, err
			}
		case Start:
			if err := e.step(ctx, action, "start", cfg.Name); err != nil {
				return 0, err
			}
		case RunDetached:
			if err := e.withProfile(cfg, &host); err != nil {
				return 0, err
			}
			if err := e.step(ctx, action, RunArgs(cfg, host)...); err != nil {
				return 0, err
			}
		case Cook:
			if err := e.cook(ctx, cfg); err != nil {
				return 0, err
			}
		case RunAttached:
			if err := e.withProfile(cfg, &host); err != nil {
				return 0, err
			}
			return e.exec(ctx, RunArgs(cfg, host))
		case Attach:
			return e.exec(ctx, AttachArgs(cfg, host))
		default:
			return 0, fmt.Errorf("unknown action %d", int(action))
		}
	}
	return 0, errors.New("plan has no terminal action")
}

func (e *Executor) exec(ctx context.Context, args []string) (int, error) {
	code, err := e.Bridge.Exec(ctx, e.Runtime, args...)
	if err != nil {
		return 0, fmt.Errorf("attach: %w", err)
	}
	return code, nil
}

// step runs one attached, non-terminal invocation and turns a nonzero exit
// into a *StepError.
func (e *Executor) step(ctx context.Context, action Action, args ...string) error {
	code, err := e.Bridge.Run(ctx, e.Runtime, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if code != 0 {
		return &StepError{Action: action, Args: args, ExitCode: code}
	}
	return nil
}

// cook runs the cook script unless the marker is already present, then
// creates the marker.
func (e *Executor) cook(ctx context.Context, cfg configstore.Config) error {
	res, err := e.Bridge.Capture(ctx, e.Runtime, cookedCheckArgs(cfg)...)
	if err != nil {
		return fmt.Errorf("check cooked marker: %w", err)
	}
	if res.ExitCode == 0 {
		e.debugf("%s already cooked", cfg.Name)
		return nil
	}

	e.infof("Cooking %s...", cfg.Name)
	code, err := e.Bridge.Run(ctx, e.Runtime, cookArgs(cfg)...)
	if err != nil {
		return fmt.Errorf("run cook script: %w", err)
	}
	if code != 0 {
		return &CookError{Container: cfg.Name, ExitCode: code}
	}
	return e.step(ctx, Cook, markCookedArgs(cfg)...)
}

func (e *Executor) withProfile(cfg configstore.Config, host *Host) error {
	if !cfg.WithNix || host.ProfilePath != "" {
		return nil
	}
	load := e.LoadProfile
	if load == nil {
		load = profile.Load
	}
	path, err := load()
	if err != nil {
		return fmt.Errorf("prepare nix profile: %w", err)
	}
	e.debugf("nix profile script at %s", path)
	host.ProfilePath = path
	return nil
}

func (e *Executor) infof(format string, args ...any) {
	if e.Log != nil {
		e.Log.Infof(format, args...)
	}
}

func (e *Executor) debugf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Debugf(format, args...)
	}
}
