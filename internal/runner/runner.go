// Package runner is the cajon command line: it wires configuration, runtime
// discovery, inspection and reconciliation together and maps their outcomes
// to a process exit status.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/strongdm/cajon/internal/configstore"
	"github.com/strongdm/cajon/internal/engine"
	"github.com/strongdm/cajon/internal/reconcile"
	"github.com/strongdm/cajon/internal/subprocess"
	"github.com/strongdm/cajon/internal/telemetry"
	"github.com/strongdm/cajon/internal/termlog"
)

// VerboseEnv enables debug output like --verbose.
const VerboseEnv = "CAJON_VERBOSE"

// Seams replaced in tests.
var (
	locateRuntime = engine.Locate
	newBridge     = func() subprocess.Bridge { return subprocess.New() }
	getwd         = os.Getwd
	detectHost    = reconcile.DetectHost
	loadProfile   func() (string, error)
)

// ExitCodeError carries the exit status of the process the user was attached
// to. Main unwraps it and exits with the same code.
type ExitCodeError struct {
	code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.code)
}

func (e *ExitCodeError) ExitCode() int {
	return e.code
}

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	replace    bool
	verbose    bool
	yes        bool
}

// session holds what one invocation resolved before talking to the runtime.
type session struct {
	logger    *termlog.Logger
	telemetry *telemetry.Provider
	bridge    subprocess.Bridge
	runtime   string
	cwd       string
	cfg       configstore.Config
}

func openSession(ctx context.Context, opts options, stderr io.Writer) (*session, error) {
	verbose := opts.verbose || telemetry.EnvBool(os.Getenv(VerboseEnv), false)
	s := &session{logger: termlog.New(stderr, verbose)}

	cwd, err := getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}
	s.cwd = cwd

	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		if path, err = configstore.Discover(cwd); err != nil {
			return nil, err
		}
	}
	if s.cfg, err = configstore.Load(path, cwd); err != nil {
		return nil, err
	}
	s.logger.Debugf("config %s: image=%s name=%s", s.cfg.Source, s.cfg.Image, s.cfg.Name)

	if s.runtime, err = locateRuntime(); err != nil {
		return nil, err
	}
	s.logger.Debugf("runtime %s", s.runtime)

	if s.telemetry, err = telemetry.Setup(ctx, telemetry.LoadConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	var inst *subprocess.Instruments
	if meter := s.telemetry.Meter(); meter != nil {
		if inst, err = subprocess.NewInstruments(meter); err != nil {
			_ = s.telemetry.Shutdown(ctx)
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}
	s.bridge = echoBridge{
		next: subprocess.Traced(newBridge(), s.telemetry.Tracer(), inst),
		log:  s.logger,
	}
	return s, nil
}

// close flushes telemetry. In verbose mode it also reports how many runtime
// invocations were made.
func (s *session) close(ctx context.Context) {
	if s.logger.Verbose() && s.telemetry.Meter() != nil {
		if rm, err := s.telemetry.Collect(ctx); err == nil {
			s.logger.Debugf("%d runtime invocations (session %s)", telemetry.SumInt64(rm, "cajon.runtime.invocations"), s.telemetry.SessionID())
		}
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Debugf("telemetry shutdown: %v", err)
	}
}

// inspect reads the container state. With --replace an unreadable container
// is still removable, so a malformed state is downgraded to "present".
func (s *session) inspect(ctx context.Context, replace bool) (engine.State, error) {
	state, err := engine.Inspect(ctx, s.bridge, s.runtime, s.cfg.Name)
	if err != nil {
		if replace && errors.Is(err, engine.ErrMalformedState) {
			s.logger.Warnf("%v; replacing it", err)
			return engine.State{Present: true}, nil
		}
		return engine.Absent, err
	}
	s.logger.Debugf("container %s is %s", s.cfg.Name, state)
	return state, nil
}

// reconcileAndAttach is the default command: converge the container and
// attach the user to it.
func reconcileAndAttach(ctx context.Context, opts options, stderr io.Writer) error {
	s, err := openSession(ctx, opts, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	state, err := s.inspect(ctx, opts.replace)
	if err != nil {
		return err
	}
	if state.Present && !opts.replace && state.Background != s.cfg.Background {
		s.logger.Warnf("container %s was started in %s mode but the configuration asks for %s mode; rerun with --replace to apply it",
			s.cfg.Name, modeName(state.Background), modeName(s.cfg.Background))
	}

	plan := reconcile.Plan(reconcile.Input{Config: s.cfg, State: state, Replace: opts.replace})
	s.logger.Debugf("plan: %s", reconcile.FormatPlan(plan))

	executor := &reconcile.Executor{
		Bridge:      s.bridge,
		Runtime:     s.runtime,
		Log:         s.logger,
		LoadProfile: loadProfile,
	}
	code, err := executor.Execute(ctx, s.cfg, detectHost(s.cwd), plan)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitCodeError{code: code}
	}
	return nil
}

func modeName(background bool) string {
	if background {
		return "background"
	}
	return "foreground"
}

// showStatus prints the resolved runtime, container and observed state.
func showStatus(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	s, err := openSession(ctx, opts, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	state, err := s.inspect(ctx, false)
	if err != nil {
		return err
	}
	mode := "-"
	if state.Present {
		mode = modeName(state.Background)
	}
	fmt.Fprintf(stdout, "config:    %s\n", s.cfg.Source)
	fmt.Fprintf(stdout, "runtime:   %s\n", s.runtime)
	fmt.Fprintf(stdout, "container: %s\n", s.cfg.Name)
	fmt.Fprintf(stdout, "image:     %s\n", s.cfg.Image)
	fmt.Fprintf(stdout, "state:     %s\n", state)
	fmt.Fprintf(stdout, "mode:      %s (configured %s)\n", mode, modeName(s.cfg.Background))
	return nil
}

// removeContainer force-removes the configured container. Stateful
// containers hold work that would be lost, so removal asks first.
func removeContainer(ctx context.Context, opts options, in io.Reader, out, stderr io.Writer) error {
	s, err := openSession(ctx, opts, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	state, err := s.inspect(ctx, true)
	if err != nil {
		return err
	}
	if !state.Present {
		s.logger.Infof("Container %s does not exist.", s.cfg.Name)
		return nil
	}
	if s.cfg.Stateful && !opts.yes {
		question := fmt.Sprintf("Remove stateful container %s and everything inside it?", s.cfg.Name)
		ok, err := newConfirmer(in, out).Confirm(ctx, question)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Infof("Removal cancelled.")
			return nil
		}
	}

	code, err := s.bridge.Run(ctx, s.runtime, "rm", "-f", s.cfg.Name)
	if err != nil {
		return fmt.Errorf("remove %s: %w", s.cfg.Name, err)
	}
	if code != 0 {
		return &ExitCodeError{code: code}
	}
	s.logger.Infof("Removed %s.", s.cfg.Name)
	return nil
}
