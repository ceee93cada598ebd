package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/strongdm/cajon/internal/subprocess"
)

// BackgroundAnnotation records whether a container was launched detached.
const BackgroundAnnotation = "cajon.background"

// Annotation values understood by Inspect.
const (
	AnnotationTrue  = "TRUE"
	AnnotationFalse = "FALSE"
)

// AnnotationValue renders background as the literal stored on the container.
func AnnotationValue(background bool) string {
	if background {
		return AnnotationTrue
	}
	return AnnotationFalse
}

// ErrMalformedState matches any *MalformedStateError.
var ErrMalformedState = errors.New("malformed container state")

// MalformedStateError reports inspect output that exited zero but could not
// be read.
type MalformedStateError struct {
	Name   string
	Reason string
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("inspect %s: %s", e.Name, e.Reason)
}

func (e *MalformedStateError) Is(target error) bool {
	return target == ErrMalformedState
}

// State is the observed state of a named container. The zero value means
// the container does not exist.
type State struct {
	Present bool
	Running bool
	// Background mirrors the cajon.background annotation.
	Background bool
}

// Absent is the state of a container that does not exist.
var Absent = State{}

func (s State) String() string {
	switch {
	case !s.Present:
		return "absent"
	case s.Running && s.Background:
		return "running (background)"
	case s.Running:
		return "running"
	case s.Background:
		return "stopped (background)"
	default:
		return "stopped"
	}
}

type inspectedContainer struct {
	State *struct {
		Running *bool `json:"Running"`
	} `json:"State"`
	Config *struct {
		Annotations map[string]string `json:"Annotations"`
	} `json:"Config"`
}

// Inspect queries runtime for the container called name. Any nonzero exit is
// read as absence: the runtime's "no such container" status cannot be told
// apart from other inspection failures. A zero exit whose output cannot be
// parsed is a *MalformedStateError.
func Inspect(ctx context.Context, bridge subprocess.Bridge, runtime, name string) (State, error) {
	res, err := bridge.Capture(ctx, runtime, "container", "inspect", name, "--format", "json")
	if err != nil {
		return Absent, err
	}
	if res.ExitCode != 0 {
		return Absent, nil
	}
	return parseInspect(name, res.Stdout)
}

func parseInspect(name, output string) (State, error) {
	var containers []inspectedContainer
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &containers); err != nil {
		return Absent, &MalformedStateError{Name: name, Reason: fmt.Sprintf("decode json: %v", err)}
	}
	if len(containers) == 0 {
		return Absent, &MalformedStateError{Name: name, Reason: "empty inspect result"}
	}

	c := containers[0]
	if c.State == nil || c.State.Running == nil {
		return Absent, &MalformedStateError{Name: name, Reason: "missing State.Running"}
	}
	if c.Config == nil {
		return Absent, &MalformedStateError{Name: name, Reason: "missing Config"}
	}

	raw, ok := c.Config.Annotations[BackgroundAnnotation]
	if !ok {
		return Absent, &MalformedStateError{
			Name:   name,
			Reason: fmt.Sprintf("annotation %s not set; the container was not created by cajon (use --replace)", BackgroundAnnotation),
		}
	}

	state := State{Present: true, Running: *c.State.Running}
	switch raw {
	case AnnotationTrue:
		state.Background = true
	case AnnotationFalse:
		state.Background = false
	default:
		return Absent, &MalformedStateError{
			Name:   name,
			Reason: fmt.Sprintf("annotation %s=%q, want %s or %s", BackgroundAnnotation, raw, AnnotationTrue, AnnotationFalse),
		}
	}
	return state, nil
}
