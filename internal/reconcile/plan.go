// Package reconcile decides and performs the runtime invocations that bring a
// named container to the state described by a configuration, ending with the
// user attached to it.
//
// Plan is a pure function of the configuration and the observed state.
// Executor walks a plan against a subprocess.Bridge.
package reconcile

import (
	"strings"

	"github.com/strongdm/cajon/internal/configstore"
	"github.com/strongdm/cajon/internal/engine"
)

// Action is one step of a reconciliation plan.
type Action int

const (
	// Remove force-removes the existing container.
	Remove Action = iota + 1
	// Start starts a stopped container.
	Start
	// RunDetached launches a new background container kept alive by sleep.
	RunDetached
	// Cook runs the cook script once, guarded by the marker file.
	Cook
	// Attach execs the attach command in the running container. Terminal.
	Attach
	// RunAttached launches a new foreground container with the attach command
	// as its entrypoint. Terminal.
	RunAttached
)

var actionNames = map[Action]string{
	Remove:      "remove",
	Start:       "start",
	RunDetached: "run-detached",
	Cook:        "cook",
	Attach:      "attach",
	RunAttached: "run-attached",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the action hands the terminal to the container and
// ends the plan.
func (a Action) Terminal() bool {
	return a == Attach || a == RunAttached
}

// Input is everything Plan looks at.
type Input struct {
	Config configstore.Config
	State  engine.State
	// Replace discards an existing container before anything else.
	Replace bool
}

// Plan returns the ordered actions that converge the container to cfg. The
// last action is always terminal.
func Plan(in Input) []Action {
	state := in.State
	var plan []Action

	if in.Replace && state.Present {
		plan = append(plan, Remove)
		state = engine.Absent
	}

	switch {
	case !state.Present && !in.Config.Background:
		return append(plan, RunAttached)
	case !state.Present:
		plan = append(plan, RunDetached)
	case !state.Running:
		plan = append(plan, Start)
	}

	if in.Config.HasCookScript() {
		plan = append(plan, Cook)
	}
	return append(plan, Attach)
}

// FormatPlan renders a plan as "a -> b -> c" for logs.
func FormatPlan(plan []Action) string {
	names := make([]string, len(plan))
	for i, action := range plan {
		names[i] = action.String()
	}
	return strings.Join(names, " -> ")
}
