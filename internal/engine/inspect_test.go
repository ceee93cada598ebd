package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/strongdm/cajon/internal/subprocess"
	"github.com/strongdm/cajon/internal/subprocess/subprocesstest"
)

func inspectWith(t *testing.T, res subprocess.Result, err error) (State, *subprocesstest.Recorder, error) {
	t.Helper()
	rec := &subprocesstest.Recorder{
		Respond: func(subprocesstest.Call) (subprocess.Result, error) {
			return res, err
		},
	}
	state, inspectErr := Inspect(context.Background(), rec, "/usr/bin/podman", "box")
	return state, rec, inspectErr
}

func TestInspectIssuesJSONInspect(t *testing.T) {
	t.Parallel()

	_, rec, _ := inspectWith(t, subprocess.Result{ExitCode: 125}, nil)
	lines := rec.Lines()
	if len(lines) != 1 || lines[0] != "capture: container inspect box --format json" {
		t.Fatalf("unexpected invocations: %v", lines)
	}
}

func TestInspectNonZeroExitIsAbsent(t *testing.T) {
	t.Parallel()

	state, _, err := inspectWith(t, subprocess.Result{ExitCode: 125, Stderr: "Error: no such container box"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if state.Present {
		t.Fatalf("expected absent, got %v", state)
	}
}

func TestInspectSpawnFailurePropagates(t *testing.T) {
	t.Parallel()

	spawnErr := &subprocess.SpawnError{Bin: "/usr/bin/podman", Err: errors.New("permission denied")}
	_, _, err := inspectWith(t, subprocess.Result{}, spawnErr)
	if !errors.Is(err, subprocess.ErrSpawnFailed) {
		t.Fatalf("expected ErrSpawnFailed, got %v", err)
	}
}

func TestInspectParsesRunningAndAnnotation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stdout string
		want   State
	}{
		{
			name:   "running background",
			stdout: `[{"State":{"Running":true},"Config":{"Annotations":{"cajon.background":"TRUE"}}}]`,
			want:   State{Present: true, Running: true, Background: true},
		},
		{
			name:   "stopped foreground",
			stdout: `[{"State":{"Running":false},"Config":{"Annotations":{"cajon.background":"FALSE","other":"x"}}}]`,
			want:   State{Present: true, Running: false, Background: false},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			state, _, err := inspectWith(t, subprocess.Result{Stdout: tc.stdout}, nil)
			if err != nil {
				t.Fatalf("Inspect returned error: %v", err)
			}
			if state != tc.want {
				t.Fatalf("state mismatch: got %+v want %+v", state, tc.want)
			}
		})
	}
}

func TestInspectMalformedOutput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":           "Error: something odd",
		"empty array":        "[]",
		"missing running":    `[{"State":{},"Config":{"Annotations":{"cajon.background":"TRUE"}}}]`,
		"missing annotation": `[{"State":{"Running":true},"Config":{"Annotations":{}}}]`,
		"null annotations":   `[{"State":{"Running":true},"Config":{"Annotations":null}}]`,
		"bad annotation":     `[{"State":{"Running":true},"Config":{"Annotations":{"cajon.background":"yes"}}}]`,
	}

	for name, stdout := range cases {
		stdout := stdout
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := inspectWith(t, subprocess.Result{Stdout: stdout}, nil)
			if !errors.Is(err, ErrMalformedState) {
				t.Fatalf("expected ErrMalformedState, got %v", err)
			}
			var malformed *MalformedStateError
			if !errors.As(err, &malformed) || malformed.Name != "box" {
				t.Fatalf("expected *MalformedStateError for box, got %v", err)
			}
		})
	}
}

func TestAnnotationValueRoundTrip(t *testing.T) {
	t.Parallel()

	for _, background := range []bool{true, false} {
		stdout := `[{"State":{"Running":true},"Config":{"Annotations":{"cajon.background":"` + AnnotationValue(background) + `"}}}]`
		state, err := parseInspect("box", stdout)
		if err != nil {
			t.Fatalf("parseInspect returned error: %v", err)
		}
		if state.Background != background {
			t.Fatalf("background round trip failed: wrote %v read %v", background, state.Background)
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if got := Absent.String(); got != "absent" {
		t.Fatalf("unexpected absent string %q", got)
	}
	if got := (State{Present: true, Running: true, Background: true}).String(); got != "running (background)" {
		t.Fatalf("unexpected string %q", got)
	}
}
