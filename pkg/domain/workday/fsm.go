package workday

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Timer states and events. A resume is a start that bypasses the
// cool-down guard because the open session already exists server-side.
const (
	StateIdle    = "idle"
	StateRunning = "running"

	EventStart  = "start"
	EventResume = "resume"
	EventEnd    = "end"
)

// TimerContext carries state data.
type TimerContext struct {
	Guard func(event string) bool
}

// TimerMachine defines the valid workday transitions. The start guard
// is the cool-down predicate supplied by the service.
type TimerMachine struct {
	interpreter *statekit.Interpreter[TimerContext]
}

func NewTimerMachine(guard func(event string) bool) (*TimerMachine, error) {
	if guard == nil {
		guard = func(string) bool { return true }
	}

	builder := statekit.NewMachine[TimerContext]("workday-timer").
		WithInitial(statekit.StateID(StateIdle)).
		WithContext(TimerContext{Guard: guard}).
		WithGuard("cooldownGuard", func(ctx TimerContext, e statekit.Event) bool {
			return ctx.Guard(string(e.Type))
		})

	builder.State(StateIdle).
		On(EventStart).Target(StateRunning).Guard("cooldownGuard").
		On(EventResume).Target(StateRunning).
		Done()

	builder.State(StateRunning).
		On(EventEnd).Target(StateIdle).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build timer machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &TimerMachine{interpreter: interpreter}, nil
}

// Transition attempts to move the timer with the given event. The state
// not changing means the event was invalid for the state or the
// cool-down guard rejected it.
func (m *TimerMachine) Transition(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := m.Current()

	if before == after {
		return fmt.Errorf("the action '%s' is not allowed while the timer is in the '%s' state", event, before)
	}
	return nil
}

func (m *TimerMachine) Current() string {
	return string(m.interpreter.State().Value)
}

// Running reports whether a workday is open.
func (m *TimerMachine) Running() bool {
	return m.Current() == StateRunning
}
