package session

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain as untyped string constants for statekit.StateID
// compatibility. Values are kept in sync with GateState in gate.go.
const (
	StateChecking        = "checking_auth"
	StateUnauthenticated = "unauthenticated"
	StateUnverified      = "unverified"
	StateVerified        = "verified"
)

// init validates at startup that FSM state constants match GateState values.
func init() {
	stateMap := map[string]GateState{
		StateChecking:        GateChecking,
		StateUnauthenticated: GateUnauthenticated,
		StateUnverified:      GateUnverified,
		StateVerified:        GateVerified,
	}

	for fsmState, gateState := range stateMap {
		if fsmState != string(gateState) {
			panic(fmt.Sprintf("FSM state %q does not match GateState %q - constants are out of sync", fsmState, gateState))
		}
	}
}

// GateContext carries state data.
type GateContext struct {
	UID string
}

// GateMachine drives the authorization gate through its resolution
// events. It always starts in the checking state: nothing downstream may
// treat the user as authenticated before the first resolution.
type GateMachine struct {
	interpreter *statekit.Interpreter[GateContext]
}

func NewGateMachine() (*GateMachine, error) {
	builder := statekit.NewMachine[GateContext]("auth-gate").
		WithInitial(statekit.StateID(StateChecking)).
		WithContext(GateContext{})

	builder.State(StateChecking).
		On(EventResolveNone).Target(StateUnauthenticated).
		On(EventResolveUnverified).Target(StateUnverified).
		On(EventResolveVerified).Target(StateVerified).
		Done()

	builder.State(StateUnauthenticated).
		On(EventResolveNone).Target(StateUnauthenticated).
		On(EventResolveUnverified).Target(StateUnverified).
		On(EventResolveVerified).Target(StateVerified).
		Done()

	builder.State(StateUnverified).
		On(EventResolveNone).Target(StateUnauthenticated).
		On(EventResolveUnverified).Target(StateUnverified).
		On(EventResolveVerified).Target(StateVerified).
		On(EventSignOut).Target(StateUnauthenticated).
		Done()

	builder.State(StateVerified).
		On(EventResolveNone).Target(StateUnauthenticated).
		On(EventResolveUnverified).Target(StateUnverified).
		On(EventResolveVerified).Target(StateVerified).
		On(EventSignOut).Target(StateUnauthenticated).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build gate machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &GateMachine{interpreter: interpreter}, nil
}

// Transition attempts to move the gate with the given event. Self
// transitions are legal: terminal states re-enter on session change.
func (m *GateMachine) Transition(event string) error {
	if !m.CurrentState().CanTransitionWith(event) {
		return fmt.Errorf("the event '%s' is not allowed while the gate is in the '%s' state", event, m.Current())
	}
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	return nil
}

func (m *GateMachine) Current() string {
	return string(m.interpreter.State().Value)
}

// CurrentState returns the current state as a GateState value object.
func (m *GateMachine) CurrentState() GateState {
	return GateState(m.Current())
}

// Resolved reports whether the first session resolution has happened.
func (m *GateMachine) Resolved() bool {
	return m.CurrentState() != GateChecking
}
