package auth

import "fmt"

// FlowState is a step of the browser login flow.
type FlowState string

const (
	FlowIdle             FlowState = "idle"
	FlowAwaitingCallback FlowState = "awaiting_callback"
	FlowExchanging       FlowState = "exchanging"
	FlowEstablished      FlowState = "established"
	FlowDenied           FlowState = "denied"
)

// Terminal reports whether no further transition is allowed.
func (s FlowState) Terminal() bool { return s == FlowEstablished || s == FlowDenied }

var flowTransitions = map[FlowState]FlowState{
	FlowIdle:             FlowAwaitingCallback,
	FlowAwaitingCallback: FlowExchanging,
	FlowExchanging:       FlowEstablished,
}

// LoginFlow tracks one pass through the login state machine.
// The zero value starts in FlowIdle.
type LoginFlow struct {
	state  FlowState
	reason error
}

// ResumeFlow returns a flow positioned at state, for the callback leg which
// picks up a flow that was started by an earlier request.
func ResumeFlow(state FlowState) LoginFlow { return LoginFlow{state: state} }

// State returns the current state.
func (f *LoginFlow) State() FlowState {
	if f.state == "" {
		return FlowIdle
	}
	return f.state
}

// Reason returns the error that denied the flow, if any.
func (f *LoginFlow) Reason() error { return f.reason }

// Advance moves the flow to the next state. Only the forward path is allowed.
func (f *LoginFlow) Advance(to FlowState) error {
	from := f.State()
	if next, ok := flowTransitions[from]; !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	f.state = to
	return nil
}

// Deny moves a non-terminal flow to FlowDenied and records why.
func (f *LoginFlow) Deny(reason error) error {
	if f.State().Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, f.State(), FlowDenied)
	}
	f.state = FlowDenied
	f.reason = reason
	return nil
}
