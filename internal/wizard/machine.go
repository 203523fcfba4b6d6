// Package wizard models the lost-cat poster wizard as a finite-state machine.
//
// The machine walks four linear steps (Landing, Details, Photo, Preview) and
// mutates a single Profile through discrete intents. Transition is a pure
// function; Machine wraps it with the imperative operations used by callers
// that hold one state in memory.
package wizard

import "time"

// Machine holds one wizard state and applies intents to it.
// It is not safe for concurrent use.
type Machine struct {
	state State
}

// NewMachine starts a wizard at Landing with a default profile dated now.
func NewMachine(now time.Time) *Machine {
	return &Machine{state: NewState(NewProfile(now))}
}

// Resume wraps an existing state.
func Resume(s State) *Machine {
	return &Machine{state: s.Clone()}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state.Clone()
}

// Step returns the active step.
func (m *Machine) Step() Step {
	return m.state.Step
}

// Profile returns a copy of the current profile.
func (m *Machine) Profile() Profile {
	return m.state.Profile.Clone()
}

// Apply runs an intent through Transition and keeps the result.
func (m *Machine) Apply(in Intent) Outcome {
	next, outcome := Transition(m.state, in)
	m.state = next
	return outcome
}

// Start moves Landing to Details.
func (m *Machine) Start() bool {
	return m.Apply(Start()) == OutcomeAccepted
}

// UpdateField replaces exactly one scalar field.
func (m *Machine) UpdateField(f Field, value string) {
	m.Apply(UpdateField(f, value))
}

// AddFeature appends trimmed text; blank text is ignored.
func (m *Machine) AddFeature(text string) {
	m.Apply(AddFeature(text))
}

// SetPhoto replaces the photo wholesale.
func (m *Machine) SetPhoto(p *Photo) {
	m.Apply(SetPhoto(p))
}

// Advance applies the guard of the current step and reports whether the step changed.
func (m *Machine) Advance() bool {
	return m.Apply(Advance()) == OutcomeAccepted
}

// Retreat moves one step back. It is a no-op at Landing.
func (m *Machine) Retreat() bool {
	return m.Apply(Retreat()) == OutcomeAccepted
}

// CanAdvance reports whether Advance would move from the current step.
func (m *Machine) CanAdvance() bool {
	_, outcome := Transition(m.state, Advance())
	return outcome == OutcomeAccepted
}

// Missing lists the fields blocking Details -> Photo. Empty outside Details.
func (m *Machine) Missing() []Field {
	if m.state.Step != StepDetails {
		return nil
	}
	return m.state.Profile.Missing()
}
