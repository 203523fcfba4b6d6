package wizard

import "strings"

// State is the entire wizard state: the active step and the profile being built.
type State struct {
	Step    Step    `json:"step"    cbor:"1,keyasint"`
	Profile Profile `json:"profile" cbor:"2,keyasint"`
}

// NewState returns the initial state of a wizard started with the given profile.
func NewState(p Profile) State {
	return State{Step: StepLanding, Profile: p.Clone()}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{Step: s.Step, Profile: s.Profile.Clone()}
}

// IntentKind enumerates user intents.
type IntentKind int

const (
	IntentStart IntentKind = iota + 1
	IntentAdvance
	IntentRetreat
	IntentUpdateField
	IntentAddFeature
	IntentSetPhoto
)

func (k IntentKind) String() string {
	switch k {
	case IntentStart:
		return "start"
	case IntentAdvance:
		return "advance"
	case IntentRetreat:
		return "retreat"
	case IntentUpdateField:
		return "update_field"
	case IntentAddFeature:
		return "add_feature"
	case IntentSetPhoto:
		return "set_photo"
	default:
		return "unknown"
	}
}

// Intent is one discrete user action.
type Intent struct {
	Kind  IntentKind
	Field Field
	Value string
	Photo *Photo
}

// Start is the "start campaign" intent.
func Start() Intent { return Intent{Kind: IntentStart} }

// Advance requests the next step.
func Advance() Intent { return Intent{Kind: IntentAdvance} }

// Retreat requests the previous step.
func Retreat() Intent { return Intent{Kind: IntentRetreat} }

// UpdateField replaces one scalar field.
func UpdateField(f Field, value string) Intent {
	return Intent{Kind: IntentUpdateField, Field: f, Value: value}
}

// AddFeature appends a distinctive feature.
func AddFeature(text string) Intent {
	return Intent{Kind: IntentAddFeature, Value: text}
}

// SetPhoto replaces the photo.
func SetPhoto(p *Photo) Intent {
	return Intent{Kind: IntentSetPhoto, Photo: p}
}

// Outcome reports what a transition did.
type Outcome int

const (
	// OutcomeNoOp means the intent had no effect in this state.
	OutcomeNoOp Outcome = iota
	// OutcomeAccepted means the state changed.
	OutcomeAccepted
	// OutcomeRefused means a guarded transition's precondition is unmet.
	OutcomeRefused
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRefused:
		return "refused"
	default:
		return "noop"
	}
}

// Transition applies an intent to a state and returns the resulting state.
// The input state is never modified. Every intent has a defined outcome in
// every step; Refused leaves the state unchanged.
func Transition(s State, in Intent) (State, Outcome) {
	switch in.Kind {
	case IntentStart:
		if s.Step != StepLanding {
			return s, OutcomeNoOp
		}
		return withStep(s, StepDetails), OutcomeAccepted

	case IntentAdvance:
		if s.Step == StepDetails && len(s.Profile.Missing()) > 0 {
			return s, OutcomeRefused
		}
		next, ok := s.Step.next()
		if !ok {
			return s, OutcomeNoOp
		}
		return withStep(s, next), OutcomeAccepted

	case IntentRetreat:
		prev, ok := s.Step.previous()
		if !ok {
			return s, OutcomeNoOp
		}
		return withStep(s, prev), OutcomeAccepted

	case IntentUpdateField:
		out := s.Clone()
		if !out.Profile.set(in.Field, in.Value) {
			return s, OutcomeNoOp
		}
		return out, OutcomeAccepted

	case IntentAddFeature:
		text := strings.TrimSpace(in.Value)
		if text == "" {
			return s, OutcomeNoOp
		}
		out := s.Clone()
		out.Profile.Features = append(out.Profile.Features, text)
		return out, OutcomeAccepted

	case IntentSetPhoto:
		if in.Photo == nil || len(in.Photo.Data) == 0 {
			return s, OutcomeNoOp
		}
		out := s.Clone()
		out.Profile.Photo = in.Photo.Clone()
		return out, OutcomeAccepted

	default:
		return s, OutcomeNoOp
	}
}

func withStep(s State, step Step) State {
	out := s.Clone()
	out.Step = step
	return out
}
