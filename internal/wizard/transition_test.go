package wizard

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestTransitionDoesNotMutateInput(t *testing.T) {
	s := NewState(NewProfile(sessionStart))
	s.Step = StepDetails
	s.Profile.Features = append(s.Profile.Features, "Blue collar")
	s.Profile.Photo = &Photo{ContentType: "image/png", Data: []byte{1}, Width: 1, Height: 1}
	snapshot := s.Clone()

	intents := []Intent{
		Start(),
		Advance(),
		Retreat(),
		UpdateField(FieldName, "Milo"),
		AddFeature("White paws"),
		SetPhoto(&Photo{ContentType: "image/jpeg", Data: []byte{2}, Width: 1, Height: 1}),
	}
	for _, in := range intents {
		next, _ := Transition(s, in)
		if in.Kind == IntentAddFeature && len(next.Profile.Features) != 2 {
			t.Fatalf("expected appended feature, got %v", next.Profile.Features)
		}
		if !reflect.DeepEqual(s, snapshot) {
			t.Fatalf("%s mutated its input state", in.Kind)
		}
	}
}

func TestTransitionOutcomes(t *testing.T) {
	filled := NewProfile(sessionStart)
	filled.Name = "Milo"
	filled.LastSeenAddress = "221B Baker St"

	tests := []struct {
		name     string
		step     Step
		profile  Profile
		intent   Intent
		wantStep Step
		want     Outcome
	}{
		{"start at landing", StepLanding, filled, Start(), StepDetails, OutcomeAccepted},
		{"start at photo", StepPhoto, filled, Start(), StepPhoto, OutcomeNoOp},
		{"advance landing", StepLanding, NewProfile(sessionStart), Advance(), StepDetails, OutcomeAccepted},
		{"advance details refused", StepDetails, NewProfile(sessionStart), Advance(), StepDetails, OutcomeRefused},
		{"advance details", StepDetails, filled, Advance(), StepPhoto, OutcomeAccepted},
		{"advance photo", StepPhoto, NewProfile(sessionStart), Advance(), StepPreview, OutcomeAccepted},
		{"advance preview", StepPreview, filled, Advance(), StepPreview, OutcomeNoOp},
		{"retreat landing", StepLanding, filled, Retreat(), StepLanding, OutcomeNoOp},
		{"retreat details", StepDetails, filled, Retreat(), StepLanding, OutcomeAccepted},
		{"retreat preview", StepPreview, filled, Retreat(), StepPhoto, OutcomeAccepted},
		{"blank feature", StepDetails, filled, AddFeature("  "), StepDetails, OutcomeNoOp},
		{"unknown intent", StepPhoto, filled, Intent{}, StepPhoto, OutcomeNoOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Step: tt.step, Profile: tt.profile.Clone()}
			next, outcome := Transition(s, tt.intent)
			if outcome != tt.want {
				t.Errorf("expected outcome %s, got %s", tt.want, outcome)
			}
			if next.Step != tt.wantStep {
				t.Errorf("expected step %s, got %s", tt.wantStep, next.Step)
			}
		})
	}
}

func TestRandomIntentSequencesStayInKnownSteps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	intents := []Intent{
		Start(),
		Advance(),
		Retreat(),
		UpdateField(FieldName, "Milo"),
		UpdateField(FieldName, ""),
		UpdateField(FieldLastSeenAddress, "221B Baker St"),
		UpdateField(FieldLastSeenDate, "not-a-date"),
		AddFeature("White paws"),
		AddFeature(""),
		SetPhoto(&Photo{ContentType: "image/png", Data: []byte{1}, Width: 1, Height: 1}),
	}

	for run := 0; run < 200; run++ {
		s := NewState(NewProfile(sessionStart))
		for i := 0; i < 50; i++ {
			in := intents[rng.Intn(len(intents))]
			before := s
			var outcome Outcome
			s, outcome = Transition(s, in)
			if !s.Step.Valid() {
				t.Fatalf("run %d: entered invalid step %d", run, s.Step)
			}
			if !ValidDate(s.Profile.LastSeenDate) {
				t.Fatalf("run %d: invalid date %q", run, s.Profile.LastSeenDate)
			}
			if outcome == OutcomeRefused && !reflect.DeepEqual(before, s) {
				t.Fatalf("run %d: refusal changed state", run)
			}
		}
	}
}

func TestStepNames(t *testing.T) {
	for _, s := range Steps {
		parsed, ok := ParseStep(s.String())
		if !ok || parsed != s {
			t.Errorf("expected %s to parse back, got %v %v", s, parsed, ok)
		}
	}
	if _, ok := ParseStep("checkout"); ok {
		t.Error("expected unknown step name to fail")
	}
	if Step(7).String() != "unknown" {
		t.Errorf("expected unknown, got %s", Step(7))
	}
}

func TestPhotoDataURL(t *testing.T) {
	p := &Photo{ContentType: "image/png", Data: []byte("abc")}
	if got := p.DataURL(); got != "data:image/png;base64,YWJj" {
		t.Errorf("unexpected data url %q", got)
	}
	var none *Photo
	if none.DataURL() != "" {
		t.Error("expected empty data url for nil photo")
	}
}
