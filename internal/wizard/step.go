package wizard

// Step is one screen of the wizard. The order is fixed and linear.
type Step int

const (
	StepLanding Step = iota
	StepDetails
	StepPhoto
	StepPreview
)

var stepNames = [...]string{
	StepLanding: "landing",
	StepDetails: "details",
	StepPhoto:   "photo",
	StepPreview: "preview",
}

// Steps lists all steps in wizard order.
var Steps = []Step{StepLanding, StepDetails, StepPhoto, StepPreview}

func (s Step) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stepNames[s]
}

// Valid reports whether s is one of the four wizard steps.
func (s Step) Valid() bool {
	return s >= StepLanding && s <= StepPreview
}

// ParseStep maps a step name back to its value.
func ParseStep(name string) (Step, bool) {
	for _, s := range Steps {
		if stepNames[s] == name {
			return s, true
		}
	}
	return StepLanding, false
}

func (s Step) next() (Step, bool) {
	if s >= StepPreview {
		return s, false
	}
	return s + 1, true
}

func (s Step) previous() (Step, bool) {
	if s <= StepLanding {
		return s, false
	}
	return s - 1, true
}
