package describe

import (
	"context"
	"errors"
	"fmt"

	"github.com/janisto/lostcat/internal/wizard"
)

// Service errors
var (
	ErrMissingCredential = errors.New("description provider credential not configured")
	ErrGenerationFailed  = errors.New("description generation failed")
	ErrIncompleteRequest = errors.New("name and last seen address are required")
)

// FallbackDescription is returned when the provider answers with empty text.
const FallbackDescription = "Help us find our beloved cat."

// GenerationError carries the provider failure behind ErrGenerationFailed.
type GenerationError struct {
	Model string
	cause error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ErrGenerationFailed.Error()
	}
	if e.cause == nil {
		return fmt.Sprintf("description generation failed (model=%s)", e.Model)
	}
	return fmt.Sprintf("description generation failed (model=%s): %v", e.Model, e.cause)
}

// Unwrap matches both ErrGenerationFailed and the provider cause.
func (e *GenerationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.cause == nil {
		return []error{ErrGenerationFailed}
	}
	return []error{ErrGenerationFailed, e.cause}
}

// Request holds the profile fields sent to the provider.
// Owner name and phone are deliberately absent.
type Request struct {
	Name            string
	Breed           string
	Color           string
	Features        []string
	LastSeenAddress string
	LastSeenDate    string
}

// RequestFromProfile copies the describable fields out of a profile.
func RequestFromProfile(p wizard.Profile) Request {
	return Request{
		Name:            p.Name,
		Breed:           p.Breed,
		Color:           p.Color,
		Features:        append([]string(nil), p.Features...),
		LastSeenAddress: p.LastSeenAddress,
		LastSeenDate:    p.LastSeenDate,
	}
}

// Complete reports whether the request carries a name and a last-seen address.
func (r Request) Complete() bool {
	p := wizard.Profile{Name: r.Name, LastSeenAddress: r.LastSeenAddress}
	return len(p.Missing()) == 0
}

// Generator drafts a poster description.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
