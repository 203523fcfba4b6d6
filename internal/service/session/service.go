// Package session hosts one wizard per client session and serializes the
// intents sent to it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/service/describe"
	"github.com/janisto/lostcat/internal/wizard"
)

// generationGrace is added to the generator timeout before a busy flag is
// considered abandoned.
const generationGrace = 15 * time.Second

const resourceType = "session"

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrGenerationInProgress):
		return "in_progress"
	case errors.Is(err, ErrStaleResult):
		return "stale"
	case errors.Is(err, describe.ErrIncompleteRequest):
		return "incomplete"
	case errors.Is(err, describe.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, describe.ErrGenerationFailed):
		return "generation_failed"
	default:
		return "internal_error"
	}
}

// Service runs wizard intents against stored sessions.
type Service struct {
	store     Store
	generator describe.Generator
	ttl       time.Duration
	lease     time.Duration
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the sliding session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithGenerationLease sets how long a busy flag blocks new generation requests.
func WithGenerationLease(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithClock replaces the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the session id source (useful for testing).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a session service. The generation lease defaults to the
// generator's timeout plus a grace period when the generator exposes one.
func NewService(store Store, generator describe.Generator, opts ...Option) *Service {
	lease := describe.DefaultTimeout + generationGrace
	if t, ok := generator.(interface{ Timeout() time.Duration }); ok && t.Timeout() > 0 {
		lease = t.Timeout() + generationGrace
	}
	s := &Service{
		store:     store,
		generator: generator,
		ttl:       DefaultTTL,
		lease:     lease,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a session at Landing with an empty profile dated today.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        s.newID(),
		State:     wizard.NewState(wizard.NewProfile(now)),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		applog.LogAuditEvent(ctx, "start", resourceType, sess.ID, "failure",
			map[string]any{"error": categorizeError(err)})
		return nil, err
	}
	applog.LogAuditEvent(ctx, "start", resourceType, sess.ID, "success", nil)
	return sess, nil
}

// Get returns the current session snapshot.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// End deletes the session. A generation still in flight is discarded when it
// returns.
func (s *Service) End(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		applog.LogAuditEvent(ctx, "end", resourceType, id, "failure",
			map[string]any{"error": categorizeError(err)})
		return err
	}
	applog.LogAuditEvent(ctx, "end", resourceType, id, "success", nil)
	return nil
}

// update wraps Store.Update and slides the session expiry.
func (s *Service) update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return s.store.Update(ctx, id, func(sess *Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		now := s.now().UTC()
		sess.UpdatedAt = now
		sess.ExpiresAt = now.Add(s.ttl)
		return nil
	})
}

// Apply runs one intent through the wizard transition function.
func (s *Service) Apply(ctx context.Context, id string, in wizard.Intent) (*Session, wizard.Outcome, error) {
	var outcome wizard.Outcome
	sess, err := s.update(ctx, id, func(sess *Session) error {
		sess.State, outcome = wizard.Transition(sess.State, in)
		return nil
	})
	if err != nil {
		return nil, wizard.OutcomeNoOp, err
	}
	applog.LogInfo(ctx, "intent applied",
		zap.String("sessionId", id),
		zap.Stringer("intent", in.Kind),
		zap.Stringer("outcome", outcome),
		zap.Stringer("step", sess.State.Step),
	)
	return sess, outcome, nil
}

// ApplyAll runs several intents in one store transaction and returns the
// outcome of each.
func (s *Service) ApplyAll(ctx context.Context, id string, intents []wizard.Intent) (*Session, []wizard.Outcome, error) {
	var outcomes []wizard.Outcome
	sess, err := s.update(ctx, id, func(sess *Session) error {
		outcomes = outcomes[:0]
		for _, in := range intents {
			var o wizard.Outcome
			sess.State, o = wizard.Transition(sess.State, in)
			outcomes = append(outcomes, o)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, outcomes, nil
}

// GenerateDescription asks the generator for a description of the session's
// cat and stores it. The busy flag is set before the call and cleared after
// it whether or not the call succeeds. A result is discarded when the session
// ended or a newer request took over in the meantime.
func (s *Service) GenerateDescription(ctx context.Context, id string) (*Session, error) {
	var (
		seq uint64
		req describe.Request
	)
	_, err := s.update(ctx, id, func(sess *Session) error {
		if len(sess.State.Profile.Missing()) > 0 {
			return describe.ErrIncompleteRequest
		}
		now := s.now().UTC()
		if sess.Generating && now.Sub(sess.GenerationStartedAt) < s.lease {
			return ErrGenerationInProgress
		}
		sess.Generating = true
		sess.GenerationSeq++
		sess.GenerationStartedAt = now
		seq = sess.GenerationSeq
		req = describe.RequestFromProfile(sess.State.Profile)
		return nil
	})
	if err != nil {
		applog.LogAuditEvent(ctx, "generate_description", resourceType, id, "failure",
			map[string]any{"error": categorizeError(err)})
		return nil, err
	}

	text, genErr := s.generator.Generate(ctx, req)

	// Commit even when the caller went away so the busy flag is reset.
	commitCtx := context.WithoutCancel(ctx)
	sess, err := s.update(commitCtx, id, func(sess *Session) error {
		if sess.GenerationSeq != seq {
			return ErrStaleResult
		}
		sess.Generating = false
		sess.GenerationStartedAt = time.Time{}
		if genErr == nil {
			sess.State, _ = wizard.Transition(sess.State, wizard.UpdateField(wizard.FieldDescription, text))
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		err = ErrStaleResult
	}
	if err != nil {
		applog.LogAuditEvent(ctx, "generate_description", resourceType, id, "failure",
			map[string]any{"error": categorizeError(err), "seq": seq})
		return nil, err
	}
	if genErr != nil {
		applog.LogAuditEvent(ctx, "generate_description", resourceType, id, "failure",
			map[string]any{"error": categorizeError(genErr), "seq": seq})
		return nil, genErr
	}

	applog.LogAuditEvent(ctx, "generate_description", resourceType, id, "success",
		map[string]any{"seq": seq})
	return sess, nil
}
