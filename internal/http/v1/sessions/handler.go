// Package sessions exposes the wizard session lifecycle and intents over HTTP.
package sessions

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/lostcat/internal/photo"
	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/platform/timeutil"
	"github.com/janisto/lostcat/internal/service/describe"
	sessionsvc "github.com/janisto/lostcat/internal/service/session"
	"github.com/janisto/lostcat/internal/wizard"
)

// Register registers session endpoints.
func Register(api huma.API, svc *sessionsvc.Service, loader *photo.Loader, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Start a poster session",
		Description:   "Creates a wizard session at the landing step with an empty profile dated today.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, _ *SessionCreateInput) (*SessionCreateOutput, error) {
		sess, err := svc.Start(ctx)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &SessionCreateOutput{
			Location: sessionURL(prefix, sess.ID),
			Body:     toHTTPSession(prefix, sess),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}",
		Summary:     "Get a session",
		Description: "Returns the active step, the profile and whether the wizard can advance.",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *SessionPathInput) (*SessionOutput, error) {
		sess, err := svc.Get(ctx, input.SessionID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &SessionOutput{Body: toHTTPSession(prefix, sess)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{sessionId}",
		Summary:       "End a session",
		Description:   "Drops the session. A description request still in flight is discarded.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *SessionPathInput) (*struct{}, error) {
		if err := svc.End(ctx, input.SessionID); err != nil {
			return nil, mapServiceError(err)
		}
		return nil, nil
	})

	registerIntent(api, svc, prefix, "start-session", "/sessions/{sessionId}/start",
		"Start the campaign", "Moves from landing to details. Elsewhere it is a no-op.", wizard.Start())
	registerIntent(api, svc, prefix, "advance-session", "/sessions/{sessionId}/advance",
		"Advance to the next step",
		"Moves one step forward. Leaving details requires a name and a last seen address; "+
			"a refusal is reported with moved=false and the missing fields.", wizard.Advance())
	registerIntent(api, svc, prefix, "retreat-session", "/sessions/{sessionId}/retreat",
		"Go back one step", "Moves one step back. At landing it is a no-op.", wizard.Retreat())

	huma.Register(api, huma.Operation{
		OperationID: "update-session-profile",
		Method:      http.MethodPatch,
		Path:        "/sessions/{sessionId}/profile",
		Summary:     "Update profile fields",
		Description: "Replaces each provided field. A malformed last seen date is ignored and reported.",
		Tags:        []string{"Profile"},
	}, func(ctx context.Context, input *ProfileUpdateInput) (*ProfileUpdateOutput, error) {
		fields, intents := profileIntents(input)
		if len(intents) == 0 {
			return nil, huma.Error422UnprocessableEntity("at least one field must be provided")
		}
		sess, outcomes, err := svc.ApplyAll(ctx, input.SessionID, intents)
		if err != nil {
			return nil, mapServiceError(err)
		}
		ignored := []string{}
		for i, o := range outcomes {
			if o == wizard.OutcomeNoOp {
				ignored = append(ignored, string(fields[i]))
			}
		}
		return &ProfileUpdateOutput{Body: ProfileUpdate{
			Ignored: ignored,
			Session: toHTTPSession(prefix, sess),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-session-feature",
		Method:      http.MethodPost,
		Path:        "/sessions/{sessionId}/features",
		Summary:     "Add a distinctive feature",
		Description: "Appends the trimmed text to the feature list. Blank text is a no-op.",
		Tags:        []string{"Profile"},
	}, func(ctx context.Context, input *FeatureAddInput) (*TransitionOutput, error) {
		sess, outcome, err := svc.Apply(ctx, input.SessionID, wizard.AddFeature(input.Body.Text))
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &TransitionOutput{Body: toTransition(prefix, sess, outcome, false)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "put-session-photo",
		Method:       http.MethodPut,
		Path:         "/sessions/{sessionId}/photo",
		Summary:      "Set the photo",
		Description:  "Replaces the photo with the uploaded JPEG, PNG, GIF or WebP image. Large images are scaled down.",
		Tags:         []string{"Profile"},
		MaxBodyBytes: loader.MaxBytes + 1,
	}, func(ctx context.Context, input *PhotoPutInput) (*SessionOutput, error) {
		p, err := loader.Load(ctx, bytes.NewReader(input.RawBody))
		if err != nil {
			return nil, mapPhotoError(err)
		}
		sess, _, err := svc.Apply(ctx, input.SessionID, wizard.SetPhoto(p))
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &SessionOutput{Body: toHTTPSession(prefix, sess)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-photo",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}/photo",
		Summary:     "Get the photo",
		Description: "Returns the stored image bytes.",
		Tags:        []string{"Profile"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Stored image",
				Content: map[string]*huma.MediaType{
					"image/jpeg": {},
					"image/png":  {},
				},
			},
		},
	}, func(ctx context.Context, input *SessionPathInput) (*PhotoGetOutput, error) {
		sess, err := svc.Get(ctx, input.SessionID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		p := sess.State.Profile.Photo
		if p == nil || len(p.Data) == 0 {
			return nil, huma.Error404NotFound("session has no photo")
		}
		return &PhotoGetOutput{ContentType: p.ContentType, Body: p.Data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-session-description",
		Method:      http.MethodPost,
		Path:        "/sessions/{sessionId}/description",
		Summary:     "Generate a description",
		Description: "Asks the language model for a short poster description and stores it. " +
			"Only one request per session runs at a time; on failure the description is left unchanged.",
		Tags: []string{"Profile"},
	}, func(ctx context.Context, input *SessionPathInput) (*SessionOutput, error) {
		ctx = applog.WithSession(ctx, input.SessionID)
		sess, err := svc.GenerateDescription(ctx, input.SessionID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &SessionOutput{Body: toHTTPSession(prefix, sess)}, nil
	})
}

func registerIntent(api huma.API, svc *sessionsvc.Service, prefix, id, path, summary, description string, in wizard.Intent) {
	huma.Register(api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"Wizard"},
	}, func(ctx context.Context, input *SessionPathInput) (*TransitionOutput, error) {
		sess, outcome, err := svc.Apply(ctx, input.SessionID, in)
		if err != nil {
			return nil, mapServiceError(err)
		}
		// Step intents are accepted exactly when the step changes.
		return &TransitionOutput{Body: toTransition(prefix, sess, outcome, outcome == wizard.OutcomeAccepted)}, nil
	})
}

// profileIntents turns the provided fields into UpdateField intents in field order.
func profileIntents(input *ProfileUpdateInput) ([]wizard.Field, []wizard.Intent) {
	var (
		fields  []wizard.Field
		intents []wizard.Intent
	)
	for _, f := range wizard.Fields {
		if v := input.field(f); v != nil {
			fields = append(fields, f)
			intents = append(intents, wizard.UpdateField(f, *v))
		}
	}
	return fields, intents
}

func (in *ProfileUpdateInput) field(f wizard.Field) *string {
	b := &in.Body
	switch f {
	case wizard.FieldName:
		return b.Name
	case wizard.FieldBreed:
		return b.Breed
	case wizard.FieldColor:
		return b.Color
	case wizard.FieldLastSeenAddress:
		return b.LastSeenAddress
	case wizard.FieldLastSeenDate:
		return b.LastSeenDate
	case wizard.FieldOwnerName:
		return b.OwnerName
	case wizard.FieldPhone:
		return b.Phone
	case wizard.FieldDescription:
		return b.Description
	default:
		return nil
	}
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, sessionsvc.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, sessionsvc.ErrGenerationInProgress):
		return huma.Error409Conflict("description generation already in progress")
	case errors.Is(err, sessionsvc.ErrStaleResult):
		return huma.Error409Conflict("description result discarded; the session changed or ended")
	case errors.Is(err, sessionsvc.ErrConflict):
		return huma.Error409Conflict("session was modified concurrently, retry")
	case errors.Is(err, sessionsvc.ErrTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, "session exceeds the store size limit")
	case errors.Is(err, describe.ErrIncompleteRequest):
		return huma.Error422UnprocessableEntity("name and last seen address are required")
	case errors.Is(err, describe.ErrMissingCredential):
		return huma.Error503ServiceUnavailable("description generator is not configured")
	case errors.Is(err, describe.ErrGenerationFailed):
		return huma.Error502BadGateway("description generation failed")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func mapPhotoError(err error) error {
	switch {
	case errors.Is(err, photo.ErrTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, "photo exceeds the size limit")
	case errors.Is(err, photo.ErrUnsupported):
		return huma.Error415UnsupportedMediaType("photo must be JPEG, PNG, GIF or WebP")
	case errors.Is(err, photo.ErrDecode), errors.Is(err, photo.ErrEmpty):
		return huma.Error422UnprocessableEntity("photo could not be read")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func sessionURL(prefix, id string) string {
	return prefix + "/sessions/" + id
}

func toHTTPSession(prefix string, s *sessionsvc.Session) Session {
	m := wizard.Resume(s.State)
	p := s.State.Profile

	missing := []string{}
	for _, f := range m.Missing() {
		missing = append(missing, string(f))
	}
	features := append([]string{}, p.Features...)

	out := Session{
		ID:   s.ID,
		Step: s.State.Step.String(),
		Profile: Profile{
			Name:            p.Name,
			Breed:           p.Breed,
			Color:           p.Color,
			LastSeenAddress: p.LastSeenAddress,
			LastSeenDate:    p.LastSeenDate,
			OwnerName:       p.OwnerName,
			Phone:           p.Phone,
			Description:     p.Description,
			Features:        features,
		},
		Generating: s.Generating,
		CanAdvance: m.CanAdvance(),
		Missing:    missing,
		CreatedAt:  timeutil.NewTime(s.CreatedAt),
		UpdatedAt:  timeutil.NewTime(s.UpdatedAt),
		ExpiresAt:  timeutil.NewTime(s.ExpiresAt),
	}
	if p.Photo != nil {
		out.Profile.Photo = &Photo{
			ContentType: p.Photo.ContentType,
			Width:       p.Photo.Width,
			Height:      p.Photo.Height,
			URL:         sessionURL(prefix, s.ID) + "/photo",
		}
	}
	return out
}

func toTransition(prefix string, s *sessionsvc.Session, outcome wizard.Outcome, moved bool) Transition {
	snap := toHTTPSession(prefix, s)
	return Transition{
		Outcome: outcome.String(),
		Moved:   moved,
		Step:    snap.Step,
		Missing: snap.Missing,
		Session: snap,
	}
}
