// Package poster serves the finished poster and its share links.
package poster

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/poster"
	sessionsvc "github.com/janisto/lostcat/internal/service/session"
	"github.com/janisto/lostcat/internal/share"
	"github.com/janisto/lostcat/internal/wizard"
)

// Config holds the rendering defaults.
type Config struct {
	Share  share.Builder
	Locale string
}

// Getter loads a session snapshot.
type Getter interface {
	Get(ctx context.Context, id string) (*sessionsvc.Session, error)
}

var errNotPreview = errors.New("poster is only available at the preview step")

// Register registers poster and share endpoints.
func Register(api huma.API, svc Getter, cfg Config, prefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-session-poster",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}/poster",
		Summary:     "Get the poster layout",
		Description: "Returns every text block and link of the poster. Available at the preview step.",
		Tags:        []string{"Poster"},
	}, func(ctx context.Context, input *PosterInput) (*PosterOutput, error) {
		l, sess, err := layout(ctx, svc, cfg, input)
		if err != nil {
			return nil, mapError(err)
		}
		out := Poster{Layout: l}
		if l.Photo != nil {
			out.PhotoURL = prefix + "/sessions/" + sess.ID + "/photo"
		}
		return &PosterOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-poster-html",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}/poster.html",
		Summary:     "Get the printable poster",
		Description: "Returns a self-contained HTML page sized for printing. The photo is inlined.",
		Tags:        []string{"Poster"},
		Responses: map[string]*huma.Response{
			"200": {Description: "Poster page", Content: map[string]*huma.MediaType{"text/html": {}}},
		},
	}, func(ctx context.Context, input *PosterInput) (*PosterFileOutput, error) {
		l, sess, err := layout(ctx, svc, cfg, input)
		if err != nil {
			return nil, mapError(err)
		}
		body, err := poster.HTML(l)
		if err != nil {
			applog.LogError(ctx, "poster html failed", err, zap.String("sessionId", sess.ID))
			return nil, huma.Error500InternalServerError("poster rendering failed")
		}
		return &PosterFileOutput{
			ContentType:        "text/html; charset=utf-8",
			ContentDisposition: disposition(l.Name, "html"),
			Body:               body,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-poster-png",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}/poster.png",
		Summary:     "Export the poster as PNG",
		Description: "Rasterizes the poster at 1000x1414 with a locally generated QR code.",
		Tags:        []string{"Poster"},
		Responses: map[string]*huma.Response{
			"200": {Description: "Poster image", Content: map[string]*huma.MediaType{"image/png": {}}},
		},
	}, func(ctx context.Context, input *PosterInput) (*PosterFileOutput, error) {
		l, sess, err := layout(ctx, svc, cfg, input)
		if err != nil {
			return nil, mapError(err)
		}
		body, err := poster.PNG(l)
		if err != nil {
			applog.LogError(ctx, "poster png failed", err, zap.String("sessionId", sess.ID))
			return nil, huma.Error500InternalServerError("poster rendering failed")
		}
		applog.LogInfo(ctx, "poster exported", zap.String("sessionId", sess.ID), zap.Int("bytes", len(body)))
		return &PosterFileOutput{
			ContentType:        "image/png",
			ContentDisposition: disposition(l.Name, "png"),
			Body:               body,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-share",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}/share",
		Summary:     "Get share links",
		Description: "Returns map, messaging and QR links for the last seen address, plus next steps. Only available at the preview step.",
		Tags:        []string{"Poster"},
	}, func(ctx context.Context, input *ShareInput) (*ShareOutput, error) {
		sess, err := svc.Get(ctx, input.SessionID)
		if err != nil {
			return nil, mapError(err)
		}
		if sess.State.Step != wizard.StepPreview {
			return nil, mapError(errNotPreview)
		}
		links := cfg.Share.All(sess.State.Profile)
		return &ShareOutput{Body: Share{
			MapSearch: links.MapSearch,
			MapEmbed:  links.MapEmbed,
			Message:   links.Message,
			WhatsApp:  links.WhatsApp,
			Facebook:  links.Facebook,
			QRCode:    links.QRCode,
			NextSteps: links.NextSteps,
		}}, nil
	})
}

func layout(ctx context.Context, svc Getter, cfg Config, input *PosterInput) (poster.Layout, *sessionsvc.Session, error) {
	sess, err := svc.Get(ctx, input.SessionID)
	if err != nil {
		return poster.Layout{}, nil, err
	}
	if sess.State.Step != wizard.StepPreview {
		return poster.Layout{}, nil, errNotPreview
	}
	locale := firstNonEmpty(input.Locale, input.AcceptLanguage, cfg.Locale)
	return poster.Render(sess.State.Profile, poster.Options{Locale: locale, Share: cfg.Share}), sess, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, sessionsvc.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, errNotPreview):
		return huma.Error409Conflict(errNotPreview.Error())
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

// disposition names the download after the cat, e.g. lost-cat-milo.png.
func disposition(name, ext string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	filename := "lost-cat"
	if slug != "" {
		filename += "-" + slug
	}
	return `inline; filename="` + filename + "." + ext + `"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
