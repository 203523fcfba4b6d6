// Package poster provides an HTTP Cloud Function that renders a poster from a
// profile in one request, without a session.
package poster

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/janisto/lostcat/internal/http/health"
	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/platform/respond"
	"github.com/janisto/lostcat/internal/poster"
	"github.com/janisto/lostcat/internal/share"
	"github.com/janisto/lostcat/internal/wizard"
)

const maxBodyBytes = 64 << 10

// entryPoints maps deployed function names to their handlers.
var entryPoints = map[string]http.HandlerFunc{
	"RenderPoster": renderHandler,
	"PosterHealth": health.Handler,
}

func init() {
	for name, h := range entryPoints {
		functions.HTTP(name, h)
	}
}

// Request is the profile to print. Photos are not accepted here.
type Request struct {
	Name            string   `json:"name"`
	Breed           string   `json:"breed"`
	Color           string   `json:"color"`
	LastSeenAddress string   `json:"lastSeenAddress"`
	LastSeenDate    string   `json:"lastSeenDate"`
	OwnerName       string   `json:"ownerName"`
	Phone           string   `json:"phone"`
	Description     string   `json:"description"`
	Features        []string `json:"features"`
}

// profile replays the request through a wizard and reports what blocks the
// poster, if anything.
func (req Request) profile(now time.Time) (wizard.Profile, []*huma.ErrorDetail) {
	m := wizard.NewMachine(now)
	m.Start()
	values := map[wizard.Field]string{
		wizard.FieldName:            req.Name,
		wizard.FieldBreed:           req.Breed,
		wizard.FieldColor:           req.Color,
		wizard.FieldLastSeenAddress: req.LastSeenAddress,
		wizard.FieldOwnerName:       req.OwnerName,
		wizard.FieldPhone:           req.Phone,
		wizard.FieldDescription:     req.Description,
	}
	for f, v := range values {
		m.UpdateField(f, v)
	}

	var details []*huma.ErrorDetail
	if req.LastSeenDate != "" {
		if !wizard.ValidDate(req.LastSeenDate) {
			details = append(details, &huma.ErrorDetail{
				Message:  "expected date in YYYY-MM-DD format",
				Location: "body.lastSeenDate",
				Value:    req.LastSeenDate,
			})
		}
		m.UpdateField(wizard.FieldLastSeenDate, req.LastSeenDate)
	}
	for _, text := range req.Features {
		m.AddFeature(text)
	}
	for _, f := range m.Missing() {
		details = append(details, &huma.ErrorDetail{
			Message:  "required",
			Location: "body." + string(f),
		})
	}
	return m.Profile(), details
}

func renderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respond.WriteProblem(w, r, http.StatusMethodNotAllowed, "use POST with a JSON profile")
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respond.WriteProblem(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	profile, details := req.profile(time.Now().UTC())
	if len(details) > 0 {
		respond.WriteProblem(w, r, http.StatusUnprocessableEntity, "profile is incomplete", details...)
		return
	}

	q := r.URL.Query()
	locale := q.Get("locale")
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	layout := poster.Render(profile, poster.Options{Locale: locale, Share: share.DefaultBuilder})

	var err error
	switch format := q.Get("format"); format {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = poster.WriteHTML(w, layout)
	case "png":
		w.Header().Set("Content-Type", "image/png")
		err = poster.WritePNG(w, layout)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(layout)
	default:
		respond.WriteProblem(w, r, http.StatusBadRequest, "format must be html, png or json")
		return
	}
	if err != nil {
		applog.LogError(r.Context(), "render poster failed", err, zap.String("format", q.Get("format")))
	}
}
