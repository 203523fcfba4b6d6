package sessions

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/lostcat/internal/photo"
	applog "github.com/janisto/lostcat/internal/platform/logging"
	appmiddleware "github.com/janisto/lostcat/internal/platform/middleware"
	"github.com/janisto/lostcat/internal/platform/respond"
	"github.com/janisto/lostcat/internal/service/describe"
	sessionsvc "github.com/janisto/lostcat/internal/service/session"
)

type testServer struct {
	router chi.Router
	gen    *describe.MockGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := sessionsvc.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	gen := describe.NewMockGenerator("Milo is a friendly orange tabby.")
	svc := sessionsvc.NewService(store, gen)

	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	router.Route("/v1", func(r chi.Router) {
		cfg := huma.DefaultConfig("SessionsTest", "test")
		cfg.Servers = []*huma.Server{{URL: "/v1"}}
		api := humachi.New(r, cfg)
		Register(api, svc, photo.NewLoader(1<<20, 64), "/v1")
	})
	return &testServer{router: router, gen: gen}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if _, raw := body.([]byte); !raw && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	ts.router.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", resp.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

func (ts *testServer) create(t *testing.T) Session {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/v1/sessions", nil)
	expectStatus(t, resp, http.StatusCreated)
	return decode[Session](t, resp)
}

// ready returns a session at Details with the required fields set.
func (ts *testServer) ready(t *testing.T) Session {
	t.Helper()
	s := ts.create(t)
	expectStatus(t, ts.do(t, http.MethodPost, "/v1/sessions/"+s.ID+"/start", nil), http.StatusOK)
	resp := ts.do(t, http.MethodPatch, "/v1/sessions/"+s.ID+"/profile", map[string]string{
		"name":            "Milo",
		"lastSeenAddress": "221B Baker St",
	})
	expectStatus(t, resp, http.StatusOK)
	return decode[ProfileUpdate](t, resp).Session
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 230, G: 120, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/v1/sessions", nil)
	expectStatus(t, resp, http.StatusCreated)

	s := decode[Session](t, resp)
	if loc := resp.Header().Get("Location"); loc != "/v1/sessions/"+s.ID {
		t.Fatalf("unexpected Location %q", loc)
	}
	if s.Step != "landing" || !s.CanAdvance {
		t.Fatalf("expected landing and advanceable, got %+v", s)
	}
	if s.Profile.LastSeenDate == "" || s.Profile.Features == nil || len(s.Missing) != 0 {
		t.Fatalf("unexpected initial profile %+v missing=%v", s.Profile, s.Missing)
	}
	if s.Profile.Photo != nil {
		t.Fatal("expected no photo")
	}
}

func TestGetUnknownSessionReturnsProblem(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/v1/sessions/does-not-exist", nil)
	expectStatus(t, resp, http.StatusNotFound)
	if ct := resp.Header().Get("Content-Type"); !strings.Contains(ct, "application/problem+json") {
		t.Fatalf("expected problem+json, got %q", ct)
	}
	p := decode[huma.ErrorModel](t, resp)
	if p.Detail != "session not found" {
		t.Fatalf("unexpected detail %q", p.Detail)
	}
}

func TestWizardWalkOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create(t)
	base := "/v1/sessions/" + s.ID

	tr := decode[Transition](t, ts.do(t, http.MethodPost, base+"/start", nil))
	if !tr.Moved || tr.Step != "details" || tr.Outcome != "accepted" {
		t.Fatalf("unexpected start result %+v", tr)
	}

	resp := ts.do(t, http.MethodPost, base+"/advance", nil)
	expectStatus(t, resp, http.StatusOK)
	tr = decode[Transition](t, resp)
	if tr.Moved || tr.Outcome != "refused" || tr.Step != "details" {
		t.Fatalf("expected refused advance, got %+v", tr)
	}
	if !slices.Equal(tr.Missing, []string{"name", "lastSeenAddress"}) {
		t.Fatalf("unexpected missing %v", tr.Missing)
	}

	resp = ts.do(t, http.MethodPatch, base+"/profile", map[string]string{
		"name":            "Milo",
		"lastSeenAddress": "221B Baker St",
		"lastSeenDate":    "2024-02-30",
		"phone":           "555-0100",
	})
	expectStatus(t, resp, http.StatusOK)
	pu := decode[ProfileUpdate](t, resp)
	if !slices.Equal(pu.Ignored, []string{"lastSeenDate"}) {
		t.Fatalf("expected malformed date ignored, got %v", pu.Ignored)
	}
	if pu.Session.Profile.Name != "Milo" || pu.Session.Profile.Phone != "555-0100" || !pu.Session.CanAdvance {
		t.Fatalf("unexpected profile after patch %+v", pu.Session)
	}

	tr = decode[Transition](t, ts.do(t, http.MethodPost, base+"/advance", nil))
	if !tr.Moved || tr.Step != "photo" {
		t.Fatalf("expected photo step, got %+v", tr)
	}

	resp = ts.do(t, http.MethodPut, base+"/photo", pngBytes(t, 128, 64))
	expectStatus(t, resp, http.StatusOK)
	got := decode[Session](t, resp)
	if got.Profile.Photo == nil || got.Profile.Photo.Width != 64 || got.Profile.Photo.Height != 32 {
		t.Fatalf("expected photo scaled to 64x32, got %+v", got.Profile.Photo)
	}
	if got.Profile.Photo.URL != base+"/photo" {
		t.Fatalf("unexpected photo url %q", got.Profile.Photo.URL)
	}

	resp = ts.do(t, http.MethodGet, base+"/photo", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Fatalf("expected decodable png: %v", err)
	}

	tr = decode[Transition](t, ts.do(t, http.MethodPost, base+"/advance", nil))
	if !tr.Moved || tr.Step != "preview" {
		t.Fatalf("expected preview, got %+v", tr)
	}
	tr = decode[Transition](t, ts.do(t, http.MethodPost, base+"/advance", nil))
	if tr.Moved || tr.Outcome != "noop" || tr.Step != "preview" {
		t.Fatalf("expected preview to be resting, got %+v", tr)
	}

	tr = decode[Transition](t, ts.do(t, http.MethodPost, base+"/retreat", nil))
	if !tr.Moved || tr.Step != "photo" {
		t.Fatalf("expected retreat to photo, got %+v", tr)
	}
}

func TestPatchProfileRequiresAField(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create(t)
	resp := ts.do(t, http.MethodPatch, "/v1/sessions/"+s.ID+"/profile", map[string]string{})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestAddFeature(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create(t)
	path := "/v1/sessions/" + s.ID + "/features"

	tr := decode[Transition](t, ts.do(t, http.MethodPost, path, map[string]string{"text": "   "}))
	if tr.Outcome != "noop" || len(tr.Session.Profile.Features) != 0 {
		t.Fatalf("expected blank feature ignored, got %+v", tr)
	}

	ts.do(t, http.MethodPost, path, map[string]string{"text": " White paws "})
	tr = decode[Transition](t, ts.do(t, http.MethodPost, path, map[string]string{"text": "Blue collar"}))
	if tr.Outcome != "accepted" || tr.Moved {
		t.Fatalf("unexpected outcome %+v", tr)
	}
	if !slices.Equal(tr.Session.Profile.Features, []string{"White paws", "Blue collar"}) {
		t.Fatalf("unexpected features %v", tr.Session.Profile.Features)
	}
}

func TestPhotoErrors(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create(t)
	path := "/v1/sessions/" + s.ID + "/photo"

	expectStatus(t, ts.do(t, http.MethodGet, path, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodPut, path, []byte("just some text, not an image")), http.StatusUnsupportedMediaType)

	truncated := pngBytes(t, 8, 8)[:40]
	expectStatus(t, ts.do(t, http.MethodPut, path, truncated), http.StatusUnprocessableEntity)

	big := bytes.Repeat([]byte{0}, (1<<20)+2)
	expectStatus(t, ts.do(t, http.MethodPut, path, big), http.StatusRequestEntityTooLarge)

	after := decode[Session](t, ts.do(t, http.MethodGet, "/v1/sessions/"+s.ID, nil))
	if after.Profile.Photo != nil {
		t.Fatal("failed uploads must not set a photo")
	}
}

func TestGenerateDescription(t *testing.T) {
	ts := newTestServer(t)
	s := ts.ready(t)

	resp := ts.do(t, http.MethodPost, "/v1/sessions/"+s.ID+"/description", nil)
	expectStatus(t, resp, http.StatusOK)
	got := decode[Session](t, resp)
	if got.Profile.Description != "Milo is a friendly orange tabby." || got.Generating {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestGenerateDescriptionErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing credential", describe.ErrMissingCredential, http.StatusServiceUnavailable},
		{"generation failed", describe.ErrGenerationFailed, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			s := ts.ready(t)
			ts.gen.SetError(tt.err)

			resp := ts.do(t, http.MethodPost, "/v1/sessions/"+s.ID+"/description", nil)
			expectStatus(t, resp, tt.want)

			after := decode[Session](t, ts.do(t, http.MethodGet, "/v1/sessions/"+s.ID, nil))
			if after.Generating || after.Profile.Description != "" {
				t.Fatalf("failure must reset busy flag and keep description, got %+v", after)
			}
		})
	}
}

func TestGenerateDescriptionIncompleteProfile(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create(t)
	resp := ts.do(t, http.MethodPost, "/v1/sessions/"+s.ID+"/description", nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if len(ts.gen.Requests()) != 0 {
		t.Fatal("generator must not be called for an incomplete profile")
	}
}

func TestGenerateDescriptionConcurrentRequestConflicts(t *testing.T) {
	ts := newTestServer(t)
	s := ts.ready(t)
	release := ts.gen.Hold()
	path := "/v1/sessions/" + s.ID + "/description"

	var (
		wg    sync.WaitGroup
		first *httptest.ResponseRecorder
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		first = httptest.NewRecorder()
		ts.router.ServeHTTP(first, req)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(ts.gen.Requests()) == 0 {
		if time.Now().After(deadline) {
			release()
			t.Fatal("generator was never called")
		}
		time.Sleep(5 * time.Millisecond)
	}

	snap := decode[Session](t, ts.do(t, http.MethodGet, "/v1/sessions/"+s.ID, nil))
	if !snap.Generating {
		t.Error("expected generating flag while the request is in flight")
	}
	expectStatus(t, ts.do(t, http.MethodPost, path, nil), http.StatusConflict)

	release()
	wg.Wait()
	expectStatus(t, first, http.StatusOK)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t)
	s := ts.create(t)

	expectStatus(t, ts.do(t, http.MethodDelete, "/v1/sessions/"+s.ID, nil), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodGet, "/v1/sessions/"+s.ID, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, "/v1/sessions/"+s.ID, nil), http.StatusNotFound)
}

func TestGetSessionAsCBOR(t *testing.T) {
	ts := newTestServer(t)
	s := ts.ready(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+s.ID, nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	ts.router.ServeHTTP(resp, req)

	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor, got %q", ct)
	}
	var got Session
	if err := cbor.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode cbor: %v", err)
	}
	if got.ID != s.ID || got.Profile.Name != "Milo" || got.Step != "details" {
		t.Fatalf("unexpected cbor session %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected createdAt to survive the CBOR round trip")
	}
}

func TestMapServiceErrorDefault(t *testing.T) {
	err := mapServiceError(http.ErrHandlerTimeout)
	se, ok := err.(huma.StatusError)
	if !ok || se.GetStatus() != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	for in, want := range map[error]int{
		sessionsvc.ErrConflict:    http.StatusConflict,
		sessionsvc.ErrTooLarge:    http.StatusRequestEntityTooLarge,
		sessionsvc.ErrStaleResult: http.StatusConflict,
	} {
		if se := mapServiceError(in).(huma.StatusError); se.GetStatus() != want {
			t.Errorf("%v: expected %d, got %d", in, want, se.GetStatus())
		}
	}
}
