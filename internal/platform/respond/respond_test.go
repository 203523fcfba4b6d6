package respond

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"

	appmiddleware "github.com/janisto/lostcat/internal/platform/middleware"
)

func varySet(h http.Header) map[string]int {
	set := make(map[string]int)
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			set[strings.TrimSpace(part)]++
		}
	}
	return set
}

func TestNotFoundHandlerReturnsProblemDetails(t *testing.T) {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/nowhere?q=<cat>", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected application/problem+json, got %q", ct)
	}
	link := resp.Header().Get("Link")
	if !strings.Contains(link, "/schemas/ErrorModel.json") || !strings.Contains(link, "describedBy") {
		t.Fatalf("expected Link header with schema, got %q", link)
	}

	var p problem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	if p.Status != http.StatusNotFound || p.Title != "Not Found" || p.Detail != "resource not found" {
		t.Fatalf("unexpected problem %+v", p)
	}
	if !strings.HasPrefix(p.Schema, "http://example.com/schemas/ErrorModel.json") {
		t.Fatalf("unexpected $schema %q", p.Schema)
	}
	if strings.Contains(resp.Body.String(), `<`) {
		t.Fatalf("response must not be HTML-escaped: %s", resp.Body.String())
	}
}

func TestNotFoundHandlerReturnsCBORWhenAccepted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	NotFoundHandler().ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+cbor" {
		t.Fatalf("expected application/problem+cbor, got %q", ct)
	}
	var p huma.ErrorModel
	if err := cbor.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal CBOR problem: %v", err)
	}
	if p.Status != http.StatusNotFound || p.Title != "Not Found" {
		t.Fatalf("unexpected problem %+v", p)
	}
}

func TestMethodNotAllowedListsAllowedMethods(t *testing.T) {
	router := chi.NewRouter()
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Get("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {})
	router.Delete("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {})

	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	allow := resp.Header().Get("Allow")
	for _, m := range []string{"GET", "DELETE"} {
		if !strings.Contains(allow, m) {
			t.Errorf("expected Allow to contain %s, got %q", m, allow)
		}
	}
	if strings.Contains(allow, "PUT") {
		t.Errorf("Allow must not list PUT, got %q", allow)
	}
}

func TestAllowedMethodsNilRouteContext(t *testing.T) {
	if got := allowedMethods(httptest.NewRequest(http.MethodGet, "/", nil)); got != nil {
		t.Fatalf("expected nil without chi context, got %v", got)
	}
}

func TestRecovererReturnsProblemDetails(t *testing.T) {
	for _, accept := range []string{"", "application/cbor"} {
		router := chi.NewRouter()
		router.Use(appmiddleware.RequestID(), Recoverer())
		api := humachi.New(router, huma.DefaultConfig("Test", "test"))
		huma.Get(api, "/panic", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
			panic(errors.New("boom"))
		})
		router.Get("/panic-int", func(http.ResponseWriter, *http.Request) { panic(42) })

		for _, path := range []string{"/panic", "/panic-int"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Accept", accept)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusInternalServerError {
				t.Fatalf("%s: expected 500, got %d", path, resp.Code)
			}
			var p huma.ErrorModel
			var err error
			if accept == "" {
				err = json.Unmarshal(resp.Body.Bytes(), &p)
			} else {
				err = cbor.Unmarshal(resp.Body.Bytes(), &p)
			}
			if err != nil {
				t.Fatalf("%s: failed to decode problem: %v", path, err)
			}
			if p.Detail != "internal server error" || p.Title != "Internal Server Error" {
				t.Fatalf("%s: unexpected problem %+v", path, p)
			}
		}
	}
}

func TestRecovererRePanicsOnErrAbortHandler(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/abort", func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected http.ErrAbortHandler to be re-panicked, got %v", err)
		}
	}()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	t.Fatal("expected panic to propagate")
}

func TestRecovererSkipsWriteWhenHeaderAlreadyWritten(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/poster.png", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("encoder crashed")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/poster.png", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "partial" {
		t.Fatalf("expected partial response preserved, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestWriteProblemWithErrorDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc/photo", nil)
	resp := httptest.NewRecorder()
	WriteProblem(resp, req, http.StatusRequestEntityTooLarge, "photo exceeds 10 MiB",
		&huma.ErrorDetail{Location: "body", Message: "too large"})

	var p problem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	if resp.Code != http.StatusRequestEntityTooLarge || len(p.Errors) != 1 || p.Errors[0].Location != "body" {
		t.Fatalf("unexpected problem %d %+v", resp.Code, p)
	}
}

func TestWriteRedirect(t *testing.T) {
	for _, code := range []int{http.StatusFound, http.StatusSeeOther, http.StatusPermanentRedirect} {
		resp := httptest.NewRecorder()
		WriteRedirect(resp, httptest.NewRequest(http.MethodGet, "/", nil), "/v1/sessions/abc", code)
		if resp.Code != code || resp.Header().Get("Location") != "/v1/sessions/abc" {
			t.Fatalf("expected %d redirect, got %d %q", code, resp.Code, resp.Header().Get("Location"))
		}
	}
}

func TestSchemaURLUsesHTTPS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Host = "lostcat.example"
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := schemaURL(req); got != "https://lostcat.example/schemas/ErrorModel.json" {
		t.Fatalf("unexpected schema url %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Host = "secure.example"
	req.TLS = &tls.ConnectionState{}
	if got := schemaURL(req); !strings.HasPrefix(got, "https://secure.example") {
		t.Fatalf("expected https with TLS, got %q", got)
	}
}

func TestEnsureVaryMergesWithoutDuplicates(t *testing.T) {
	h := make(http.Header)
	h.Set("Vary", "Accept-Encoding, Accept")
	ensureVary(h, "Origin", "Accept", "Origin")

	set := varySet(h)
	for _, v := range []string{"Accept-Encoding", "Accept", "Origin"} {
		if set[v] != 1 {
			t.Errorf("expected %s exactly once, got %v", v, h.Values("Vary"))
		}
	}

	empty := make(http.Header)
	ensureVary(empty)
	if len(empty.Values("Vary")) != 0 {
		t.Fatal("expected no Vary header for no values")
	}
}

func TestParseAccept(t *testing.T) {
	ranges := parseAccept("text, , application/json;q=invalid, application/cbor;q=2.0, application/x;q=0.5;q=0.9")
	if len(ranges) != 4 {
		t.Fatalf("expected 4 ranges, got %d", len(ranges))
	}
	if ranges[0].typ != "text" || ranges[0].subtype != "*" {
		t.Errorf("expected text/*, got %s/%s", ranges[0].typ, ranges[0].subtype)
	}
	if ranges[1].q != 1.0 || ranges[2].q != 1.0 {
		t.Errorf("expected invalid q values to default to 1.0, got %v %v", ranges[1].q, ranges[2].q)
	}
	if ranges[3].q != 0.9 {
		t.Errorf("expected last q to win, got %v", ranges[3].q)
	}
}

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		accept string
		cbor   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/*", false},
		{"application/json", false},
		{"application/cbor", true},
		{"Application/CBOR", true},
		{"  application/cbor  ;  q=1.0  ", true},
		{"application/json, application/cbor", false},
		{"application/json;q=0.9, application/cbor;q=1.0", true},
		{"application/problem+cbor", true},
		{"application/problem+json", false},
		{"application/cbor, application/problem+cbor", true},
		{"application/cbor;q=0, application/json", false},
		{"application/json;q=0, application/cbor", true},
		{"application/cbor;q=0.1", true},
		{"*/*;q=0.1, application/cbor;q=1.0", true},
		{"application/problem+cbor;q=0.1, application/json;q=1.0", false},
		{"application/json;q=0.8, application/problem+cbor;q=0.8", true},
		{"application/cbor;q=0.8, application/problem+json;q=0.8", false},
		{"application/*+cbor", true},
		{"application/*+json", false},
		{"text/html", false},
		{"image/png, text/plain", false},
		{"*/*;q=0", false},
		{"application/json;q=0, application/cbor;q=0", false},
	}
	for _, tt := range tests {
		if got := selectFormat(tt.accept); got != tt.cbor {
			t.Errorf("selectFormat(%q) = %v, want %v", tt.accept, got, tt.cbor)
		}
	}
}

func TestResponseWriterTracksHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec}
	if rw.wroteHeader {
		t.Fatal("expected wroteHeader false initially")
	}
	if _, err := rw.Write([]byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rw.wroteHeader {
		t.Fatal("expected wroteHeader after Write")
	}
	if rw.Unwrap() != rec {
		t.Fatal("expected Unwrap to return the underlying writer")
	}
}
