package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLoggerUsesRequestLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	access := AccessLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/abc/description", nil)
	req = req.WithContext(contextWithLogger(req.Context(), logger))
	access.ServeHTTP(httptest.NewRecorder(), req)

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("expected warn level for 409, got %s", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusConflict) {
		t.Errorf("expected status 409, got %v", fields["status"])
	}
	if fields["path"] != "/v1/sessions/abc/description" {
		t.Errorf("unexpected path %v", fields["path"])
	}
	if _, ok := fields["duration"]; !ok {
		t.Error("expected duration field")
	}
}

func TestRequestLoggerUsesRequestIDAsTraceFallback(t *testing.T) {
	var traceID *string
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "req-42"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if traceID == nil || *traceID != "req-42" {
		t.Fatalf("expected request id as trace id, got %v", traceID)
	}
}

func TestRequestLoggerWithTraceHeader(t *testing.T) {
	SetProjectID("lostcat-dev")
	t.Cleanup(func() { SetProjectID("") })

	var traceID *string
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", validTraceparent)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	want := "projects/lostcat-dev/traces/ab42124a3c573678d4d8b21ba52df3bf"
	if traceID == nil || *traceID != want {
		t.Fatalf("expected %s, got %v", want, traceID)
	}
}

func TestAccessLoggerRouteAndSession(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(contextWithLogger(r.Context(), logger)))
		})
	})
	router.Use(AccessLogger())
	router.Get("/v1/sessions/{sessionId}/poster", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sessions/s-1/poster", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	poster := entries[0]
	if poster.Level != zapcore.ErrorLevel {
		t.Errorf("expected error level for 500, got %s", poster.Level)
	}
	fields := poster.ContextMap()
	if fields["route"] != "/v1/sessions/{sessionId}/poster" {
		t.Errorf("unexpected route %v", fields["route"])
	}
	if fields["sessionId"] != "s-1" {
		t.Errorf("unexpected sessionId %v", fields["sessionId"])
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Errorf("expected debug level for health, got %s", entries[1].Level)
	}
}
