package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/lostcat/internal/http/health"
	"github.com/janisto/lostcat/internal/http/v1/poster"
	"github.com/janisto/lostcat/internal/http/v1/routes"
	"github.com/janisto/lostcat/internal/photo"
	"github.com/janisto/lostcat/internal/platform/config"
	applog "github.com/janisto/lostcat/internal/platform/logging"
	appmiddleware "github.com/janisto/lostcat/internal/platform/middleware"
	"github.com/janisto/lostcat/internal/platform/respond"
	"github.com/janisto/lostcat/internal/service/describe"
	sessionsvc "github.com/janisto/lostcat/internal/service/session"
	"github.com/janisto/lostcat/internal/share"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const (
	apiPrefix = "/v1"
	docsPath  = "/api-docs"
)

// app holds the wired dependencies of the HTTP server.
type app struct {
	cfg       config.Config
	sessions  *sessionsvc.Service
	loader    *photo.Loader
	poster    poster.Config
	checks    []health.Check
	closeFunc func() error
}

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	if err := run(); err != nil {
		applog.LogError(context.Background(), "server failed", err)
		_ = applog.Sync()
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	applog.SetProjectID(cfg.Firebase.ProjectID)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.closeFunc(); err != nil {
			applog.LogError(ctx, "session store close error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		// Description generation and PNG export both run inside the request.
		WriteTimeout:   cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 64 << 10, // 64 KB
	}

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Session.Store),
			zap.String("version", Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-stop:
		applog.LogInfo(ctx, "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	applog.LogInfo(ctx, "server exited")
	return nil
}

// newApp builds the session service, the generator and the poster settings.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	gen, err := describe.NewClient(ctx, cfg.Gemini.APIKey,
		describe.WithModel(cfg.Gemini.Model),
		describe.WithTimeout(cfg.Gemini.Timeout),
		describe.WithStrictEmpty(cfg.Gemini.StrictEmpty),
		describe.WithBaseURL(cfg.Gemini.BaseURL),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Gemini.APIKey == "" {
		applog.LogWarn(ctx, "no Gemini API key configured, description generation is disabled")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	loader := photo.NewLoader(cfg.Photo.MaxBytes, cfg.Photo.MaxDimension)
	loader.MaxPixels = cfg.Photo.MaxPixels

	return &app{
		cfg:      cfg,
		sessions: sessionsvc.NewService(store.Store, gen, sessionsvc.WithTTL(cfg.Session.TTL)),
		loader:   loader,
		poster: poster.Config{
			Share: share.Builder{
				MapsEmbedKey:     cfg.Share.MapsEmbedKey,
				ReferralURL:      cfg.Share.ReferralURL,
				WhatsAppReferral: cfg.Share.WhatsAppReferral,
				QRSize:           cfg.Share.QRSize,
			},
			Locale: cfg.Poster.Locale,
		},
		checks:    store.Checks,
		closeFunc: store.Close,
	}, nil
}

// newRouter assembles the middleware stack, the health check and the
// versioned huma API.
func newRouter(a *app) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(apiPrefix+docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(a.cfg.CORSOrigins...),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		chimiddleware.RealIP,
		// Sized for one photo upload plus headers.
		chimiddleware.RequestSize(a.cfg.RequestBodyLimit()),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/health", health.New(a.checks...))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRedirect(w, r, apiPrefix+docsPath, http.StatusFound)
	})

	router.Route(apiPrefix, func(r chi.Router) {
		cfg := huma.DefaultConfig("Lost Cat Poster API", Version)
		cfg.DocsPath = docsPath
		cfg.Servers = []*huma.Server{{URL: apiPrefix}}
		api := humachi.New(r, cfg)
		addCBORContentTypes(api)
		routes.Register(api, a.sessions, a.loader, a.poster)
	})

	return router
}

// addCBORContentTypes mirrors every JSON request and response schema as CBOR
// in the OpenAPI document.
func addCBORContentTypes(api huma.API) {
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			if op.RequestBody != nil && op.RequestBody.Content != nil {
				if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
					op.RequestBody.Content["application/cbor"] = jsonContent
				}
			}
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
}
