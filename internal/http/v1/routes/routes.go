package routes

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/lostcat/internal/http/v1/poster"
	"github.com/janisto/lostcat/internal/http/v1/sessions"
	"github.com/janisto/lostcat/internal/photo"
	sessionsvc "github.com/janisto/lostcat/internal/service/session"
)

// Register wires all HTTP routes into the provided API router.
func Register(
	api huma.API,
	sessionService *sessionsvc.Service,
	loader *photo.Loader,
	posterConfig poster.Config,
) {
	prefix := apiPrefix(api)

	sessions.Register(api, sessionService, loader, prefix)
	poster.Register(api, sessionService, posterConfig, prefix)
}

func apiPrefix(api huma.API) string {
	for _, s := range api.OpenAPI().Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return ""
}
