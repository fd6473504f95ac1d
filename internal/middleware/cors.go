package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// PreviewCORS lets the CMS studio call the preview-mode API from its own
// origin with credentials, so the preview cookie round-trips.  With no
// studio origin it allows nothing cross-origin.
func PreviewCORS(studioURL string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	// cors treats an empty AllowedOrigins as "*".
	if o := Origin(studioURL); o != "" {
		opts.AllowedOrigins = []string{o}
	} else {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
