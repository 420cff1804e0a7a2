package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"}
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight result.
const corsMaxAge = 3600

// NewCORS returns the CORS middleware for the given origins. With no
// origins every origin is allowed but credentials are not; with a list
// only those origins are allowed, with credentials.
func NewCORS(origins []string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	opts := cors.Options{
		AllowedMethods: corsMethods,
		AllowedHeaders: corsHeaders,
		ExposedHeaders: []string{TraceIDHeader},
		MaxAge:         corsMaxAge,
	}

	if len(origins) == 0 {
		log.Warn("no CORS origins configured, allowing all origins without credentials")
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	} else {
		log.Info("CORS restricted to configured origins", slog.Any("origins", origins))
		opts.AllowedOrigins = origins
		opts.AllowCredentials = true
	}

	return cors.New(opts).Handler
}
