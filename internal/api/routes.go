package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/ratelimit"
	"github.com/ignite/blast-sender/internal/web"
)

// SetupRoutes configures all HTTP routes. Only the /api group is rate
// limited.
func SetupRoutes(h *Handlers, cfg config.ServerConfig, limiter ratelimit.Limiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(recoverJSON)
	r.Use(securityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	// Kept for clients built against the first release.
	r.Post("/send", h.Send)

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(ratelimit.Middleware(limiter))
		}
		r.Post("/send", h.Send)
		r.Post("/preview", h.Preview)
		r.Post("/upload", h.Upload)
	})

	r.Get("/", serveIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS)))

	return r
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, web.StaticFS, "index.html")
}
