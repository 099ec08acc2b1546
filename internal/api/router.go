package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/graphgen/internal/flowservice"
)

// NewRouter creates a chi router with all API routes mounted.
// allowedOrigins is the CORS allow-list for browser clients.
func NewRouter(svc *flowservice.Service, allowedOrigins []string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.Root)
	r.Post("/generate", h.Generate)
	r.Get("/modes", h.Modes)
	r.Get("/history", h.History)

	return r
}
