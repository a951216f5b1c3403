package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pricewatch/pricewatch/internal/config"
)

// NewRouter assembles the HTTP routes and middleware stack.
func NewRouter(h *Handlers, cfg config.ServerConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Get("/{productID}", h.GetProduct)
			r.Patch("/{productID}", h.UpdateProduct)
			r.Delete("/{productID}", h.DeleteProduct)
		})

		r.Route("/scrape", func(r chi.Router) {
			r.Post("/batch", h.ScrapeBatch)
			r.Get("/stats", h.GetStats)
			r.Post("/{productID}", h.ScrapeProduct)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/{productID}", h.GetHistory)
			r.Get("/{productID}/logs", h.GetLogs)
		})
	})

	return r
}
