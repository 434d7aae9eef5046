package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/api/handlers"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/auth"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	authService services.AuthServiceProvider,
	portfolioService services.PortfolioServiceProvider,
	eventService services.EventServiceProvider,
	corsOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// The frontend is served from a different origin, so CORS stays open.
	// Preflight OPTIONS requests are answered here with 200 and no body.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", auth.TokenHeader},
		MaxAge:         86400,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(time.Now())
	authHandler := handlers.NewAuthHandler(authService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	eventHandler := handlers.NewEventHandler(eventService)

	r.Get("/health", healthHandler.Get)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes manage their own token handling: logout must stay
		// idempotent and never 401, so it cannot sit behind the middleware.
		r.HandleFunc("/auth", authHandler.Dispatch)

		// Token-protected resources
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireToken(authService))

			r.Get("/portfolio", portfolioHandler.Get)
			r.Post("/portfolio", portfolioHandler.AddPosition)
			r.Post("/portfolio/dividends", portfolioHandler.AddDividend)
			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}
