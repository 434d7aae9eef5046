package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/api"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/config"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/database"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/logger"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/monitoring"
	"github.com/pr-poehali-dev/investment-portfolio-visualizer/internal/services"
)

func main() {
	// No .env file is fine; rely on the existing environment.
	_ = godotenv.Load()

	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	eventService := services.NewEventService(db)
	authService := services.NewAuthService(db, eventService, cfg.SessionTTL)
	portfolioService := services.NewPortfolioService(db, eventService)

	// Set up and run the background session reaper
	reaper, err := monitoring.NewSessionReaper(authService, eventService, cfg.ReapSchedule, cfg.SessionRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session reaper")
	}
	go reaper.Run()

	// Set up router
	router := api.NewRouter(authService, portfolioService, eventService, cfg.CORSOrigins)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
