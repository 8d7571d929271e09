package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/sentinelops/weather-sentinel/internal/api/http"
	"github.com/sentinelops/weather-sentinel/internal/bronze"
	"github.com/sentinelops/weather-sentinel/internal/config"
	"github.com/sentinelops/weather-sentinel/internal/pipeline"
	"github.com/sentinelops/weather-sentinel/internal/scheduler"
	"github.com/sentinelops/weather-sentinel/internal/silver"
	"github.com/sentinelops/weather-sentinel/internal/source"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	src := source.New(httpClient, source.Config{
		APIKey: cfg.OpenWeatherAPIKey,
		Units:  cfg.Units,
	})

	landing := bronze.NewFSLanding(cfg.BronzeDir, cfg.BronzePrefix)

	store, err := silver.Open(cfg.SilverDBPath)
	if err != nil {
		log.Fatalf("failed to open silver store: %v", err)
	}
	defer store.Close()

	pipe := pipeline.New(src, landing, silver.NewLoader(landing, store))

	// Scheduler that periodically runs the pipeline.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, pipe)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-sentinel",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-sentinel",
		})
	})

	// Quality view routes.
	httpapi.RegisterRoutes(app, store, nil)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
