package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sales-analytics-backend/internal/admin"
	"sales-analytics-backend/internal/audit"
	"sales-analytics-backend/internal/auth"
	"sales-analytics-backend/internal/config"
	"sales-analytics-backend/internal/dashboard"
	"sales-analytics-backend/internal/database"
	"sales-analytics-backend/internal/files"
	"sales-analytics-backend/internal/ingest"
	"sales-analytics-backend/internal/jobs"
	"sales-analytics-backend/internal/logger"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/reports"
	"sales-analytics-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	st, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database could not be opened")
	}

	seeds := auth.DefaultSeeds(cfg.SeedAdminPassword, cfg.SeedAccountantPassword)
	if err := auth.SeedUsers(context.Background(), st, seeds, log); err != nil {
		log.Fatal().Err(err).Msg("seed users could not be created")
	}

	var rebuilder *jobs.AggregateRebuilder
	if cfg.AggregateRebuildCron != "" {
		rebuilder = jobs.NewAggregateRebuilder(st, 30*time.Minute, log)
		if err := rebuilder.Start(cfg.AggregateRebuildCron); err != nil {
			log.Fatal().Err(err).Msg("aggregate rebuild could not be scheduled")
		}
	}

	var sched admin.RebuildSchedule
	if rebuilder != nil {
		sched = rebuilder
	}
	app := newApp(cfg, st, sched, log)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.HTTPPort).Str("database", cfg.DatabaseType).Msg("server running")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Error().Err(err).Msg("listen")
	}

	if rebuilder != nil {
		rebuilder.Stop()
	}
	if err := st.Close(); err != nil {
		log.Error().Err(err).Msg("database close")
	}
}

func newApp(cfg *config.Config, st store.Store, sched admin.RebuildSchedule, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		// multipart overhead on top of the largest accepted file
		BodyLimit: cfg.MaxFileSize + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.FromContext(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.Middleware(log, auth.CtxUserIDKey))
	app.Use(compress.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "database": cfg.DatabaseType})
	})

	trail := audit.NewService(st, log)
	authSvc := auth.NewService(st)
	reportSvc := reports.NewService(st)
	pipeline := ingest.NewPipeline(st,
		ingest.NewRowParser(ingest.Options{StrictDates: cfg.StrictDates}),
		ingest.Limits{MaxRows: cfg.MaxIngestRows, MaxDuration: cfg.MaxIngestDuration},
		log)

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/login", auth.LoginLimiter(), auth.LoginHandler(authSvc, cfg.JWTSecret, cfg.SessionDuration, trail))
	api.Post("/auth/logout", auth.LogoutHandler())

	// Protected
	protected := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	adminOnly := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/verify", auth.VerifyHandler(authSvc))

	// Files
	protected.Post("/files/upload", adminOnly, files.UploadHandler(pipeline, int64(cfg.MaxFileSize), trail))
	protected.Get("/files", files.ListHandler(st))

	// Orders
	protected.Get("/orders", reports.ListOrdersHandler(reportSvc))
	protected.Get("/orders/stats", reports.StatsHandler(reportSvc))
	protected.Get("/export", reports.ExportOrdersHandler(reportSvc))

	// Reports
	protected.Get("/reports/data", reports.DataHandler(reportSvc))
	protected.Get("/reports/details", reports.DetailsHandler(reportSvc))
	protected.Get("/reports/chart", dashboard.SalesChartHandler(st, time.Now))
	protected.Get("/reports/export", reports.ExportReportHandler(reportSvc))

	// Database
	protected.Get("/database/info", admin.InfoHandler(st, sched))
	protected.Delete("/database/clear", adminOnly, admin.ClearHandler(st, trail))
	protected.Post("/database/rebuild-aggregates", adminOnly, admin.RebuildAggregatesHandler(st, trail))

	// Audit logs
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler(trail))

	return app
}
