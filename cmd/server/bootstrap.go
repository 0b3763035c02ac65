package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/internal/handlers"
	"github.com/webcrawler/backend/internal/middleware"
	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/services"
	"github.com/webcrawler/backend/internal/utils"
	"github.com/webcrawler/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg       *config.Config
	db        *gorm.DB
	store     *services.GormTokenStore
	guard     *services.AuthGuard
	scheduler *services.Scheduler
	limiter   *middleware.RateLimiter

	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	bookmarkHandler     *handlers.BookmarkHandler
	noteHandler         *handlers.NoteHandler
	notificationHandler *handlers.NotificationHandler
	systemLogHandler    *handlers.SystemLogHandler
	healthHandler       *handlers.HealthHandler
}

// newAppServices wires services and handlers on top of an open, migrated db.
func newAppServices(cfg *config.Config, db *gorm.DB, mailer services.Mailer) (*appServices, error) {
	codec, err := utils.NewTokenCodec(&cfg.JWT)
	if err != nil {
		return nil, err
	}

	store := services.NewTokenStore(db)
	accounts := services.NewAccountService(db)
	sessions := services.NewSessionManager(&cfg.JWT, codec, store, accounts)
	systemLogs := services.NewSystemLogService(db)
	resets := services.NewPasswordResetService(db, codec, mailer, cfg.Reset)

	return &appServices{
		cfg:       cfg,
		db:        db,
		store:     store,
		guard:     services.NewAuthGuard(codec, store),
		scheduler: services.NewScheduler(cfg.Scheduler, store, systemLogs),
		limiter:   middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),

		authHandler:         handlers.NewAuthHandler(accounts, sessions, resets),
		userHandler:         handlers.NewUserHandler(accounts, sessions),
		bookmarkHandler:     handlers.NewBookmarkHandler(services.NewBookmarkService(db)),
		noteHandler:         handlers.NewNoteHandler(services.NewNoteService(db)),
		notificationHandler: handlers.NewNotificationHandler(services.NewNotificationService(db)),
		systemLogHandler:    handlers.NewSystemLogHandler(systemLogs),
		healthHandler:       handlers.NewHealthHandler(db),
	}, nil
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) (*appServices, error) {
	if err := models.InitDB(&cfg.Database, models.GormLogLevel(cfg.Log.Level)); err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	db := models.GetDB()

	services.InitSystemLogger(db)

	svc, err := newAppServices(cfg, db, services.NewLogMailer())
	if err != nil {
		return nil, err
	}

	created, err := services.NewAccountService(db).CreateAdminIfNotExists(context.Background(), cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	} else if created {
		logger.Info().Str("email", cfg.Admin.Email).Msg("Default admin user created")
	}

	if err := services.RegisterDBMetrics(prometheus.DefaultRegisterer, db, svc.store); err != nil {
		logger.Warn().Err(err).Msg("Failed to register database metrics")
	}

	if err := svc.scheduler.Start(); err != nil {
		return nil, err
	}
	return svc, nil
}

// shutdown gracefully stops background work and closes the database.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	s.limiter.Stop()

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
	logger.Info().Msg("All background services stopped")
}
