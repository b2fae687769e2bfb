package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/config"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/cronjob"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/db"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/handlers"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/realtime"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/chat"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/favorites"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/profiles"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/projects"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/reviews"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/users"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logutils.Log.WithError(err).Fatal("failed to load config")
	}
	logutils.Setup(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDSN, cfg.IsDevelopment())
	if err != nil {
		logutils.Log.WithError(err).Fatal("failed to connect to database")
	}
	if err := db.AutoMigrate(gdb); err != nil {
		logutils.Log.WithError(err).Fatal("failed to migrate database")
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	// redis carries realtime fan-out and the email queue; without it the
	// API still serves, pushing to local sockets and skipping emails
	var (
		publisher notifications.Publisher = hub
		queue     tasks.Enqueuer
	)
	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logutils.Log.WithError(err).Warn("redis unavailable, realtime is local only and emails are disabled")
	} else {
		publisher = realtime.NewRedisPublisher(rdb)
		go realtime.Bridge(ctx, rdb, hub)

		client := tasks.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		defer client.Close()
		queue = client
	}

	notifier := notifications.NewNotificationService(gdb, publisher, queue)
	userSvc := users.NewUserService(gdb, cfg.JWTSecret, cfg.JWTExpiresMin, cfg.FrontendBaseURL, queue)
	reviewSvc := reviews.NewReviewService(gdb, notifier)

	authH := handlers.NewAuthHandler(userSvc, cfg.JWTExpiresMin, cfg.CookieSecure)
	var googleH *handlers.GoogleOAuthHandler
	if cfg.GoogleClientID != "" {
		googleH = handlers.NewGoogleOAuthHandler(userSvc, authH,
			cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirect, cfg.FrontendBaseURL)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))
	app.Use(middleware.AccessLog())
	app.Use(middleware.Metrics())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	handlers.Register(app, handlers.Handlers{
		Auth:          authH,
		Google:        googleH,
		Profiles:      handlers.NewProfileHandler(profiles.NewProfileService(gdb), reviewSvc),
		Projects:      handlers.NewProjectHandler(projects.NewProjectService(gdb, notifier), reviewSvc),
		Favorites:     handlers.NewFavoriteHandler(favorites.NewFavoriteService(gdb)),
		Notifications: handlers.NewNotificationHandler(notifier),
		Chat:          handlers.NewChatHandler(chat.NewChatService(gdb, publisher, notifier)),
		Hub:           hub,
	}, cfg.JWTSecret, limiter)

	crons := cronjob.NewManager()
	if err := crons.RegisterPurgeRead(notifier, cfg.NotificationRetention()); err != nil {
		logutils.Log.WithError(err).Fatal("failed to schedule cron jobs")
	}
	crons.Start()

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			logutils.Log.WithError(err).Error("http server stopped")
			stop()
		}
	}()
	logutils.Log.WithField("port", cfg.AppPort).Info("api started")

	<-ctx.Done()
	logutils.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logutils.Log.WithError(err).Error("http shutdown failed")
	}
	crons.Stop(shutdownCtx)
	_ = rdb.Close()
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logutils.Log.Info("api stopped")
}
