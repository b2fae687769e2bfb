package main

import (
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/config"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logutils.Log.WithError(err).Fatal("failed to load config")
	}
	logutils.Setup(cfg.AppEnv)

	srv := tasks.NewServer(cfg.RedisAddr, cfg.RedisPassword, 10)

	handler := tasks.NewHandler(mailer.New(cfg.SMTP))
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	logutils.Log.WithField("smtp", cfg.SMTP.Enabled()).Info("worker started, waiting for tasks")

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks.
	if err := srv.Run(mux); err != nil {
		logutils.Log.WithError(err).Fatal("worker error")
	}
	logutils.Log.Info("worker stopped")
}
