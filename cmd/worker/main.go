package main

import (
	"context"
	"os/signal"
	"syscall"

	"portal/internal/config"
	"portal/internal/logger"
	"portal/internal/notify"
	"portal/internal/queue"
	"portal/internal/store"
)

// Worker drains meeting announcements from Redis and mails them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.L()
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.Configure(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend != "redis" {
		log.Fatal().Str("queue", cfg.QueueBackend).Msg("worker needs QUEUE_BACKEND=redis; the memory queue is drained by the api process")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if err := redisClient.PingContext(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable yet, consumer will retry")
	}

	mailer, err := notify.Backend{
		Kind: cfg.MailBackend,
		SMTP: notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromName:  cfg.MailFromName,
			FromEmail: cfg.MailFromEmail,
			UseTLS:    cfg.SMTPTLS,
		},
		SendGridKey: cfg.SendGridAPIKey,
	}.Mailer(logger.With("mailer"))
	if err != nil {
		log.Fatal().Err(err).Msg("mailer setup failed")
	}

	q := queue.NewRedisQueue(redisClient.Client, "")
	w := notify.NewWorker(q, mailer, logger.With("notify"), cfg.NotifyTimeout)
	if err := w.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("queue consume failed")
	}
	log.Info().Msg("worker stopped")
}
