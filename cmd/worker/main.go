package main

import (
	"context"
	"os/signal"
	"syscall"

	"libraryadmin/internal/config"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/metrics"
	"libraryadmin/internal/queue"
	"libraryadmin/internal/sms"
	"libraryadmin/internal/store"
)

// Worker drains queued SMS jobs and hands them to the gateway. Failed jobs are logged and dropped.
func main() {
	cfg := config.Load()
	logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log := logger.With("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		log.Warn().Msg("memory queue selected; the worker only sees jobs published in this process")
		q = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		if !redisClient.Healthy(ctx) {
			log.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
		}
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	client := sms.New(cfg.SMS)
	if !cfg.SMS.Skip {
		if balance, err := client.Wallet(ctx); err != nil {
			log.Warn().Err(err).Msg("sms gateway not available")
		} else {
			log.Info().Float64("balance", balance).Msg("sms gateway connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Msg("worker started, waiting for messages")
	for msg := range messages {
		if err := sms.Handle(ctx, client, msg); err != nil {
			metrics.SMSDispatch.WithLabelValues("dropped").Inc()
			log.Error().Err(err).Str("jobID", msg.ID).Str("type", msg.Type).Msg("job failed")
		}
	}
	log.Info().Msg("worker stopped")
}
