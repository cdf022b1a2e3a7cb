package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/config"
	kafkax "github.com/ariefcatur/go-order-processing/internal/kafka"
	"github.com/ariefcatur/go-order-processing/internal/logger"
	"github.com/ariefcatur/go-order-processing/internal/mail"
	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/ariefcatur/go-order-processing/internal/redisx"
	"github.com/ariefcatur/go-order-processing/internal/tasks"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	name := cfg.ServiceName + "-worker"
	log := logger.New(cfg.LogLevel).With("service", name)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis (dedup task_id)
	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password)
	defer rdb.Close()

	sender := mail.NewSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, log)
	promoSvc := promos.NewService(&promos.Repo{DB: db})

	d := tasks.NewDispatcher(redisx.NewDeduper(rdb, name), log)
	d.Register(tasks.TaskSendOrderConfirmation, tasks.EmailHandler(sender, cfg.Mail.From, log))
	d.Register(tasks.TaskExpirePromoCodes, tasks.ExpirePromoCodesHandler(promoSvc, log))

	// Consumer
	cons := kafkax.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.WorkerGroup, cfg.Kafka.TasksTopic, cfg.Kafka.WorkerConcurrency, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("task worker started",
			"group", cfg.Kafka.WorkerGroup, "topic", cfg.Kafka.TasksTopic, "workers", cfg.Kafka.WorkerConcurrency)
		if err := cons.Start(ctx, d.Handle); err != nil {
			log.Error("consumer exit", "error", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()

	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
		log.Warn("consumer did not stop in time")
	}
}
