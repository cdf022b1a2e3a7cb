package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-order-processing/internal/config"
	kafkax "github.com/ariefcatur/go-order-processing/internal/kafka"
	"github.com/ariefcatur/go-order-processing/internal/logger"
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
	name := cfg.ServiceName + "-scheduler"
	log := logger.New(cfg.LogLevel).With("service", name)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// producer loop pakai context sendiri supaya inbox sempat di-flush setelah sinyal
	pctx, pcancel := context.WithCancel(context.Background())
	defer pcancel()
	prod := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TasksTopic, 64, log)
	prod.Start(pctx)

	s := &tasks.Scheduler{
		Queue:    tasks.NewQueue(prod, name),
		Interval: cfg.PromoSweepInterval,
		Log:      log,
	}
	log.Info("scheduler started", "task", tasks.TaskExpirePromoCodes, "interval", cfg.PromoSweepInterval.String())
	s.Run(ctx)

	log.Info("shutting down...")
	prod.Close()
	prod.WaitClosed()
}
