package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/ariefcatur/go-order-processing/internal/config"
	"github.com/ariefcatur/go-order-processing/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-processing/internal/kafka"
	"github.com/ariefcatur/go-order-processing/internal/logger"
	"github.com/ariefcatur/go-order-processing/internal/orders"
	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/ariefcatur/go-order-processing/internal/products"
	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/ariefcatur/go-order-processing/internal/redisx"
	"github.com/ariefcatur/go-order-processing/internal/tasks"
	"github.com/ariefcatur/go-order-processing/internal/users"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel).With("service", cfg.ServiceName)
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
	if err := postgres.Migrate(ctx, db, "up"); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password)
	defer rdb.Close()

	// Kafka producer untuk task queue
	prod := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TasksTopic, 1024, log)
	prod.Start(ctx)
	queue := tasks.NewQueue(prod, cfg.ServiceName)

	// Services
	userSvc := users.NewService(&users.Repo{DB: db})
	productSvc := products.NewService(&products.Repo{DB: db}, redisx.NewListCache(rdb, cfg.Products.CacheTTL), log)
	promoSvc := promos.NewService(&promos.Repo{DB: db})
	orderSvc := orders.NewService(&orders.Repo{DB: db}, promoSvc, queue, productSvc, log)

	if cfg.Admin.Email != "" {
		created, err := userSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Error("ensure admin", "error", err)
			os.Exit(1)
		}
		if created {
			log.Info("admin user created", "email", cfg.Admin.Email)
		}
	}

	var limiter httpx.RateLimiter
	if rl := cfg.Products.RateLimit; rl.Requests > 0 {
		limiter = redisx.NewLimiter(rdb, "products", rl.Requests, rl.Window)
	}

	router := httpx.NewRouter(httpx.Deps{
		Log:             log,
		Tokens:          auth.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Users:           userSvc,
		Products:        productSvc,
		Promos:          promoSvc,
		Orders:          orderSvc,
		ProductsLimiter: limiter,
		Health: map[string]httpx.Pinger{
			"postgres": db,
			"redis":    httpx.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		CORSOrigins: cfg.CORSOrigins,
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			cancel()
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
