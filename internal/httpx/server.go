package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Deps struct {
	Log      *slog.Logger
	Tokens   Tokens
	Users    UserService
	Products ProductService
	Promos   PromoService
	Orders   OrderService

	// ProductsLimiter throttles the public product listing; nil disables it.
	ProductsLimiter RateLimiter

	// Health checks, keyed by name (e.g. "postgres", "redis").
	Health map[string]Pinger

	CORSOrigins []string
}

func NewRouter(d Deps) *chi.Mux {
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", health(d.Health))

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate(d.Tokens))

		r.Route("/user", (&UsersHandler{Users: d.Users, Tokens: d.Tokens, Log: d.Log}).Register)
		r.Route("/products", (&ProductsHandler{Products: d.Products, Limiter: d.ProductsLimiter, Log: d.Log}).Register)
		r.Route("/promo-codes", (&PromosHandler{Promos: d.Promos, Log: d.Log}).Register)
		r.Route("/orders", (&OrdersHandler{Orders: d.Orders, Log: d.Log}).Register)
	})
	return r
}

func health(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
