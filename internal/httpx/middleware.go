package httpx

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenParser is satisfied by auth.Manager.
type TokenParser interface {
	Parse(tokenStr, wantType string) (*auth.Claims, error)
}

// RateLimiter is satisfied by redisx.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, ident string) (bool, time.Duration, error)
}

// requestLogger logs one line per request, in the spirit of middleware.Logger but through slog.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
					"remote", r.RemoteAddr,
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// authenticate resolves a Bearer access token into an auth.Principal. Requests without
// an Authorization header pass through anonymously; a bad token is rejected with 401.
func authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			scheme, tok, ok := strings.Cut(h, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
				return
			}
			claims, err := tokens.Parse(strings.TrimSpace(tok), auth.TokenAccess)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Given token not valid for any token type")
				return
			}
			uid, _ := claims.UserID()
			p := auth.Principal{UserID: uid, Email: claims.Email, IsAdmin: claims.IsAdmin}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if !p.IsAdmin {
			writeError(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttle limits requests per authenticated user, or per client IP for anonymous callers.
// Limiter failures let the request through.
func throttle(l RateLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry, err := l.Allow(r.Context(), clientIdent(r))
			if err != nil {
				log.Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				secs := int(math.Ceil(retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "Request was throttled. Expected available in "+strconv.Itoa(secs)+" seconds.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIdent(r *http.Request) string {
	if p, ok := auth.FromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(p.UserID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
