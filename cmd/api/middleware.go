package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/rabbitfunding/pkg/auth"
	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type contextKey string

const userContextKey contextKey = "user"

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware attaches a request-scoped logger carrying a fresh
// request ID and logs each completed request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctxLogger := logger.L.With(slog.String("request_id", requestID))
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), ctxLogger)))

		ctxLogger.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// authMiddleware requires a valid Bearer token for an approved user.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondWithError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		user, err := s.auth.Verify(strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				ctxLogger.Debug("Token validation failed", "path", r.URL.Path)
				respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			case errors.Is(err, auth.ErrPendingApproval), errors.Is(err, auth.ErrAccessRejected):
				respondWithError(w, http.StatusForbidden, "User not found or not approved")
			default:
				ctxLogger.Error("Token verification failed", "error", err)
				respondWithError(w, http.StatusInternalServerError, "Server error")
			}
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = logger.ToContext(ctx, ctxLogger.With(slog.String("userID", user.ID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must run after authMiddleware.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || user.Role != models.RoleAdmin {
			respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ipRateLimiter hands out one token bucket per client IP. Idle buckets
// expire from the cache.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	if limit <= 0 {
		limit = rate.Every(5 * time.Second)
	}
	if burst <= 0 {
		burst = 5
	}
	return &ipRateLimiter{
		limiters: cache.New(10*time.Minute, 20*time.Minute),
		limit:    limit,
		burst:    burst,
	}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Set(ip, lim, cache.DefaultExpiration)
	return lim
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.get(ip).Allow() {
			logger.FromContext(r.Context()).Warn("Rate limit exceeded", "path", r.URL.Path, "ip", ip)
			respondWithError(w, http.StatusTooManyRequests, "Too many login attempts, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
