package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fatali-fataliyev/burn_tracker/internal/config"
	"github.com/fatali-fataliyev/burn_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/burn_tracker/logging"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const TraceIDHeader = "X-Trace-ID"

// NewHandler wraps mux with the full middleware chain, outermost first:
// trace ID, request log, security headers, CORS, then the /api/ rate limit.
func NewHandler(cfg *config.Config, mux http.Handler) http.Handler {
	limiter := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	corsConf := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{TraceIDHeader},
		AllowCredentials: true,
	})

	var handler http.Handler = mux
	handler = limiter.Middleware("/api/", handler)
	handler = corsConf.Handler(handler)
	handler = securityHeaders(handler)
	handler = requestLogger(handler)
	handler = traceID(handler)
	return handler
}

func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(TraceIDHeader, id)
		next.ServeHTTP(w, r.WithContext(contextutil.WithTraceID(r.Context(), id)))
	})
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		entry := logging.Logger.WithFields(logrus.Fields{
			"trace_id":    contextutil.TraceIDFromContext(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   clientIP(r),
		})
		switch {
		case sw.status >= 500:
			entry.Error("request completed")
		case sw.status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; object-src 'none'")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("X-XSS-Protection", "0")
		h.Del("X-Powered-By")
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type visitor struct {
	limiter     *rate.Limiter
	windowStart time.Time
}

// RateLimiter allows every client IP at most `requests` calls per fixed `window`.
// Each window gets a bucket of `requests` tokens that never refills.
type RateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	requests    int
	window      time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		requests:    requests,
		window:      window,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > rl.window {
		for key, v := range rl.visitors {
			if now.Sub(v.windowStart) >= rl.window {
				delete(rl.visitors, key)
			}
		}
		rl.lastCleanup = now
	}

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.windowStart) >= rl.window {
		v = &visitor{limiter: rate.NewLimiter(0, rl.requests), windowStart: now}
		rl.visitors[ip] = v
	}
	return v.limiter.AllowN(now, 1)
}

// Middleware limits only requests whose path starts with prefix.
func (rl *RateLimiter) Middleware(prefix string, next http.Handler) http.Handler {
	message := fmt.Sprintf("Too many requests from this IP, please try again after %s", humanWindow(rl.window))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, prefix) && !rl.Allow(clientIP(r)) {
			http.Error(w, message, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func humanWindow(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
