package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/utafrali/WarehouseGo/pkg/httputil"
)

var httpRequestsRateLimited = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_rate_limited_total",
		Help: "Requests rejected with 429 by the per-client limiter",
	},
	[]string{"service"},
)

// RateLimitConfig bounds the request rate of each client address.
// A RequestsPerSecond of zero turns the limiter off.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long a client may stay quiet before its bucket is
	// forgotten.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns a disabled limiter with a burst of 20.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Burst: 20, IdleTTL: 3 * time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client. Stale buckets are swept on
// the request path, at most once per IdleTTL.
type visitors struct {
	mu        sync.Mutex
	byClient  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitors(cfg RateLimitConfig) *visitors {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &visitors{
		byClient: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
		idleTTL:  ttl,
		now:      time.Now,
	}
}

// allow takes one token for client. When the bucket is empty it reports how
// long until the next token without consuming it.
func (v *visitors) allow(client string) (bool, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) >= v.idleTTL {
		v.sweep(now)
	}

	vis, ok := v.byClient[client]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.byClient[client] = vis
	}
	vis.lastSeen = now

	res := vis.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, v.idleTTL
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (v *visitors) sweep(now time.Time) {
	for client, vis := range v.byClient {
		if now.Sub(vis.lastSeen) >= v.idleTTL {
			delete(v.byClient, client)
		}
	}
	v.lastSweep = now
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byClient)
}

// RateLimit rejects a client that exceeds its token bucket with 429 and a
// Retry-After header.
func RateLimit(serviceName string, cfg RateLimitConfig, l *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return rateLimit(serviceName, newVisitors(cfg), l)
}

func rateLimit(serviceName string, v *visitors, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			ok, wait := v.allow(client)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			httpRequestsRateLimited.WithLabelValues(serviceName).Inc()
			l.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("client", client),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "RATE_LIMITED", Message: "too many requests, please try again later"},
			})
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
