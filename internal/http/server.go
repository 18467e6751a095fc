package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finances/internal/cache"
	"finances/internal/log"
	"finances/internal/middleware/ratelimit"
	"finances/internal/middleware/security"
	"finances/internal/middleware/trace"
	"finances/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChangeClock exposes the time of the most recent committed write.
type ChangeClock interface {
	LastUpdated() time.Time
}

// CacheMetrics reports statistics cache usage.
type CacheMetrics interface {
	Metrics() cache.Metrics
}

// Options tunes the server. Zero values fall back to defaults; a nil
// StatsCache leaves the cache lines out of /metrics.
type Options struct {
	RequestTimeout time.Duration
	WriteRateLimit int
	Logger         *log.Logger
	StatsCache     CacheMetrics
}

type Server struct {
	http.Server
	svc      *services.FinanceService
	db       Pinger
	changes  ChangeClock
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	logger   *log.StructuredLogger
	cache    CacheMetrics
	started  time.Time
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Call Shutdown to release the rate limiter.
func NewServer(addr string, svc *services.FinanceService, db Pinger, changes ChangeClock, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.FromContext(context.Background())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		db:       db,
		changes:  changes,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WriteRateLimit}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector: detector,
		logger:   log.NewStructuredLogger(logger),
		cache:    opts.StatsCache,
		started:  time.Now(),
		now:      time.Now,
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger, opts.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(log.Middleware(logger))
	r.Use(s.tracer.Middleware)
	r.Use(trace.LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Route("/categories", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentLedger))
			r.Get("/", s.handleListCategories)
			r.With(s.writeGuards()...).Post("/", s.handleCreateCategory)
			r.With(s.writeGuards()...).Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentLedger))
			r.Get("/", s.handleListTransactions)
			r.With(s.writeGuards()...).Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.With(s.writeGuards()...).Put("/{id}", s.handleUpdateTransaction)
			r.With(s.writeGuards()...).Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentStats))
			r.Get("/categories", s.handleCategoryTotals)
			r.Get("/monthly", s.handleMonthlyTotals)
			r.Get("/weekly", s.handleWeeklyTotals)
			r.Get("/years", s.handleAvailableYears)
			r.Get("/summary", s.handleSummary)
		})

		r.Get("/events/last-updated", s.handleLastUpdated)
	})

	return r
}

// writeGuards rate limits writes per client and insists on JSON bodies.
func (s *Server) writeGuards() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		}),
		middleware.AllowContentType("application/json"),
	}
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request, security and rate limit counters.
func (s *Server) Metrics() (trace.Metrics, security.DetectionMetrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.detector.GetMetrics(), s.limiter.GetMetrics()
}

// handleMetrics writes request, security, rate limit and statistics cache
// counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	reqs, sec, limits := s.Metrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", reqs.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", reqs.ServerErrors)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", sec.SuspiciousRequests)
	writeMetric(w, "rejected_requests_total", "counter", "Suspicious requests answered with 400", sec.RejectedRequests)
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", limits.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limits.ClientCount)
	if s.cache != nil {
		m := s.cache.Metrics()
		writeMetric(w, "stats_cache_hits_total", "counter", "Statistics served from cache", m.Hits)
		writeMetric(w, "stats_cache_misses_total", "counter", "Statistics computed by the store", m.Misses)
		writeMetric(w, "stats_cache_evictions_total", "counter", "Statistics cache evictions", m.Evictions)
		writeMetric(w, "stats_cache_entries", "gauge", "Current statistics cache entries", int64(m.Size))
	}
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func writeMetric(w io.Writer, name, kind, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, v)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.LogError(ctx, "Readiness check failed", err, log.ComponentStorage, "ping", nil)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
