// Package http exposes one user's session as a JSON API. All reads are
// served from the session snapshot; mutations go through the session so
// the snapshot is refreshed before the response returns.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"factures/internal/cache"
	"factures/internal/export"
	applog "factures/internal/log"
	"factures/internal/middleware/ratelimit"
	"factures/internal/middleware/security"
	"factures/internal/middleware/trace"
	"factures/internal/session"
)

type Server struct {
	http.Server
	session     *session.Session
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	// Rendered export artifacts, keyed by domain/period/format. Purged
	// wholesale whenever the session snapshot changes.
	exportCache  *cache.LRUCache[export.Artifact]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// Options tunes server behavior. Zero values pick defaults.
type Options struct {
	ExportCacheSize int
	ExportCacheTTL  time.Duration
	Logger          *applog.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, sess *session.Session, opts Options) *Server {
	if opts.ExportCacheSize <= 0 {
		opts.ExportCacheSize = 32
	}
	if opts.ExportCacheTTL <= 0 {
		opts.ExportCacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	mux := http.NewServeMux()

	s := &Server{
		session:      sess,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		exportCache:  cache.NewLRUCache[export.Artifact](opts.ExportCacheSize, opts.ExportCacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.exportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// A refreshed snapshot invalidates every rendered artifact.
	sess.OnRefresh(s.exportCache.Purge)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/invoices", s.handleInvoices)
	mux.HandleFunc("/tva", s.handleTva)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/processing", s.handleProcessing)
	mux.HandleFunc("/export", s.handleExport)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)

	// The tracer assigns the request ID; the inner log middleware then
	// binds it to the context logger handlers read via FromContext.
	handler := s.withMutationRateLimit(mux)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = tracer.Middleware(handler)
	handler = applog.Middleware(opts.Logger.WithComponent(applog.ComponentHTTP))(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: headers.Middleware(handler),
	}

	return s
}

// withMutationRateLimit applies the per-IP limit to mutating methods only
func (s *Server) withMutationRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodDelete, http.MethodPatch:
			if !s.rateLimiter.Allow(s.detector.ExtractClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
