// Package api exposes an analysis session over HTTP for map front ends.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lotes-cli/internal/reproject"
	"github.com/sells-group/lotes-cli/internal/session"
)

// Options configures the HTTP handler.
type Options struct {
	// DefaultProjection applies to POST /dataset without a projection query.
	DefaultProjection reproject.Projection
	RateLimit         float64
	RateBurst         int
	CORSOrigins       []string
	MaxBodyBytes      int64
}

// Handler serves one session.
type Handler struct {
	sess    *session.Session
	opts    Options
	limiter *rate.Limiter
}

// New creates a Handler with defaults filled in.
func New(sess *session.Session, opts Options) *Handler {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 20
	}
	return &Handler{
		sess:    sess,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
	}
}

// Router returns the route table wrapped in the middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(h.rateLimit)

	r.Get("/health", h.handleHealth)
	r.Get("/dataset", h.handleGetDataset)
	r.Post("/dataset", h.handleLoadDataset)
	r.Get("/nucleos", h.handleNucleos)
	r.Get("/grades", h.handleGrades)
	r.Put("/grades/{grade}", h.handleSetGrade)
	r.Get("/selection", h.handleGetSelection)
	r.Put("/selection", h.handleSetSelection)
	r.Get("/features", h.handleFeatures)
	r.Get("/summary", h.handleSummary)
	r.Get("/export/{format}", h.handleExport)
	return r
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
