package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type WebhookHandler interface {
	HandleUpdate(w http.ResponseWriter, r *http.Request)
}

// QueueStats is reported by /healthz when available.
type QueueStats interface {
	Depth() int
	Capacity() int
}

type RouterOptions struct {
	WebhookPath string
	Webhook     WebhookHandler
	Queue       QueueStats
	Mode        string
	Logger      *zap.Logger
}

func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(opts.Logger))

	r.Get("/healthz", healthHandler(opts))
	if opts.Webhook != nil {
		r.Post(opts.WebhookPath, opts.Webhook.HandleUpdate)
	}

	return r
}

type healthResponse struct {
	Status        string `json:"status"`
	Mode          string `json:"mode"`
	QueueDepth    int    `json:"queueDepth"`
	QueueCapacity int    `json:"queueCapacity"`
}

func healthHandler(opts RouterOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Mode: opts.Mode}
		if opts.Queue != nil {
			resp.QueueDepth = opts.Queue.Depth()
			resp.QueueCapacity = opts.Queue.Capacity()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			opts.Logger.Error("failed to encode response", zap.Error(err))
		}
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		})
	}
}
