package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/biorecs/occuncertainty/internal/model"
	"github.com/biorecs/occuncertainty/internal/pipeline"
)

var servePort int

// serverOptions carries the per-request limits the router enforces.
type serverOptions struct {
	requestsPerSec float64
	burst          int
	maxBatchSize   int
	workers        int
}

// newRouter builds the API routes around a prepared pipeline.
func newRouter(p *pipeline.Pipeline, opts serverOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	limiter := rate.NewLimiter(rate.Limit(opts.requestsPerSec), opts.burst)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/v1/classify", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Records []model.Record `json:"records"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if len(body.Records) == 0 {
			http.Error(w, `{"error":"records is required"}`, http.StatusBadRequest)
			return
		}
		if len(body.Records) > opts.maxBatchSize {
			http.Error(w, `{"error":"batch too large"}`, http.StatusRequestEntityTooLarge)
			return
		}

		results, err := p.Run(req.Context(), body.Records, pipeline.Options{Workers: opts.workers})
		if err != nil {
			zap.L().Error("serve: classify failed", zap.Error(err))
			http.Error(w, `{"error":"classification failed"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	return r
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		th, err := buildThresholds("", "")
		if err != nil {
			return err
		}
		src, closeSource, err := buildSource(ctx)
		if err != nil {
			return err
		}
		defer closeSource()

		p, err := pipeline.New(src, th)
		if err != nil {
			return err
		}

		handler := newRouter(p, serverOptions{
			requestsPerSec: cfg.Server.RequestsPerSec,
			burst:          cfg.Server.Burst,
			maxBatchSize:   cfg.Server.MaxBatchSize,
			workers:        cfg.Pipeline.Workers,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
