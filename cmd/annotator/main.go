package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/polbb/annotations/internal/config"
	"github.com/polbb/annotations/internal/convert"
	"github.com/polbb/annotations/internal/extract"
	logpkg "github.com/polbb/annotations/internal/logger"
	"github.com/polbb/annotations/internal/metrics"
	"github.com/polbb/annotations/internal/publish"
	s3gw "github.com/polbb/annotations/internal/storage/s3"
	"github.com/polbb/annotations/internal/transport/web"
	sessionuc "github.com/polbb/annotations/internal/usecase/session"
	"github.com/polbb/annotations/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting annotator",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.Bool("capture_author", cfg.Pipeline.CaptureAuthor),
		zap.Bool("reupload_flow", cfg.Pipeline.ReuploadFlow),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := context.Background()

	// Build the pipeline — composition root
	gateway, err := s3gw.NewFromEnv(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.TempDir, logger)
	if err != nil {
		logger.Fatal("Failed to create object store gateway", zap.Error(err))
	}

	converter := convert.New(convert.Options{
		BinaryPath: cfg.Converter.BinaryPath,
		OutputDir:  cfg.Converter.OutputDir,
		PageSize:   cfg.Converter.PageSize,
		Grayscale:  cfg.Converter.Grayscale,
	}, logger)

	extractor := extract.New(logger).WithAuthorCapture(cfg.Pipeline.CaptureAuthor)

	publisher := publish.New(gateway, cfg.Storage.AnnotationPrefix, cfg.Storage.TempDir, logger).
		WithAuthorCapture(cfg.Pipeline.CaptureAuthor)

	pipeline := sessionuc.New(gateway, converter, extractor, publisher, cfg.Storage.MarkupPrefix, logger)

	// Interactive host
	server := web.NewServer(pipeline, cfg.Pipeline.ReuploadFlow, cfg.Storage.TempDir, logger)

	r := chi.NewRouter()
	r.Use(htmlRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP host", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP host error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Host stopped gracefully")
}

// htmlRecoverer is a recovery middleware that shows a plain error page
// instead of a stacktrace.
func htmlRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
