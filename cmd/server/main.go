package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	rag_http "doc-qa/internal/adapter/rag_http"
	"doc-qa/internal/adapter/rag_http/openapi"
	"doc-qa/internal/di"
	"doc-qa/internal/infra/config"
	"doc-qa/internal/infra/logger"
	appmw "doc-qa/internal/infra/middleware"
	"doc-qa/internal/infra/otel"
)

func main() {
	// 1. Load Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Telemetry and Logger
	shutdownOTel, err := otel.InitProvider(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init opentelemetry: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.OTel.Enabled)

	// 3. Wire components
	app, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		log.Error("failed to wire components", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	spec, err := openapi.Load(ctx)
	if err != nil {
		log.Error("failed to load api description", "error", err)
		os.Exit(1)
	}

	// 4. Start Worker
	app.IngestPool.Start()
	defer app.IngestPool.Stop()

	// 5. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(cfg.OTel.ServiceName))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	var limit []echo.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		limiter := appmw.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
		go limiter.Run(ctx)
		limit = append(limit, limiter.Middleware())
	}

	// 6. Register Handlers
	handler := rag_http.NewHandler(app.IngestPool, app.AnswerUsecase, rag_http.HandlerConfig{
		UploadDir:      cfg.Upload.Dir,
		MaxUploadBytes: cfg.Upload.MaxBytes(),
		DefaultK:       cfg.RAG.DefaultK,
		Ready:          app.Ready,
		Spec:           spec,
	})
	handler.Register(e, limit...)

	// 7. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("server_starting", "addr", addr, "vector_store", cfg.VectorStore.Backend)
		if err := e.StartH2CServer(addr, &http2.Server{}); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", "error", err)
			stop()
		}
	}()

	// 8. Graceful Shutdown
	<-ctx.Done()
	log.Info("server_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", "error", err)
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn("otel_shutdown_failed", slog.String("error", err.Error()))
	}
}
