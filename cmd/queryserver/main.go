// Command queryserver serves the forward/autocomplete/reverse geocoding
// HTTP surface (spec §6) against an already-ingested Typesense
// collection and Redis KV store. Where cmd/ingest runs one batch pass
// and exits, queryserver is the long-running half of the system.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/typesense/typesense-go/v2/typesense"

	httpadapter "github.com/basincode/cypress/internal/adapter/http"
	"github.com/basincode/cypress/internal/adapter/queryhttp"
	"github.com/basincode/cypress/internal/config"
	"github.com/basincode/cypress/internal/kvstore"
	"github.com/basincode/cypress/internal/observability"
	"github.com/basincode/cypress/internal/query"
	"github.com/basincode/cypress/internal/textindex"
)

// readiness reports ready only once both sinks answer a health check.
type readiness struct {
	kv   *kvstore.Client
	text *typesense.Client
}

func (r *readiness) CheckReadiness(ctx context.Context) error {
	if err := r.kv.Health(ctx); err != nil {
		return err
	}
	if _, err := r.text.Collection(textindex.PlacesCollection).Retrieve(ctx); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("queryserver failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	kv, err := kvstore.New(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "cypress")
	if err != nil {
		return err
	}
	defer kv.Close()

	text := typesense.NewClient(
		typesense.WithServer(cfg.TypesenseURL),
		typesense.WithAPIKey(cfg.TypesenseAPIKey),
	)

	exec := query.NewExecutor(text, kv, metrics)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	queryhttp.NewHandler(exec).RegisterRoutes(router)

	healthSrv := httpadapter.NewServer(cfg.HTTPAddr, &readiness{kv: kv, text: text}, logger)

	queryAddr := queryHTTPAddr(cfg.HTTPAddr)
	apiSrv := &http.Server{Addr: queryAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := healthSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()
	go func() {
		logger.Info("query api starting", "addr", queryAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("query api error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", "error", err)
	}
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("query api shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// queryHTTPAddr offsets the query API one port above the health/metrics
// address so a single HTTP_ADDR setting can drive both servers without
// a bind conflict.
func queryHTTPAddr(healthAddr string) string {
	host, portStr, err := net.SplitHostPort(healthAddr)
	if err != nil {
		return healthAddr
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return healthAddr
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
