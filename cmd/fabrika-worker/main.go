// Fabrika Worker — выполняет jobs производства контента.
//
// Worker:
//   - Получает jobs из RabbitMQ (и поллингом как fallback)
//   - Прогоняет конвейер этапов через браузерные адаптеры
//   - Реализует retry с exponential backoff
//   - Паркует исчерпавшие retry jobs для разбора
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Fabrika/internal/adapter"
	"github.com/shaiso/Fabrika/internal/browser"
	"github.com/shaiso/Fabrika/internal/extract"
	"github.com/shaiso/Fabrika/internal/mq"
	"github.com/shaiso/Fabrika/internal/pipeline"
	"github.com/shaiso/Fabrika/internal/providers"
	"github.com/shaiso/Fabrika/internal/repo"
	"github.com/shaiso/Fabrika/internal/telemetry"
	"github.com/shaiso/Fabrika/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("fabrika-worker")
	logger.Info("starting fabrika-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Репозитории
	jobRepo := repo.NewJobRepo(pool)
	sessionRepo := repo.NewSessionRepo(pool)
	prefRepo := repo.NewPreferenceRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Браузерный manager
	manager, err := browser.NewManager(ctx, browser.ManagerConfig{
		Store:      sessionRepo,
		CaptureDir: envOr("CAPTURE_DIR", "./captures"),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to start browser manager", "error", err)
		os.Exit(1)
	}
	defer manager.Close()

	// Реестр адаптеров из каталога провайдеров
	registry, err := providers.BuildRegistry(providers.Catalog(), manager, logger)
	if err != nil {
		logger.Error("failed to build adapter registry", "error", err)
		os.Exit(1)
	}
	logger.Info("adapter registry built", "capabilities", len(registry.Capabilities()))

	resolver := adapter.NewResolver(registry, prefRepo, logger)

	// Оркестратор конвейера
	orchestrator := pipeline.New(pipeline.Config{
		Registry: registry,
		Resolver: resolver,
		Archiver: &pipeline.FileArchiver{Dir: envOr("ARCHIVE_DIR", "./archive")},
		Logger:   logger,
	})

	// Worker
	cfg := worker.Config{
		Store:     jobRepo,
		Executor:  orchestrator,
		Extractor: extract.NewHTTPExtractor(nil),
		Conn:      mqConn,
		Logger:    logger,
	}
	if publisher != nil {
		cfg.Events = publisher
	}
	w := worker.New(cfg)

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("fabrika-worker stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
