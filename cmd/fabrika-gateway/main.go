// Fabrika Gateway — HTTP-поверхность и realtime-события.
//
// Gateway:
//   - Принимает запросы на производство контента (202 немедленно)
//   - Отдаёт статусы jobs
//   - Раздаёт события пайплайна по WebSocket живым подключениям
//
// Каждый инстанс привязывает собственную эксклюзивную очередь к
// fanout-обменнику событий, поэтому gateway масштабируется
// горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Fabrika/internal/api"
	"github.com/shaiso/Fabrika/internal/mq"
	"github.com/shaiso/Fabrika/internal/realtime"
	"github.com/shaiso/Fabrika/internal/repo"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger("fabrika-gateway")
	logger.Info("starting fabrika-gateway")

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

	jobRepo := repo.NewJobRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, realtime events disabled", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Realtime hub + мост из fanout-обменника
	hub := realtime.NewHub(logger)
	if mqConn != nil {
		bridge := realtime.NewBridge(mqConn, hub, logger)
		go func() {
			if err := bridge.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event bridge stopped", "error", err)
			}
		}()
	}

	verifier := tokenVerifier(os.Getenv("API_TOKENS"))
	wsHandler := realtime.NewHandler(hub, wsAuthenticator(verifier), logger)

	cfg := api.Config{
		Jobs:     jobRepo,
		Verifier: verifier,
		WS:       wsHandler,
		Logger:   logger,
	}
	if publisher != nil {
		cfg.Notify = publisher
	}
	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// staticTokens — верификатор по списку token:userID из окружения.
// Продакшен подключает внешний auth-сервис вместо него.
type staticTokens map[string]string

func (t staticTokens) Verify(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		// WebSocket-клиенты из браузера не могут выставить заголовок.
		token = r.URL.Query().Get("token")
	}
	userID, found := t[token]
	if token == "" || !found {
		return "", errors.New("unknown token")
	}
	return userID, nil
}

// tokenVerifier разбирает API_TOKENS вида "token1:user1,token2:user2".
// Пустая переменная — аутентификация выключена.
func tokenVerifier(env string) api.TokenVerifier {
	if env == "" {
		return nil
	}
	tokens := make(staticTokens)
	for _, pair := range strings.Split(env, ",") {
		token, userID, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if ok && token != "" {
			tokens[token] = userID
		}
	}
	return tokens
}

// wsAuthenticator адаптирует TokenVerifier к рукопожатию WebSocket.
// Без верификатора userID берётся из query (локальная разработка).
func wsAuthenticator(verifier api.TokenVerifier) realtime.Authenticator {
	return func(r *http.Request) (string, error) {
		if verifier == nil {
			userID := r.URL.Query().Get("user_id")
			if userID == "" {
				return "", errors.New("user_id query parameter required")
			}
			return userID, nil
		}
		return verifier.Verify(r)
	}
}
