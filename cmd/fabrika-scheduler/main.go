// Fabrika Scheduler — периодическая автоматизация (автопилот).
//
// Раз в период перечисляет подписчиков с включённым автопилотом и
// ставит по одному job create_from_topic на каждого подходящего.
// Несколько реплик конкурируют за pg_try_advisory_lock: цикл крутится
// только у лидера.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Fabrika/internal/mq"
	"github.com/shaiso/Fabrika/internal/repo"
	"github.com/shaiso/Fabrika/internal/scheduler"
	"github.com/shaiso/Fabrika/internal/telemetry"
)

const schedLockKey int64 = 712501

func main() {
	logger := telemetry.SetupLogger("fabrika-scheduler")
	logger.Info("starting fabrika-scheduler")

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

	subscriberRepo := repo.NewSubscriberRepo(pool)
	jobRepo := repo.NewJobRepo(pool)

	// RabbitMQ
	var notify scheduler.Notifier
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, workers will rely on polling", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		notify = mq.NewPublisher(mqConn, logger)
	}

	// Проверка актуальности подписки живёт во внешнем биллинге;
	// без него планировщик полагается на локальную проекцию.
	sched := scheduler.New(scheduler.Config{
		Subscribers: subscriberRepo,
		Jobs:        jobRepo,
		Notify:      notify,
		Logger:      logger,
	})

	period, err := scheduler.ParsePeriod(os.Getenv("SCHEDULE_PERIOD"))
	if err != nil {
		logger.Error("invalid schedule period", "error", err)
		os.Exit(1)
	}

	// scheduler loop: тикаем раз в период, но только будучи лидером
	go func() {
		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			next := period.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if !hasLock {
				var ok bool
				if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
					logger.Error("advisory lock failed", "error", err)
					continue
				}
				hasLock = ok
			}
			if !hasLock {
				// не лидер — пропускаем период
				continue
			}

			if err := sched.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("scheduler tick failed", "error", err)
			}
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("fabrika-scheduler stopped")
}
