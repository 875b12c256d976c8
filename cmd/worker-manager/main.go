// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"club-tickets/internal/allocation"
	"club-tickets/internal/audit"
	awsclient "club-tickets/internal/common/aws"
	"club-tickets/internal/common/camunda"
	"club-tickets/internal/common/config"
	"club-tickets/internal/common/database"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/common/observability"
	"club-tickets/internal/common/validation"
	"club-tickets/internal/games"
	"club-tickets/internal/lock"
	"club-tickets/internal/notify"
	"club-tickets/internal/store/postgres"

	ce "club-tickets/internal/workers/allocation/compute-eligibility"
	ra "club-tickets/internal/workers/allocation/run-allocation"
	sa "club-tickets/internal/workers/applications/submit-application"
	sdn "club-tickets/internal/workers/communication/send-decision-notification"
	cg "club-tickets/internal/workers/games/create-game"
	dg "club-tickets/internal/workers/games/delete-game"
	lag "club-tickets/internal/workers/games/list-available-games"
	lg "club-tickets/internal/workers/games/list-games"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	store := postgres.NewStore(pg.DB)
	opts := allocation.Options{FairnessWindow: cfg.Allocation.FairnessWindow()}

	// --- Redis run lock ---
	var redisClient *database.RedisClient
	if cfg.Allocation.RunLockEnabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		opts.Locker = lock.NewRedisLocker(redisClient.Client, config.GetDuration(cfg.Allocation.RunLockTTL))
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch run audit ---
	if cfg.Allocation.AuditEnabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return esClient.Ping(pingCtx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		indexer := audit.NewIndexer(esClient.Client, cfg.Allocation.AuditIndex)
		if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Warn("audit index not ensured, runs will still be indexed", zap.Error(err))
		}
		opts.Auditor = indexer
		zapLog.Info("Elasticsearch connected successfully", zap.String("auditIndex", cfg.Allocation.AuditIndex))
	}

	validator, err := validation.LoadValidator(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.Registry.Path))
	}

	coordinator := allocation.NewCoordinator(store, log, opts)
	coordinator.SetRecorder(obs)
	gameService := games.NewService(store, log)

	// --- Register workers ---
	pool := camunda.NewWorkerPool(zeebe.GetClient(), log)
	workerCfg := func(taskType string) (config.WorkerConfig, time.Duration) {
		wc := config.GetWorkerConfig(cfg, taskType)
		return wc, config.GetDuration(wc.Timeout)
	}

	if wc, timeout := workerCfg(ce.TaskType); wc.Enabled {
		handler := ce.NewHandler(&ce.Config{Timeout: timeout}, coordinator, validator, log)
		pool.Start(ce.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(cg.TaskType); wc.Enabled {
		handler := cg.NewHandler(&cg.Config{Timeout: timeout}, gameService, validator, log)
		pool.Start(cg.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(lag.TaskType); wc.Enabled {
		handler := lag.NewHandler(&lag.Config{Timeout: timeout}, gameService, validator, log)
		pool.Start(lag.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(lg.TaskType); wc.Enabled {
		handler := lg.NewHandler(&lg.Config{Timeout: timeout}, gameService, validator, log)
		pool.Start(lg.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(dg.TaskType); wc.Enabled {
		handler := dg.NewHandler(&dg.Config{Timeout: timeout}, gameService, validator, log)
		pool.Start(dg.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(sa.TaskType); wc.Enabled {
		handler := sa.NewHandler(&sa.Config{Timeout: timeout}, coordinator, validator, log)
		pool.Start(sa.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(ra.TaskType); wc.Enabled {
		handler := ra.NewHandler(&ra.Config{Timeout: timeout}, coordinator, store, gameService, validator, log)
		pool.Start(ra.TaskType, wc, handler.Handle)
	}

	if wc, timeout := workerCfg(sdn.TaskType); wc.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to load AWS config", zap.Error(err))
		}
		notifier := notify.NewNotifier(notify.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
		}, awsclient.NewSESClient(awsCfg), awsclient.NewSNSClient(awsCfg), log)

		handler := sdn.NewHandler(&sdn.Config{Timeout: timeout}, store, store, store, notifier, validator, log)
		pool.Start(sdn.TaskType, wc, handler.Handle)
	}

	zapLog.Info("workers registered", zap.Strings("taskTypes", pool.TaskTypes()))

	// --- Health / readiness / metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				ready = false
				return
			}
			checks[name] = "ok"
		}

		record("postgres", pg.Ping(checkCtx))
		record("zeebe", zeebe.HealthCheck(checkCtx))
		if redisClient != nil {
			record("redis", redisClient.Ping(checkCtx))
		}

		status := http.StatusOK
		body := map[string]interface{}{"status": "ready", "checks": checks, "time": time.Now().Format(time.RFC3339)}
		if !ready {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
		}
		writeStatus(w, status, body)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
