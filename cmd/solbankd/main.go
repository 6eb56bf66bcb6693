// Command solbankd runs the banking pipeline as a long-lived process: it
// wires the local store, the backend API client, the offline sync queue, and
// the ops HTTP surface, then drains the queue whenever connectivity returns.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"solbank/pkg/data"
	"solbank/pkg/ledger"
	"solbank/pkg/logging"
	promcollector "solbank/pkg/metrics/prometheus"
	"solbank/pkg/ops"
	"solbank/pkg/remote"
	"solbank/pkg/repo"
	"solbank/pkg/session"
	"solbank/pkg/store"
	"solbank/pkg/store/file"
	"solbank/pkg/store/memory"
	"solbank/pkg/store/postgres"
	"solbank/pkg/store/redis"
	"solbank/pkg/syncq"
)

func main() {
	logger, err := logging.NewLoggerFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	if err := run(logger); err != nil {
		logger.Fatal("solbankd", zap.Error(err))
	}
}

func run(logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore(logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	collector := promcollector.NewPrometheusCollector("solbank")
	registry := prometheus.NewRegistry()
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	sessions := session.NewManager(s, session.Config{
		TokenSecret: []byte(os.Getenv("TOKEN_SECRET")),
	}, logger)

	api := remote.NewHTTPClient(remote.HTTPConfig{
		BaseURL: envOr("API_BASE_URL", "http://localhost:3001"),
	}, sessions)
	backend := remote.NewResilientClient(api, remote.DefaultResilientConfig(), collector, logger)

	rpc, err := ledger.NewRPCClient(ledger.RPCConfig{
		Network:        ledger.Network(envOr("SOLANA_NETWORK", string(ledger.NetworkDevnet))),
		CustomURL:      os.Getenv("SOLANA_RPC_URL"),
		RequestTimeout: 15 * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("ledger client: %w", err)
	}
	defer rpc.Close()

	reader := ledger.NewReader(rpc, ledger.DefaultReaderConfig(), logger)

	repos := repo.New(s)
	queue := syncq.New(s, backend, logger, collector)
	service := data.New(backend, repos, queue, logger, collector)
	service.AttachReader(reader)

	server := ops.NewServer(service, queue, registry, ops.Config{
		Address:      envOr("OPS_ADDR", ":8080"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}, logger)
	server.Start()

	go service.WatchConnectivity(ctx, envDuration("PING_INTERVAL", 15*time.Second))
	go func() {
		ticker := time.NewTicker(envDuration("AUTOSAVE_INTERVAL", time.Hour))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if fired, err := service.RunAutoSave(ctx); err != nil {
					logger.Warn("auto-save pass", zap.Error(err))
				} else if fired > 0 {
					logger.Info("auto-save pass", zap.Int("contributions", fired))
				}
			}
		}
	}()

	logger.Info("solbankd started",
		zap.String("store", s.Name()),
		zap.String("api", envOr("API_BASE_URL", "http://localhost:3001")),
		zap.String("network", envOr("SOLANA_NETWORK", string(ledger.NetworkDevnet))))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

// openStore picks the persistence backend from STORE_BACKEND:
// memory (default), file, redis, or postgres.
func openStore(logger *logging.Logger) (store.Store, error) {
	switch backend := envOr("STORE_BACKEND", "memory"); backend {
	case "memory":
		return memory.NewMemoryStore(), nil
	case "file":
		return file.NewFileStore(envOr("STORE_PATH", "solbank-state.json"))
	case "redis":
		return redis.NewRedisStore(redis.RedisStoreConfig{
			Addr:     envOr("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		})
	case "postgres":
		return postgres.NewPostgresStore(postgres.Config{
			Host:     envOr("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			User:     envOr("POSTGRES_USER", "solbank"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: envOr("POSTGRES_DB", "solbank"),
			SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		})
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
