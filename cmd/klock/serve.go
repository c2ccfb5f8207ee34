package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/waythor-lab/klock/internal/config"
	"github.com/waythor-lab/klock/internal/facade"
	"github.com/waythor-lab/klock/internal/httpapi"
	"github.com/waythor-lab/klock/internal/logging"
	"github.com/waythor-lab/klock/internal/metrics"
	"github.com/waythor-lab/klock/internal/store"
	"github.com/waythor-lab/klock/internal/store/cache"
	"github.com/waythor-lab/klock/internal/store/memory"
	"github.com/waythor-lab/klock/internal/store/postgres"
	"github.com/waythor-lab/klock/internal/sweeper"

	"github.com/prometheus/client_golang/prometheus"
)

func newServeCmd() *cobra.Command {
	var (
		host    string
		port    int
		storage string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Klock HTTP coordination server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("storage") {
				cfg.StorageMode = config.StorageMode(storage)
			}

			log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})

			backend, closeStore, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			if closeStore != nil {
				defer closeStore()
			}

			if cfg.RedisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
				backend = cache.Wrap(backend, rdb, log.Logger)
				log.WithField("addr", cfg.RedisAddr).Info("read-through cache enabled")
			}

			client := facade.New(backend)

			var m *metrics.Metrics
			if cfg.MetricsEnabled {
				m = metrics.New(prometheus.DefaultRegisterer)
			}

			sweep, err := sweeper.New(client, cfg.SweepInterval.String(), log.Logger, m)
			if err != nil {
				return fmt.Errorf("start sweeper: %w", err)
			}
			sweep.Start()
			defer sweep.Stop()

			svc := httpapi.NewService(cfg.Host, cfg.Port, client, cfg.APIKey, cfg.JWTSecret, log.Logger, m)
			if err := svc.Start(); err != nil {
				return fmt.Errorf("start http server: %w", err)
			}
			log.WithField("addr", svc.Addr()).Info("klock server listening")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return svc.Stop(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 7433, "port to listen on")
	cmd.Flags().StringVar(&storage, "storage", "memory", "storage backend: \"memory\" or \"postgres\"")

	return cmd
}

// openStore builds the configured store.LeaseStore and an optional close
// function for resources (e.g. a postgres connection pool) that must be
// torn down on shutdown.
func openStore(cfg *config.Config, log *logging.Logger) (store.LeaseStore, func(), error) {
	switch cfg.StorageMode {
	case config.StoragePostgres:
		log.Info("storage backend: postgres")
		pg, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return pg, func() { pg.Close() }, nil
	default:
		log.Info("storage backend: in-memory (leases will not persist)")
		return memory.New(), nil, nil
	}
}
