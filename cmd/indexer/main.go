package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/handler"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/lunr-index/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("indexer service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexer service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	router, err := shard.NewRouter(cfg.Tokenizer, cfg.Indexer.NumShards, m)
	if err != nil {
		return fmt.Errorf("creating shard router: %w", err)
	}
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d shards active", router.NumShards())}
	})

	exportOpts := []export.Option{
		export.WithFileWriter(export.NewFileWriter(filepath.Clean(cfg.Indexer.DataDir), cfg.Indexer.KeepExports)),
		export.WithMetrics(m),
	}

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, snapshots will not be published to redis", "error", err)
	} else {
		defer redisClient.Close()
		exportOpts = append(exportOpts, export.WithSink(export.NewRedisSink(redisClient, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotTTL)))
		checker.Register("redis", health.PingCheck(redisClient.Ping, true))
	}

	var store consumer.StatusStore
	if cfg.Postgres.Host != "" {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating postgres: %w", err)
		}
		store = consumer.NewPGStatusStore(pg.DB)
		checker.Register("postgres", health.PingCheck(pg.Ping, false))
	}

	kafkaEnabled := len(cfg.Kafka.Brokers) > 0
	if kafkaEnabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexExported)
		defer producer.Close()
		exportOpts = append(exportOpts, export.WithNotifier(export.NewNotifier(producer)))
	}
	exporter := export.New(exportOpts...)

	mux := http.NewServeMux()
	handler.New(router, exporter).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Timeout(cfg.Server.WriteTimeout),
		middleware.Metrics(m),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if kafkaEnabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.TokenIngest, consumer.HandleMessage(router, store, m))
		ic := consumer.New(kc)
		g.Go(func() error { return ic.Start(gctx) })
		slog.Info("consuming token events",
			"topic", cfg.Kafka.Topics.TokenIngest,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}
	g.Go(func() error {
		router.StartExportLoop(gctx, exporter, cfg.Indexer.ExportInterval)
		return nil
	})
	g.Go(func() error {
		slog.Info("indexer service listening", "addr", server.Addr, "num_shards", router.NumShards())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if metricsServer != nil {
			err = errors.Join(err, metricsServer.Shutdown(shutdownCtx))
		}
		return err
	})
	runErr := g.Wait()

	slog.Info("exporting index before shutdown")
	finalCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if _, err := router.Export(finalCtx, exporter); err != nil {
		slog.Error("final export failed", "error", err)
	}
	return runErr
}
