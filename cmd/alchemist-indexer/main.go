// Package main runs the Alchemist position indexer. It consumes block events
// from SQS, reads the block's receipts from Redis, decodes Alchemist V1, V3 and
// Looper logs, and maintains position aggregates in PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/archon-research/alchemist-indexer/db/migrator"
	"github.com/archon-research/alchemist-indexer/internal/adapters/inbound/http"
	"github.com/archon-research/alchemist-indexer/internal/adapters/outbound/postgres"
	"github.com/archon-research/alchemist-indexer/internal/adapters/outbound/prometheus"
	"github.com/archon-research/alchemist-indexer/internal/adapters/outbound/redis"
	sqsadapter "github.com/archon-research/alchemist-indexer/internal/adapters/outbound/sqs"
	"github.com/archon-research/alchemist-indexer/internal/adapters/outbound/telemetry"
	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/pkg/env"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
	"github.com/archon-research/alchemist-indexer/internal/services/position_indexer"
)

const serviceName = "alchemist-indexer"

var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	queueURL := flag.String("queue", "", "SQS Queue URL")
	redisAddr := flag.String("redis", "", "Redis address")
	dbURL := flag.String("db", "", "PostgreSQL connection URL")
	maxMessages := flag.Int("max", 0, "Max messages per poll (default MAX_MESSAGES or 10)")
	waitTime := flag.Int("wait", 20, "Wait time in seconds (long polling)")
	migrate := flag.Bool("migrate", false, "Apply database migrations before starting")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	if *maxMessages == 0 {
		n, err := env.GetInt("MAX_MESSAGES", 10)
		if err != nil {
			logger.Error("invalid MAX_MESSAGES", "error", err)
			os.Exit(1)
		}
		*maxMessages = n
	}

	if err := run(logger, options{
		queueURL:    firstNonEmpty(*queueURL, env.Get("AWS_SQS_QUEUE_URL", "")),
		redisAddr:   firstNonEmpty(*redisAddr, env.Get("REDIS_ADDR", "")),
		dbURL:       firstNonEmpty(*dbURL, env.Get("DATABASE_URL", "")),
		maxMessages: *maxMessages,
		waitTime:    *waitTime,
		migrate:     *migrate || env.Get("RUN_MIGRATIONS", "") == "true",
	}); err != nil {
		logger.Error("alchemist indexer failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	queueURL    string
	redisAddr   string
	dbURL       string
	maxMessages int
	waitTime    int
	migrate     bool
}

func (o options) validate() error {
	if o.queueURL == "" {
		return fmt.Errorf("queue URL not provided (use -queue flag or AWS_SQS_QUEUE_URL env var)")
	}
	if o.redisAddr == "" {
		return fmt.Errorf("redis address not provided (use -redis flag or REDIS_ADDR env var)")
	}
	if o.dbURL == "" {
		return fmt.Errorf("database URL not provided (use -db flag or DATABASE_URL env var)")
	}
	return nil
}

func run(logger *slog.Logger, opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	contracts, err := trackedContracts()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownMetrics, err := telemetry.InitMetrics(ctx, telemetry.MetricConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    env.Get("ENVIRONMENT", "local"),
		OTLPEndpoint:   env.Get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	})
	if err != nil {
		return fmt.Errorf("failed to initialise metrics: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			logger.Warn("failed to flush metrics", "error", err)
		}
	}()

	metrics, metricsHandler, err := newMetrics(env.Get("METRICS_BACKEND", "otel"))
	if err != nil {
		return err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(env.Get("AWS_REGION", "us-east-1")))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	consumer, err := sqsadapter.NewConsumer(awsCfg, sqsadapter.Config{
		QueueURL:        opts.queueURL,
		WaitTimeSeconds: int32(opts.waitTime),
	}, logger, func(o *sqs.Options) {
		if endpoint := env.Get("AWS_SQS_ENDPOINT", ""); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	redisCfg := redis.ConfigDefaults()
	redisCfg.Addr = opts.redisAddr
	redisCfg.Password = env.Get("REDIS_PASSWORD", "")
	redisCfg.KeyPrefix = env.Get("REDIS_KEY_PREFIX", redisCfg.KeyPrefix)
	receipts, err := redis.NewReceiptCache(redisCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := receipts.Close(); err != nil {
			logger.Warn("failed to close Redis connection", "error", err)
		}
	}()
	if err := receipts.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Redis connected", "addr", opts.redisAddr)

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(opts.dbURL))
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("PostgreSQL connected")

	if opts.migrate {
		m := migrator.New(pool, env.Get("MIGRATIONS_DIR", "./db/migrations"), logger)
		if err := m.ApplyAll(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	txManager, err := postgres.NewTxManager(pool, logger)
	if err != nil {
		return err
	}
	store, err := postgres.NewEntityStore(pool, txManager, logger)
	if err != nil {
		return err
	}

	decoder, err := position_indexer.NewLogDecoder(contracts)
	if err != nil {
		return err
	}
	indexer, err := position_indexer.NewIndexer(store, logger)
	if err != nil {
		return err
	}

	pollInterval, err := env.GetDuration("POLL_INTERVAL", 0)
	if err != nil {
		return err
	}
	service, err := position_indexer.NewService(position_indexer.Config{
		MaxMessages:  opts.maxMessages,
		PollInterval: pollInterval,
		Logger:       logger,
	}, consumer, receipts, decoder, indexer, metrics)
	if err != nil {
		return err
	}

	var shuttingDown atomic.Bool
	healthCfg := http.HealthServerConfigDefaults()
	healthCfg.Addr = env.Get("HEALTH_ADDR", healthCfg.Addr)
	healthCfg.Logger = logger
	healthCfg.MetricsHandler = metricsHandler
	health := http.NewHealthServer(healthCfg, service, &shuttingDown)
	health.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting alchemist indexer",
		"queue", opts.queueURL,
		"redis", opts.redisAddr,
		"contracts", len(contracts))
	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start indexer: %w", err)
	}

	sig := <-sigChan
	logger.Info("received signal, shutting down...", "signal", sig)
	shuttingDown.Store(true)
	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if err := service.Stop(); err != nil {
			logger.Error("error stopping indexer", "error", err)
		}
	}()

	select {
	case <-shutdownDone:
	case <-time.After(25 * time.Second):
		return fmt.Errorf("shutdown timed out")
	}

	if err := health.Shutdown(5 * time.Second); err != nil {
		logger.Warn("failed to stop health server", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// newMetrics selects the metrics backend. Only the prometheus backend serves a
// scrape handler.
func newMetrics(backend string) (outbound.IndexerMetrics, nethttp.Handler, error) {
	switch backend {
	case "otel", "":
		m, err := telemetry.NewMetrics(nil, env.Get("OTEL_METER_NAME", serviceName))
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	case "prometheus":
		m := prometheus.NewMetrics()
		return m, m.Handler(), nil
	default:
		return nil, nil, fmt.Errorf("unknown METRICS_BACKEND %q (want otel or prometheus)", backend)
	}
}

// trackedContracts reads the contract addresses of each source from the
// environment. At least one address must be configured.
func trackedContracts() (map[common.Address]entity.Source, error) {
	vars := []struct {
		key    string
		source entity.Source
	}{
		{"ALCHEMIST_V1_ADDRESSES", entity.SourceAlchemistV1},
		{"ALCHEMIST_V3_ADDRESSES", entity.SourceAlchemistV3},
		{"LOOPER_ADDRESSES", entity.SourceLooper},
	}

	contracts := make(map[common.Address]entity.Source)
	for _, v := range vars {
		addrs, err := env.GetAddresses(v.key)
		if err != nil {
			return nil, err
		}
		for _, addr := range addrs {
			if prev, ok := contracts[addr]; ok && prev != v.source {
				return nil, fmt.Errorf("address %s configured for both %s and %s", addr.Hex(), prev, v.source)
			}
			contracts[addr] = v.source
		}
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("no contracts configured (set ALCHEMIST_V1_ADDRESSES, ALCHEMIST_V3_ADDRESSES or LOOPER_ADDRESSES)")
	}
	return contracts, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
