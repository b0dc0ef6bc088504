package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/web3ekko/ekko-ce/explainer/internal/chains"
	"github.com/web3ekko/ekko-ce/explainer/internal/config"
	"github.com/web3ekko/ekko-ce/explainer/internal/transport"
	"github.com/web3ekko/ekko-ce/explainer/pkg/explainer"
	"github.com/web3ekko/ekko-ce/explainer/pkg/risk"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML file with the chain list")
	once := flag.String("once", "", "explain one JSON request (\"-\" reads stdin) and exit")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *once, logger); err != nil {
		logger.Fatal("explainer stopped with error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, once string, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cache, closeCache, err := newInteractionCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	registry, err := chains.Dial(ctx, cfg.Chains, logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	explainers := make(map[uint64]*explainer.Explainer)
	for _, c := range registry.List() {
		explainers[c.ID] = explainer.New(c.Reader, explainer.Options{
			Logger:        logger.With(zap.String("chain", c.Name)),
			Cache:         cache,
			NativeSymbol:  c.Currency,
			Concurrency:   cfg.EnrichConcurrency,
			EnrichTimeout: cfg.RequestTimeout,
		})
	}

	if once != "" {
		handler := transport.NewHandler(explainers, transport.HandlerOptions{Logger: logger})
		return explainOnce(ctx, handler, once, os.Stdin, os.Stdout)
	}

	nc, err := nats.Connect(cfg.NatsURL, nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	opts := transport.HandlerOptions{Logger: logger.Named("transport")}
	if cfg.AuditEnabled() {
		js, err := nc.JetStream()
		if err != nil {
			return fmt.Errorf("failed to get JetStream context: %w", err)
		}
		sink, err := transport.NewAuditSink(js, cfg.AuditStream, cfg.AuditSubject, logger.Named("audit"))
		if err != nil {
			return err
		}
		opts.Audit = sink
	}

	svc := transport.NewService(nc, transport.NewHandler(explainers, opts), cfg.RequestSubject, cfg.QueueGroup, logger.Named("service"))
	if err := svc.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")
	return svc.Stop()
}

func newInteractionCache(cfg *config.Config, logger *zap.Logger) (risk.InteractionCache, func(), error) {
	if cfg.CacheType != "redis" {
		logger.Info("using in-memory interaction cache")
		return risk.NewMemoryInteractionCache(), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: cfg.RedisURL,
		}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("using redis interaction cache", zap.String("key", cfg.InteractionCacheKey))

	cache := risk.NewRedisInteractionCache(client, cfg.InteractionCacheKey)
	return cache, func() { _ = cache.Close() }, nil
}

// explainOnce answers a single request given inline or on stdin.
func explainOnce(ctx context.Context, handler *transport.Handler, request string, stdin io.Reader, stdout io.Writer) error {
	payload := []byte(request)
	if request == "-" {
		var err error
		if payload, err = io.ReadAll(stdin); err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}
	}
	if _, err := fmt.Fprintln(stdout, string(handler.Handle(ctx, payload))); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
