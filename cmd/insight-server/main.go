package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/procurex/map-insight/internal/cache/flightcache"
	"github.com/procurex/map-insight/internal/cache/redisstore"
	"github.com/procurex/map-insight/internal/core/config"
	"github.com/procurex/map-insight/internal/core/health"
	"github.com/procurex/map-insight/internal/core/httpclient"
	"github.com/procurex/map-insight/internal/core/middleware"
	"github.com/procurex/map-insight/internal/core/observability"
	"github.com/procurex/map-insight/internal/core/server"
	"github.com/procurex/map-insight/internal/deltas/kafkaconsumer"
	"github.com/procurex/map-insight/internal/insight"
	"github.com/procurex/map-insight/internal/logger"
	"github.com/procurex/map-insight/internal/snapshot"
	"github.com/procurex/map-insight/internal/store"
	"github.com/procurex/map-insight/internal/summary"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Component: "insight-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting insight server",
		"addr", cfg.Addr,
		"version", Version,
		"store", cfg.StoreURL,
		"cache_ttl", cfg.CacheTTL.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeClient, err := store.New(cfg.StoreURL, cfg.StoreAPIKey, httpclient.NewOutbound(cfg.StoreTimeout))
	if err != nil {
		appLog.Error("failed to initialize store client", "err", err)
		return 1
	}
	fetcher := snapshot.NewFetcher(storeClient, appLog, snapshot.Tables{
		Layers:  cfg.LayersTable,
		Metrics: cfg.MetricsTable,
	})

	// completion provider is optional; without a key every summary is the
	// deterministic fallback
	var completion summary.CompletionClient
	if cfg.OpenAIAPIKey != "" {
		oc, err := summary.NewOpenAIClient(cfg.OpenAIAPIURL, cfg.OpenAIAPIKey, cfg.OpenAIModel,
			httpclient.NewOutbound(cfg.OpenAITimeout))
		if err != nil {
			appLog.Error("failed to initialize completion client", "err", err)
			return 1
		}
		completion = oc
	} else {
		appLog.Warn("no completion provider configured; summaries use the system fallback")
	}
	summarizer := summary.NewGenerator(completion, cfg.OpenAITimeout, appLog)

	var l2 flightcache.Layer
	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Error("failed to connect shared cache layer", "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		l2 = rc
		appLog.Info("shared cache layer enabled", "addr", cfg.RedisAddr)
	}

	svc := insight.New(fetcher, summarizer, appLog, insight.Options{
		TTL:        cfg.CacheTTL,
		MaxRegions: cfg.CacheMaxRegions,
		HotspotRes: cfg.HotspotH3Res,
		L2:         l2,
	})

	verifier := middleware.NewStaticVerifier(cfg.Auth.Tokens)

	var reporter health.ReadinessReporter
	if cfg.DeltaFeed.Enabled {
		consumer := kafkaconsumer.New(
			kafkaconsumer.DefaultConfig(cfg.DeltaFeed.Brokers, cfg.DeltaFeed.Topic, cfg.DeltaFeed.GroupID),
			appLog, svc)
		reporter = consumer
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("delta consumer exited", "err", err)
			}
		}()
	}

	if err := server.Run(ctx, cfg, appLog, svc, verifier, reporter); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
