package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/songzhibin97/prospector/internal/ai/openai"
	"github.com/songzhibin97/prospector/internal/analysis"
	"github.com/songzhibin97/prospector/internal/configs"
	"github.com/songzhibin97/prospector/internal/data"
	"github.com/songzhibin97/prospector/internal/data/collector"
	"github.com/songzhibin97/prospector/internal/data/collector/etherscan"
	"github.com/songzhibin97/prospector/internal/data/price"
	"github.com/songzhibin97/prospector/internal/data/storage"
	"github.com/songzhibin97/prospector/internal/observability"
	"github.com/songzhibin97/prospector/internal/prospecting"
	"github.com/songzhibin97/prospector/internal/scoring"
)

// app holds the wired components and the resources to release on exit.
type app struct {
	service *prospecting.Service
	metrics *observability.Metrics
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close failed", "err", err)
		}
	}
}

func buildApp(ctx context.Context, config *configs.Config, logger *slog.Logger) (*app, error) {
	a := &app{metrics: observability.NewMetrics("")}

	// 链上数据
	provider := etherscan.NewClient(etherscan.Config{
		BaseURL:        config.Etherscan.BaseURL,
		APIKey:         config.Etherscan.APIKey,
		ChainID:        config.Etherscan.ChainID,
		RequestsPerSec: config.Etherscan.RequestsPerSec,
		BalanceTimeout: config.Etherscan.BalanceTimeout(),
		HistoryTimeout: config.Etherscan.HistoryTimeout(),
	})
	if config.Etherscan.APIKey == "" {
		logger.Warn("etherscan api key not set, requests will be heavily rate limited")
	}

	gateway := collector.NewGateway([]data.ChainDataProvider{provider}, collector.BreakerSettings{
		ConsecutiveFailures: uint32(max(0, config.Prospecting.BreakerFailures)),
		OpenTimeout:         config.Prospecting.BreakerOpenTimeout(),
	}, logger.With("component", "gateway"), a.metrics)

	logger.Debug("init gateway")

	// 价格
	sources := []price.Source{price.NewCoinGeckoSource(config.Price.CoinGeckoURL, config.Price.Timeout())}
	if config.Price.BinanceEnabled {
		sources = append(sources, price.NewBinanceSource(config.Price.BinanceURL, config.Price.Timeout()))
	}

	cacheOpts := []price.CacheOption{
		price.WithTTL(config.Price.TTL()),
		price.WithFallback(config.Price.Fallback),
		price.WithRecorder(a.metrics),
	}
	if config.Price.RedisURL != "" {
		client, err := price.DialRedis(ctx, config.Price.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect price redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		cacheOpts = append(cacheOpts, price.WithSharedStore(price.NewRedisStore(client)))
		logger.Debug("init shared price store")
	}
	prices := price.NewCache(price.NewMultiSource(sources, logger), logger, cacheOpts...)

	analyzer := analysis.NewAnalyzer(gateway, prices, logger, analysis.Options{
		TransactionSample: config.Prospecting.TransactionSample,
		TransferSample:    config.Prospecting.TransferSample,
	})

	opts := prospecting.Options{
		Concurrency: config.Prospecting.Concurrency,
		Recorder:    a.metrics,
	}

	if config.Database.ConnStr != "" {
		watchlist, err := storage.NewPostgresWatchlist(ctx, config.Database.ConnStr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect watchlist database: %w", err)
		}
		a.closers = append(a.closers, watchlist.Close)
		opts.Watchlist = watchlist
		logger.Debug("init watchlist")
	}

	if config.AIConfig.APIKey != "" {
		opts.Writer = openai.NewOutreachWriter(config.AIConfig.APIKey, config.AIConfig.BaseURL, config.AIConfig.ModelType)
		logger.Debug("init outreach writer", "model", config.AIConfig.ModelType)
	}

	a.service = prospecting.NewService(analyzer, prices, scoring.NewEngine(nil, nil), logger, opts)
	return a, nil
}
