package app

import (
	"context"
	"errors"
	"log/slog"

	redisc "github.com/alanyoungcy/priceindex/internal/cache/redis"
	"github.com/alanyoungcy/priceindex/internal/config"
	"github.com/alanyoungcy/priceindex/internal/exchange"
	"github.com/alanyoungcy/priceindex/internal/index"
	"github.com/alanyoungcy/priceindex/internal/platform/binance"
	"github.com/alanyoungcy/priceindex/internal/platform/huobi"
	"github.com/alanyoungcy/priceindex/internal/platform/kraken"
)

// Dependencies bundles everything the HTTP surface needs. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Aggregator *index.Aggregator
	IndexCache *redisc.IndexCache
}

// Wire constructs the exchange clients, aggregator, and optional cache from
// the given configuration. An exchange whose construction-time liveness probe
// fails is logged and skipped; it is never registered with the aggregator,
// per-request failures later on are the aggregator's business. Wire fails
// only when no exchange at all could be registered, or when an explicitly
// enabled subsystem (Redis) is unreachable.
//
// ctx also governs the lifetime of the Binance streaming session; cancelling
// it stops the background task.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var exchanges []exchange.Exchange

	bn, err := binance.NewClient(ctx, binance.Config{
		WsURL:                 cfg.Exchange.Binance.WsURL,
		RestURL:               cfg.Exchange.Binance.RestURL,
		InitialReconnectDelay: cfg.Exchange.Session.InitialReconnectDelay.Duration,
		MaxReconnectDelay:     cfg.Exchange.Session.MaxReconnectDelay.Duration,
		PingInterval:          cfg.Exchange.Session.PingInterval.Duration,
		PingRetryCount:        cfg.Exchange.Session.PingRetryCount,
	}, logger)
	if err != nil {
		logger.ErrorContext(ctx, "binance not registered",
			slog.String("error", err.Error()),
		)
	} else {
		exchanges = append(exchanges, bn)
	}

	kr, err := kraken.NewClient(ctx, cfg.Exchange.Kraken.URL)
	if err != nil {
		logger.ErrorContext(ctx, "kraken not registered",
			slog.String("error", err.Error()),
		)
	} else {
		exchanges = append(exchanges, kr)
	}

	hb, err := huobi.NewClient(ctx, cfg.Exchange.Huobi.URL)
	if err != nil {
		logger.ErrorContext(ctx, "huobi not registered",
			slog.String("error", err.Error()),
		)
	} else {
		exchanges = append(exchanges, hb)
	}

	if len(exchanges) == 0 {
		cleanup()
		return nil, nil, errors.New("wire: no exchange could be registered")
	}

	deps := &Dependencies{
		Aggregator: index.New(exchanges, cfg.Weighting.DecayFactor, logger),
	}

	if cfg.Redis.Enabled {
		rc, err := redisc.New(ctx, redisc.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.IndexCache = redisc.NewIndexCache(rc)
	}

	return deps, cleanup, nil
}
