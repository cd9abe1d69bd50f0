package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dusk-indust/a2abridge/internal/a2a"
	"github.com/dusk-indust/a2abridge/internal/config"
	"github.com/dusk-indust/a2abridge/internal/logging"
	"github.com/dusk-indust/a2abridge/internal/relay"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Environment: string(cfg.Environment),
		Version:     cfg.AppVersion,
		Caller:      cfg.Debug,
	})
}

// newResolver builds the A2A client and the card resolver in front of it.
func newResolver(cfg *config.Config) (*a2a.HTTPClient, relay.Resolver) {
	client := a2a.NewHTTPClient(
		a2a.WithTimeout(cfg.A2ATimeout),
		a2a.WithCardPath(cfg.AgentCardPath),
	)
	if cfg.CardCacheTTL > 0 {
		return client, a2a.NewCachingResolver(client, cfg.CardCacheTTL)
	}
	return client, client
}

func newRelay(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*relay.Relay, relay.Resolver, error) {
	client, resolver := newResolver(cfg)
	r, err := relay.New(relay.Config{
		BaseURL:     cfg.A2AClient,
		Resolver:    resolver,
		Dispatchers: relay.A2ADispatchers(client),
		Logger:      logger,
		Registerer:  reg,
	})
	if err != nil {
		return nil, nil, err
	}
	return r, resolver, nil
}
