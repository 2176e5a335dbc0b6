package server

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/middleware"
	"github.com/ethpandaops/netops/pkg/store"
	"github.com/ethpandaops/netops/runbooks"
)

// Builder constructs and wires the dependencies of the HTTP service.
type Builder struct {
	log logrus.FieldLogger
	cfg *config.Config
}

// NewBuilder creates a new server builder.
func NewBuilder(log logrus.FieldLogger, cfg *config.Config) *Builder {
	return &Builder{
		log: log.WithField("component", "builder"),
		cfg: cfg,
	}
}

// Build opens the ticket store, indexes the runbooks and returns the service.
func (b *Builder) Build(ctx context.Context) (Service, error) {
	b.log.Info("Building netops server dependencies")

	st, err := store.Open(ctx, b.log, b.cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	registry, holder, err := b.buildIndex()
	if err != nil {
		_ = st.Close()

		return nil, fmt.Errorf("building runbook index: %w", err)
	}

	limiter, err := middleware.NewRateLimiter(b.log, b.cfg.Server.RateLimit)
	if err != nil {
		_ = st.Close()

		return nil, fmt.Errorf("building rate limiter: %w", err)
	}

	return NewService(b.log, b.cfg.Server, st, holder, registry, limiter, st.Close), nil
}

func (b *Builder) buildIndex() (*runbooks.Registry, *index.Holder, error) {
	registry, err := runbooks.NewRegistry(b.log, b.cfg.Runbooks.Path)
	if err != nil {
		return nil, nil, err
	}

	holder := index.NewHolder(b.log)
	if _, err := holder.Build(registry.All()); err != nil {
		return nil, nil, err
	}

	return registry, holder, nil
}
