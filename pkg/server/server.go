// Package server exposes tickets and runbook search over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/middleware"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/types"
)

// TicketReader reads persisted tickets.
type TicketReader interface {
	Tickets(ctx context.Context) ([]types.Ticket, error)
	Ticket(ctx context.Context, incidentID string) (types.Ticket, error)
}

// Searcher queries the runbook index.
type Searcher interface {
	Query(text string, topK int) ([]index.Match, error)
}

// RunbookLister reads the loaded runbook corpus.
type RunbookLister interface {
	All() []types.Runbook
	Get(id string) *types.Runbook
	Categories() []string
}

// Service is the HTTP server lifecycle.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Handler() http.Handler
}

type service struct {
	log      logrus.FieldLogger
	cfg      config.ServerConfig
	tickets  TicketReader
	searcher Searcher
	runbooks RunbookLister
	limiter  *middleware.RateLimiter
	closers  []func() error

	router  http.Handler
	srv     *http.Server
	running atomic.Bool
}

// NewService creates the HTTP service. closers run on Stop after the
// listener shuts down.
func NewService(
	log logrus.FieldLogger,
	cfg config.ServerConfig,
	tickets TicketReader,
	searcher Searcher,
	runbooks RunbookLister,
	limiter *middleware.RateLimiter,
	closers ...func() error,
) Service {
	s := &service{
		log:      log.WithField("component", "server"),
		cfg:      cfg,
		tickets:  tickets,
		searcher: searcher,
		runbooks: runbooks,
		limiter:  limiter,
		closers:  closers,
	}

	s.router = s.routes()

	return s
}

func (s *service) Handler() http.Handler {
	return s.router
}

func (s *service) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(observability.RequestLogger(s.log))

	s.mountHealthRoutes(r)

	r.Handle("/metrics", promhttp.Handler())
	mountOpenAPIRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.limit("tickets")).Get("/tickets", s.handleListTickets)
		r.With(s.limit("tickets")).Get("/tickets/{incidentID}", s.handleGetTicket)
		r.With(s.limit("search")).Get("/runbooks/search", s.handleSearch)
		r.With(s.limit("runbooks")).Get("/runbooks", s.handleListRunbooks)
		r.With(s.limit("runbooks")).Get("/runbooks/{runbookID}", s.handleGetRunbook)
	})

	return r
}

func (s *service) limit(route string) func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return s.limiter.Middleware(route)
}

// Start listens until ctx is cancelled or Stop is called.
func (s *service) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.WithField("address", s.cfg.Address()).Info("HTTP server listening")

		errCh <- s.srv.ListenAndServe()
	}()

	s.running.Store(true)

	select {
	case err := <-errCh:
		s.running.Store(false)

		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		_ = s.Stop(context.Background())

		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.Stop(shutdownCtx)
	}
}

// Stop shuts the listener down and releases dependencies.
func (s *service) Stop(ctx context.Context) error {
	s.running.Store(false)

	var errs []error

	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down http server: %w", err))
		}
	}

	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}

	for _, closer := range s.closers {
		errs = append(errs, closer())
	}

	s.log.Info("HTTP server stopped")

	return errors.Join(errs...)
}
