package workflow

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/netops/pkg/action"
	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/dispatch"
	"github.com/ethpandaops/netops/pkg/fixture"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/planner"
	"github.com/ethpandaops/netops/pkg/types"
	"github.com/ethpandaops/netops/runbooks"
)

// Store persists everything a workflow run produces.
type Store interface {
	TicketSink
	LoadDevices(ctx context.Context, devices []types.Device) error
	LoadInterfaces(ctx context.Context, interfaces []types.Interface) error
	LoadIncidents(ctx context.Context, incidents []types.Incident) error
	SaveRunbooks(ctx context.Context, runbooks []types.Runbook, vectors map[string][]float64) error
}

// Workflow runs the full pipeline: generate and persist fixtures, index the
// runbooks and process every incident.
type Workflow struct {
	log    logrus.FieldLogger
	cfg    *config.Config
	store  Store
	events observability.Emitter
	holder *index.Holder
}

// New creates a workflow. events may be nil, in which case events go to log.
func New(log logrus.FieldLogger, cfg *config.Config, store Store, events observability.Emitter) *Workflow {
	if events == nil {
		events = observability.NewLogEmitter(log)
	}

	return &Workflow{
		log:    log.WithField("component", "workflow"),
		cfg:    cfg,
		store:  store,
		events: events,
		holder: index.NewHolder(log),
	}
}

// Run executes the pipeline and returns the run report.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	set := fixture.Generate(w.cfg.Run.Seed, w.cfg.Run.DeviceCount, fixture.IncidentOptions{
		Count:       w.cfg.Run.IncidentCount,
		FailureRate: w.cfg.Run.FailureRate,
	})

	w.log.WithFields(logrus.Fields{
		"seed":       w.cfg.Run.Seed,
		"devices":    len(set.Devices),
		"interfaces": len(set.Interfaces),
		"incidents":  len(set.Incidents),
	}).Info("Fixtures generated")

	if err := w.store.LoadDevices(ctx, set.Devices); err != nil {
		return nil, err
	}

	if err := w.store.LoadInterfaces(ctx, set.Interfaces); err != nil {
		return nil, err
	}

	if err := w.store.LoadIncidents(ctx, set.Incidents); err != nil {
		return nil, err
	}

	registry, err := runbooks.NewRegistry(w.log, w.cfg.Runbooks.Path)
	if err != nil {
		return nil, err
	}

	idx, err := w.holder.Build(registry.All())
	if err != nil {
		return nil, fmt.Errorf("building runbook index: %w", err)
	}

	if err := w.store.SaveRunbooks(ctx, idx.Runbooks(), idx.Vectors()); err != nil {
		return nil, err
	}

	catalog := action.NewCatalog()
	w.log.WithField("actions", catalog.Names()).Debug("Action catalog ready")

	executor := action.NewGuarded(w.log, catalog, w.cfg.Actions)
	engine := dispatch.NewEngine(executor, w.events)
	orch := NewOrchestrator(w.log, w.holder, planner.New(), engine, w.events, w.store, w.cfg.Run.Workers)

	return orch.Run(ctx, set.Incidents)
}
