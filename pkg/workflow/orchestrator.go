// Package workflow drives incidents through match, plan and dispatch and
// records the resulting tickets.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/netops/pkg/dispatch"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/planner"
	"github.com/ethpandaops/netops/pkg/types"
)

// TicketSink receives finished tickets.
type TicketSink interface {
	WriteTicket(ctx context.Context, ticket types.Ticket) error
}

// Report is the result of one run.
type Report struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Tickets   []types.Ticket `json:"tickets"`
}

// Summary counts tickets by outcome.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Escalated int `json:"escalated"`
}

// Summary returns the outcome counts of the report's tickets.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Tickets)}

	for _, t := range r.Tickets {
		if t.ValidationPassed {
			s.Passed++
		} else {
			s.Failed++
		}

		if t.Escalated {
			s.Escalated++
		}
	}

	return s
}

// Orchestrator runs incidents against a built runbook index.
type Orchestrator struct {
	log     logrus.FieldLogger
	holder  *index.Holder
	planner *planner.Planner
	engine  *dispatch.Engine
	events  observability.Emitter
	sink    TicketSink
	workers int
}

// NewOrchestrator creates an orchestrator. sink and events may be nil.
// workers below one is treated as one.
func NewOrchestrator(
	log logrus.FieldLogger,
	holder *index.Holder,
	p *planner.Planner,
	engine *dispatch.Engine,
	events observability.Emitter,
	sink TicketSink,
	workers int,
) *Orchestrator {
	if events == nil {
		events = observability.Discard
	}

	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		log:     log.WithField("component", "orchestrator"),
		holder:  holder,
		planner: p,
		engine:  engine,
		events:  events,
		sink:    sink,
		workers: workers,
	}
}

// RunIncident matches, plans and executes one incident and writes the
// ticket to the sink.
func (o *Orchestrator) RunIncident(ctx context.Context, incident types.Incident) (types.Ticket, error) {
	ticket, err := o.process(ctx, incident)
	if err != nil {
		return types.Ticket{}, err
	}

	if err := o.write(ctx, ticket); err != nil {
		return types.Ticket{}, err
	}

	return ticket, nil
}

func (o *Orchestrator) process(ctx context.Context, incident types.Incident) (types.Ticket, error) {
	start := time.Now()

	matches, err := o.holder.Query(incident.Summary, 1)
	if err != nil {
		return types.Ticket{}, fmt.Errorf("matching incident %s: %w", incident.ID, err)
	}

	match := matches[0]

	o.events.Emit(observability.Event{
		Level:   logrus.InfoLevel,
		Message: observability.EventMatchFound,
		Fields: logrus.Fields{
			"incident_id": incident.ID,
			"runbook_id":  match.Runbook.ID,
			"score":       match.Score,
		},
	})

	observability.MatchScore.Observe(match.Score)

	plan := o.planner.Plan(incident, match.Runbook)
	ticket := o.engine.Execute(ctx, incident, match, plan)

	observability.IncidentDuration.Observe(time.Since(start).Seconds())

	return ticket, nil
}

func (o *Orchestrator) write(ctx context.Context, ticket types.Ticket) error {
	if o.sink == nil {
		return nil
	}

	if err := o.sink.WriteTicket(ctx, ticket); err != nil {
		return fmt.Errorf("writing ticket: %w", err)
	}

	return nil
}

// Run processes incidents and returns their tickets in input order. The
// index must already be built. With more than one worker incidents are
// processed concurrently; tickets are still written to the sink in input
// order once all incidents finish.
func (o *Orchestrator) Run(ctx context.Context, incidents []types.Incident) (*Report, error) {
	if _, err := o.holder.Index(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Tickets:   make([]types.Ticket, len(incidents)),
	}

	log := o.log.WithField("run_id", report.RunID)
	log.WithFields(logrus.Fields{
		"incidents": len(incidents),
		"workers":   o.workers,
	}).Info("Run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, incident := range incidents {
		g.Go(func() error {
			ticket, err := o.process(gctx, incident)
			if err != nil {
				return err
			}

			report.Tickets[i] = ticket

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ticket := range report.Tickets {
		if err := o.write(ctx, ticket); err != nil {
			return nil, err
		}
	}

	summary := report.Summary()
	log.WithFields(logrus.Fields{
		"tickets":   summary.Total,
		"passed":    summary.Passed,
		"failed":    summary.Failed,
		"escalated": summary.Escalated,
	}).Info("Run finished")

	return report, nil
}
