package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/netops/pkg/action"
	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/dispatch"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/planner"
	"github.com/ethpandaops/netops/pkg/store"
	"github.com/ethpandaops/netops/pkg/types"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

type memorySink struct {
	mu      sync.Mutex
	tickets []types.Ticket
	err     error
}

func (m *memorySink) WriteTicket(_ context.Context, ticket types.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.tickets = append(m.tickets, ticket)

	return nil
}

func newOrchestrator(t *testing.T, corpus []types.Runbook, events observability.Emitter, sink TicketSink, workers int) *Orchestrator {
	t.Helper()

	log := quietLogger()
	holder := index.NewHolder(log)

	if corpus != nil {
		_, err := holder.Build(corpus)
		require.NoError(t, err)
	}

	engine := dispatch.NewEngine(action.NewCatalog(), events)

	return NewOrchestrator(log, holder, planner.New(), engine, events, sink, workers)
}

func TestRunIncidentEndToEnd(t *testing.T) {
	corpus := []types.Runbook{{
		ID:       "rb-001",
		Title:    "Interface Flapping",
		Category: "interfaces",
		Commands: []string{"show interface {if}", "ping {gw} count 5"},
	}}

	rec := &observability.Recorder{}
	sink := &memorySink{}
	orch := newOrchestrator(t, corpus, rec, sink, 1)

	incident := types.Incident{
		ID:        "inc-0001",
		DeviceID:  "dev-001",
		Interface: "Gi0/1",
		Summary:   "Interface down detected",
		Category:  "interfaces",
		Severity:  types.SeverityHigh,
		Gateway:   "10.0.0.1",
	}

	ticket, err := orch.RunIncident(context.Background(), incident)
	require.NoError(t, err)

	assert.Equal(t, "inc-0001", ticket.IncidentID)
	assert.Equal(t, "rb-001", ticket.RunbookID)
	assert.Len(t, ticket.Actions, 2)
	assert.True(t, ticket.ValidationPassed)
	assert.Equal(t, dispatch.ReasonPassed, ticket.ValidationReason)
	assert.True(t, ticket.Escalated)
	assert.Contains(t, ticket.Notes, "Matched runbook Interface Flapping")

	require.Len(t, sink.tickets, 1)
	assert.Equal(t, ticket, sink.tickets[0])

	assert.Equal(t, []string{
		observability.EventMatchFound,
		observability.EventPlanStep,
		observability.EventPlanStep,
		observability.EventValidationVerdict,
		observability.EventEscalationDecision,
	}, rec.Messages())
}

func TestRunIncidentSingleRunbookAlwaysMatches(t *testing.T) {
	corpus := []types.Runbook{{ID: "rb-004", Title: "CPU Utilization High", Commands: []string{"show process cpu"}}}
	orch := newOrchestrator(t, corpus, nil, nil, 1)

	ticket, err := orch.RunIncident(context.Background(), types.Incident{ID: "inc-0001", Summary: "Interface down detected"})
	require.NoError(t, err)
	assert.Equal(t, "rb-004", ticket.RunbookID)
	assert.Equal(t, 0.0, ticket.Score)
}

func TestRunBeforeIndexBuilt(t *testing.T) {
	orch := newOrchestrator(t, nil, nil, nil, 1)

	_, err := orch.Run(context.Background(), []types.Incident{{ID: "inc-0001", Summary: "cpu"}})
	require.ErrorIs(t, err, index.ErrIndexNotBuilt)

	_, err = orch.RunIncident(context.Background(), types.Incident{ID: "inc-0001", Summary: "cpu"})
	require.ErrorIs(t, err, index.ErrIndexNotBuilt)
}

func testIncidents(n int) []types.Incident {
	summaries := []string{"Interface down detected", "High packet loss observed", "CPU utilization high"}

	incidents := make([]types.Incident, 0, n)
	for i := range n {
		incidents = append(incidents, types.Incident{
			ID:            fmt.Sprintf("inc-%04d", i+1),
			Interface:     "GigabitEthernet0/1",
			Gateway:       "10.0.0.1",
			Summary:       summaries[i%len(summaries)],
			Severity:      types.Severity(i%3 + 1),
			ShouldFail:    i%4 == 0,
			FailureReason: "gateway unreachable after remediation",
		})
	}

	return incidents
}

func testCorpus() []types.Runbook {
	return []types.Runbook{
		{ID: "rb-002", Title: "Interface Down", Commands: []string{"show interface {if}", "interface {if} ; shutdown ; no shutdown"}},
		{ID: "rb-003", Title: "High Packet Loss", Commands: []string{"ping {gw} count 5", "show interface {if} counters"}},
		{ID: "rb-004", Title: "CPU Utilization High", Commands: []string{"show process cpu"}},
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	incidents := testIncidents(25)

	sequential := &memorySink{}
	seqReport, err := newOrchestrator(t, testCorpus(), nil, sequential, 1).Run(context.Background(), incidents)
	require.NoError(t, err)

	for _, workers := range []int{2, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			sink := &memorySink{}

			report, err := newOrchestrator(t, testCorpus(), nil, sink, workers).Run(context.Background(), incidents)
			require.NoError(t, err)
			require.Len(t, report.Tickets, len(incidents))

			for i, ticket := range report.Tickets {
				assert.Equal(t, incidents[i].ID, ticket.IncidentID)
			}

			assert.Equal(t, seqReport.Tickets, report.Tickets)
			assert.Equal(t, report.Tickets, sink.tickets)
			assert.NotEqual(t, seqReport.RunID, report.RunID)
		})
	}
}

func TestRunMatchesBySummary(t *testing.T) {
	report, err := newOrchestrator(t, testCorpus(), nil, nil, 1).Run(context.Background(), testIncidents(3))
	require.NoError(t, err)

	got := make([]string, 0, len(report.Tickets))
	for _, ticket := range report.Tickets {
		got = append(got, ticket.RunbookID)
	}

	assert.Equal(t, []string{"rb-002", "rb-003", "rb-004"}, got)
}

func TestRunSinkError(t *testing.T) {
	sinkErr := errors.New("disk full")

	_, err := newOrchestrator(t, testCorpus(), nil, &memorySink{err: sinkErr}, 2).Run(context.Background(), testIncidents(3))
	require.ErrorIs(t, err, sinkErr)
}

func TestRunEmptyIncidents(t *testing.T) {
	report, err := newOrchestrator(t, testCorpus(), nil, nil, 4).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Tickets)
	assert.Equal(t, Summary{}, report.Summary())
}

func TestReportSummary(t *testing.T) {
	report := &Report{Tickets: []types.Ticket{
		{ValidationPassed: true},
		{ValidationPassed: true, Escalated: true},
		{ValidationPassed: false, Escalated: true},
	}}

	assert.Equal(t, Summary{Total: 3, Passed: 2, Failed: 1, Escalated: 2}, report.Summary())
}

func TestEscalationLawAcrossRun(t *testing.T) {
	incidents := testIncidents(12)

	report, err := newOrchestrator(t, testCorpus(), nil, nil, 3).Run(context.Background(), incidents)
	require.NoError(t, err)

	for i, ticket := range report.Tickets {
		want := !ticket.ValidationPassed || incidents[i].Severity == types.SeverityHigh
		assert.Equal(t, want, ticket.Escalated, incidents[i].ID)
		assert.Equal(t, !incidents[i].ShouldFail, ticket.ValidationPassed, incidents[i].ID)
	}
}

func TestWorkflowRun(t *testing.T) {
	ctx := context.Background()
	log := quietLogger()

	cfg := config.Default()
	cfg.Run.IncidentCount = 5
	cfg.Run.Workers = 2
	cfg.Run.FailureRate = 0.5
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "netops.db")

	st, err := store.Open(ctx, log, cfg.Storage.DBPath)
	require.NoError(t, err)
	defer st.Close()

	rec := &observability.Recorder{}

	report, err := New(log, cfg, st, rec).Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Tickets, 5)

	tickets, err := st.Tickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Tickets, tickets)

	counts, err := st.TableCounts(ctx)
	require.NoError(t, err)

	rows := make(map[string]int, len(counts))
	for _, c := range counts {
		rows[c.Table] = c.Rows
	}

	assert.Equal(t, 6, rows["devices"])
	assert.Equal(t, 18, rows["interfaces"])
	assert.Equal(t, 5, rows["incidents"])
	assert.Equal(t, 4, rows["runbooks"])
	assert.Equal(t, 5, rows["tickets"])

	assert.Contains(t, rec.Messages(), observability.EventMatchFound)

	// Same seed, same tickets.
	again, err := New(log, cfg, st, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Tickets, again.Tickets)
}
