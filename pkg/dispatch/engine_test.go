package dispatch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/netops/pkg/action"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/types"
)

func testMatch() index.Match {
	return index.Match{
		Runbook: types.Runbook{ID: "rb-001", Title: "Interface Flapping"},
		Score:   0.4567,
	}
}

func testIncident(sev types.Severity, shouldFail bool, reason string) types.Incident {
	return types.Incident{
		ID:            "inc-0001",
		Interface:     "Gi0/1",
		Gateway:       "10.0.0.1",
		Severity:      sev,
		ShouldFail:    shouldFail,
		FailureReason: reason,
	}
}

func TestExecuteTrace(t *testing.T) {
	rec := &observability.Recorder{}
	engine := NewEngine(action.NewCatalog(), rec)

	plan := []types.PlanStep{
		{Description: "Check interface status", Action: action.ShowInterface},
		{Description: "Bogus", Action: "reboot_device"},
		{Description: "Ping gateway", Action: action.PingGateway},
	}

	ticket := engine.Execute(context.Background(), testIncident(types.SeverityLow, false, ""), testMatch(), plan)

	assert.Equal(t, "inc-0001", ticket.IncidentID)
	assert.Equal(t, "rb-001", ticket.RunbookID)
	assert.Equal(t, []string{
		"show interface Gi0/1 -> Gi0/1 is up with healthy counters",
		"ping 10.0.0.1 count 5 -> Success rate 100 percent",
	}, ticket.Actions)
	assert.Equal(t, "Matched runbook Interface Flapping (score 0.46).", ticket.Notes)
	assert.True(t, ticket.ValidationPassed)
	assert.Equal(t, ReasonPassed, ticket.ValidationReason)
	assert.False(t, ticket.Escalated)

	assert.Equal(t, []string{
		observability.EventPlanStep,
		observability.EventPlanStep,
		observability.EventStepSkipped,
		observability.EventPlanStep,
		observability.EventValidationVerdict,
		observability.EventEscalationDecision,
	}, rec.Messages())
}

func TestEscalationLaw(t *testing.T) {
	engine := NewEngine(action.NewCatalog(), nil)

	for _, sev := range []types.Severity{types.SeverityLow, types.SeverityMedium, types.SeverityHigh} {
		for _, fail := range []bool{false, true} {
			ticket := engine.Execute(context.Background(), testIncident(sev, fail, ""), testMatch(), nil)

			assert.Equal(t, !fail, ticket.ValidationPassed)
			assert.Equal(t, !ticket.ValidationPassed || sev == types.SeverityHigh, ticket.Escalated,
				"severity=%s should_fail=%v", sev, fail)
		}
	}
}

func TestValidationReasons(t *testing.T) {
	tests := []struct {
		name       string
		incident   types.Incident
		wantPassed bool
		wantReason string
	}{
		{name: "pass", incident: testIncident(types.SeverityLow, false, ""), wantPassed: true, wantReason: ReasonPassed},
		{name: "fail without reason", incident: testIncident(types.SeverityLow, true, ""), wantReason: ReasonFailed},
		{
			name:       "fail with reason",
			incident:   testIncident(types.SeverityLow, true, "interface still flapping"),
			wantReason: "Validation failed: interface still flapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, reason := validate(tt.incident)
			assert.Equal(t, tt.wantPassed, passed)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	ticket := NewEngine(action.NewCatalog(), nil).Execute(context.Background(), testIncident(types.SeverityMedium, false, ""), testMatch(), nil)

	require.NotNil(t, ticket.Actions)
	assert.Empty(t, ticket.Actions)
}

func TestExecuteMetrics(t *testing.T) {
	before := testutil.ToFloat64(observability.EscalationsTotal.WithLabelValues("high_severity"))

	NewEngine(action.NewCatalog(), nil).Execute(context.Background(), testIncident(types.SeverityHigh, false, ""), testMatch(), nil)

	after := testutil.ToFloat64(observability.EscalationsTotal.WithLabelValues("high_severity"))
	assert.Equal(t, before+1, after)
}
