package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/netops/pkg/action"
	"github.com/ethpandaops/netops/pkg/types"
)

func TestPlanAllRules(t *testing.T) {
	runbook := types.Runbook{
		ID: "rb-all",
		Commands: []string{
			"show interface Gi0/1",
			"show interface Gi0/1 counters",
			"ping 10.0.0.1 count 5",
			"interface Gi0/1 ; shutdown ; no shutdown",
			"show process cpu",
			"unknown command",
		},
	}

	plan := New().Plan(types.Incident{}, runbook)
	require.Len(t, plan, 5)

	want := []types.ActionName{
		action.ShowInterface,
		action.ShowInterfaceCounters,
		action.PingGateway,
		action.ResetInterface,
		action.ShowProcessCPU,
	}
	for i, step := range plan {
		assert.Equal(t, want[i], step.Action)
		assert.NotEmpty(t, step.Description)
	}
}

func TestPlanClassification(t *testing.T) {
	tests := []struct {
		command string
		want    types.ActionName
		dropped bool
	}{
		{command: "show interface {if}", want: action.ShowInterface},
		{command: "show interface {if} counters", want: action.ShowInterfaceCounters},
		{command: "clear counters", want: action.ShowInterfaceCounters},
		{command: "ping {gw} count 5", want: action.PingGateway},
		{command: "shutdown", want: action.ResetInterface},
		{command: "show process cpu sorted", want: action.ShowProcessCPU},
		{command: "show version", dropped: true},
		{command: "", dropped: true},
	}

	p := New()

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			plan := p.Plan(types.Incident{}, types.Runbook{Commands: []string{tt.command}})
			if tt.dropped {
				assert.Empty(t, plan)
				return
			}

			require.Len(t, plan, 1)
			assert.Equal(t, tt.want, plan[0].Action)
		})
	}
}

func TestPlanDeterministic(t *testing.T) {
	runbook := types.Runbook{Commands: []string{"ping {gw} count 5", "show interface {if}", "ping again"}}
	incident := types.Incident{ID: "inc-0001", Interface: "Gi0/1"}

	var zero Planner

	first := zero.Plan(incident, runbook)
	second := New().Plan(incident, runbook)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestPlanCustomRules(t *testing.T) {
	p := New(Rule{Action: "trace_route", Description: "Trace route", Match: contains("traceroute")})

	plan := p.Plan(types.Incident{}, types.Runbook{Commands: []string{"traceroute {gw}", "show interface x"}})
	require.Len(t, plan, 1)
	assert.Equal(t, types.ActionName("trace_route"), plan[0].Action)
}
