// Package planner maps runbook commands to catalog actions.
package planner

import (
	"strings"

	"github.com/ethpandaops/netops/pkg/action"
	"github.com/ethpandaops/netops/pkg/types"
)

// Rule classifies a runbook command into an action.
type Rule struct {
	Action      types.ActionName
	Description string
	Match       func(command string) bool
}

func contains(sub string) func(string) bool {
	return func(command string) bool { return strings.Contains(command, sub) }
}

// DefaultRules are evaluated in order; the first matching rule wins.
var DefaultRules = []Rule{
	{
		Action:      action.ShowInterface,
		Description: "Check interface status",
		Match: func(command string) bool {
			return strings.Contains(command, "show interface") && !strings.Contains(command, "counters")
		},
	},
	{Action: action.ShowInterfaceCounters, Description: "Check interface counters", Match: contains("counters")},
	{Action: action.PingGateway, Description: "Ping gateway", Match: contains("ping")},
	{Action: action.ResetInterface, Description: "Reset interface", Match: contains("shutdown")},
	{Action: action.ShowProcessCPU, Description: "Check CPU", Match: contains("process cpu")},
}

// Planner derives plans from runbooks. The zero value uses DefaultRules.
type Planner struct {
	rules []Rule
}

// New returns a planner using rules, or DefaultRules when none are given.
func New(rules ...Rule) *Planner {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	return &Planner{rules: rules}
}

// Plan returns one step per recognized runbook command, in command order.
// Commands that match no rule are dropped.
func (p *Planner) Plan(_ types.Incident, runbook types.Runbook) []types.PlanStep {
	rules := p.rules
	if len(rules) == 0 {
		rules = DefaultRules
	}

	plan := make([]types.PlanStep, 0, len(runbook.Commands))

	for _, command := range runbook.Commands {
		if rule, ok := classify(rules, command); ok {
			plan = append(plan, types.PlanStep{Description: rule.Description, Action: rule.Action})
		}
	}

	return plan
}

func classify(rules []Rule, command string) (Rule, bool) {
	for _, rule := range rules {
		if rule.Match(command) {
			return rule, true
		}
	}

	return Rule{}, false
}
