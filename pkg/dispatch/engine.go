// Package dispatch runs plans against the action executor and turns the
// outcomes into a ticket with a validation verdict and escalation decision.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/netops/pkg/action"
	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/types"
)

// Validation reasons recorded on tickets.
const (
	ReasonPassed = "All validation checks passed"
	ReasonFailed = "Validation failed"
)

// Engine executes plans. It holds no per-incident state and is safe for
// concurrent use when its executor is.
type Engine struct {
	executor action.Executor
	events   observability.Emitter
}

// NewEngine creates an engine. A nil emitter discards events.
func NewEngine(executor action.Executor, events observability.Emitter) *Engine {
	if events == nil {
		events = observability.Discard
	}

	return &Engine{executor: executor, events: events}
}

// Execute runs every plan step in order and builds the ticket. A failing
// step is skipped and never aborts the plan.
func (e *Engine) Execute(ctx context.Context, incident types.Incident, match index.Match, plan []types.PlanStep) types.Ticket {
	actions := make([]string, 0, len(plan))

	for i, step := range plan {
		fields := logrus.Fields{
			"incident_id": incident.ID,
			"step":        i + 1,
			"action":      step.Action,
			"description": step.Description,
		}

		e.events.Emit(observability.Event{Level: logrus.InfoLevel, Message: observability.EventPlanStep, Fields: fields})

		outcome, err := e.executor.Execute(ctx, step.Action, incident)
		if err != nil {
			skipped := logrus.Fields{"error": err.Error(), "unknown_action": errors.Is(err, action.ErrUnknownAction)}
			for k, v := range fields {
				skipped[k] = v
			}

			e.events.Emit(observability.Event{Level: logrus.WarnLevel, Message: observability.EventStepSkipped, Fields: skipped})

			continue
		}

		actions = append(actions, outcome.String())
	}

	passed, reason := validate(incident)
	escalated, escalationReason := escalate(incident, passed)

	e.events.Emit(observability.Event{
		Level:   logrus.InfoLevel,
		Message: observability.EventValidationVerdict,
		Fields: logrus.Fields{
			"incident_id": incident.ID,
			"passed":      passed,
			"reason":      reason,
		},
	})

	e.events.Emit(observability.Event{
		Level:   escalationLevel(escalated),
		Message: observability.EventEscalationDecision,
		Fields: logrus.Fields{
			"incident_id": incident.ID,
			"escalated":   escalated,
			"reason":      escalationReason,
			"severity":    incident.Severity.String(),
		},
	})

	observability.TicketsTotal.WithLabelValues(verdictLabel(passed)).Inc()

	if escalated {
		observability.EscalationsTotal.WithLabelValues(escalationReason).Inc()
	}

	return types.Ticket{
		IncidentID:       incident.ID,
		RunbookID:        match.Runbook.ID,
		Actions:          actions,
		ValidationPassed: passed,
		ValidationReason: reason,
		Escalated:        escalated,
		Notes:            fmt.Sprintf("Matched runbook %s (score %.2f).", match.Runbook.Title, match.Score),
		Score:            match.Score,
	}
}

// validate passes unless a failure was injected into the incident.
func validate(incident types.Incident) (bool, string) {
	if !incident.ShouldFail {
		return true, ReasonPassed
	}

	if incident.FailureReason != "" {
		return false, ReasonFailed + ": " + incident.FailureReason
	}

	return false, ReasonFailed
}

// escalate flags tickets whose validation failed or whose incident is high severity.
func escalate(incident types.Incident, passed bool) (bool, string) {
	switch {
	case !passed:
		return true, "validation_failed"
	case incident.Severity.AtLeast(types.SeverityHigh):
		return true, "high_severity"
	default:
		return false, ""
	}
}

func escalationLevel(escalated bool) logrus.Level {
	if escalated {
		return logrus.WarnLevel
	}

	return logrus.InfoLevel
}

func verdictLabel(passed bool) string {
	if passed {
		return "passed"
	}

	return "failed"
}
