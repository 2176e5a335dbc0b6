package types

// ActionName identifies an action in the action catalog.
type ActionName string

// PlanStep is one executable step derived from a runbook command.
type PlanStep struct {
	Description string     `json:"description"`
	Action      ActionName `json:"action"`
}

// ActionOutcome is the result of a single action invocation.
type ActionOutcome struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// String renders the outcome as a trace entry.
func (o ActionOutcome) String() string {
	return o.Command + " -> " + o.Output
}

// Ticket is the outcome record of running a plan against an incident.
// A ticket is created once and never modified afterwards.
type Ticket struct {
	IncidentID       string   `json:"incident_id"`
	RunbookID        string   `json:"runbook_id"`
	Actions          []string `json:"actions"`
	ValidationPassed bool     `json:"validation_passed"`
	ValidationReason string   `json:"validation_reason"`
	Escalated        bool     `json:"escalated"`
	Notes            string   `json:"notes"`
	Score            float64  `json:"score"`
}
