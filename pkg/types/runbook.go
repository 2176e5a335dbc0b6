package types

import "strings"

// Runbook represents a remediation procedure for a class of incidents.
// Steps are written for humans, Commands are the device commands the
// procedure issues, and Validation lists the checks that confirm success.
type Runbook struct {
	// ID is the stable identifier of the runbook (e.g., "rb-001").
	ID string `yaml:"id" json:"id"`
	// Title is the short name of the runbook (e.g., "Interface Flapping").
	Title string `yaml:"title" json:"title"`
	// Category groups runbooks by incident class (e.g., "interfaces").
	Category string `yaml:"category" json:"category"`
	// Steps are the human-readable remediation steps.
	Steps []string `yaml:"steps" json:"steps"`
	// Commands are the device commands issued by the runbook, in order.
	Commands []string `yaml:"commands" json:"commands"`
	// Validation lists the assertions that confirm remediation.
	Validation []string `yaml:"validation" json:"validation"`
}

// SearchText returns the text indexed for similarity matching:
// title, category, steps and commands joined by spaces.
func (r Runbook) SearchText() string {
	parts := make([]string, 0, 2+len(r.Steps)+len(r.Commands))
	parts = append(parts, r.Title, r.Category)
	parts = append(parts, r.Steps...)
	parts = append(parts, r.Commands...)

	return strings.Join(parts, " ")
}

// Content returns the stored body of the runbook: title, steps and commands
// on separate lines.
func (r Runbook) Content() string {
	parts := make([]string, 0, 1+len(r.Steps)+len(r.Commands))
	parts = append(parts, r.Title)
	parts = append(parts, r.Steps...)
	parts = append(parts, r.Commands...)

	return strings.Join(parts, "\n")
}
