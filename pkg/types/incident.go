// Package types holds the data model shared by the netops components.
package types

import (
	"fmt"
	"strings"
)

// Severity is the ordered severity of an incident.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

var severityNames = map[Severity]string{
	SeverityLow:    "low",
	SeverityMedium: "medium",
	SeverityHigh:   "high",
}

// ParseSeverity parses "low", "medium" or "high" (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	for sev, name := range severityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return sev, nil
		}
	}

	return 0, fmt.Errorf("unknown severity %q", s)
}

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}

	return fmt.Sprintf("severity(%d)", int(s))
}

// AtLeast reports whether s is equal to or more severe than other.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Device is a network device known to the fixture collaborator.
type Device struct {
	ID        string `json:"device_id"`
	Hostname  string `json:"hostname"`
	Site      string `json:"site"`
	OSVersion string `json:"os_version"`
}

// Interface is a device interface with its last observed health.
type Interface struct {
	DeviceID   string  `json:"device_id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	PacketLoss float64 `json:"packet_loss"`
	ErrorRate  float64 `json:"error_rate"`
}

// Incident is a detected operational anomaly on a device interface.
// ShouldFail and FailureReason are reserved for synthetic fault injection.
type Incident struct {
	ID            string   `json:"incident_id"`
	DeviceID      string   `json:"device_id"`
	Interface     string   `json:"interface"`
	Summary       string   `json:"summary"`
	Category      string   `json:"category"`
	Severity      Severity `json:"severity"`
	Gateway       string   `json:"gateway"`
	ShouldFail    bool     `json:"should_fail"`
	FailureReason string   `json:"failure_reason,omitempty"`
}
