// Package defaults provides default values for the netops CLI and config.
package defaults

const (
	// Seed is the default fixture seed.
	Seed = 42
	// DeviceCount is the default number of synthetic devices.
	DeviceCount = 6
	// IncidentCount is the default number of incidents per run.
	IncidentCount = 3

	// DBPath is the default SQLite database location.
	DBPath = "outputs/netops.db"

	// SearchLimit is the default number of runbook search results.
	SearchLimit = 3

	// ServerHost and ServerPort are the default HTTP listen address.
	ServerHost = "0.0.0.0"
	ServerPort = 2580
)
