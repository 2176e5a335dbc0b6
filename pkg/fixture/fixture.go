// Package fixture generates deterministic synthetic devices, interfaces and
// incidents for local runs.
package fixture

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ethpandaops/netops/pkg/types"
)

var (
	sites      = []string{"blr", "lhr", "iad", "sin"}
	osVersions = []string{"ios-xe 17.9", "ios-xe 17.6", "nx-os 10.2"}
	severities = []types.Severity{types.SeverityLow, types.SeverityMedium, types.SeverityHigh}
	statuses   = []string{"up", "up", "down"}

	failureReasons = []string{
		"interface still flapping after reset",
		"gateway unreachable after remediation",
		"error counters still increasing",
		"cpu utilization above threshold",
	}
)

// DefaultGateway is the gateway address assigned to synthetic incidents.
const DefaultGateway = "10.0.0.1"

// IncidentOptions controls incident generation.
type IncidentOptions struct {
	// Count is the number of incidents; it is capped at the number of interfaces.
	Count int
	// FailureRate is the fraction of incidents marked for injected validation failure.
	FailureRate float64
}

// Set is a complete generated fixture.
type Set struct {
	Devices    []types.Device
	Interfaces []types.Interface
	Incidents  []types.Incident
}

// Generate builds devices, interfaces and incidents from one seed.
func Generate(seed uint64, deviceCount int, opts IncidentOptions) Set {
	devices := Devices(seed, deviceCount)
	interfaces := Interfaces(seed, devices)

	return Set{
		Devices:    devices,
		Interfaces: interfaces,
		Incidents:  Incidents(seed, interfaces, opts),
	}
}

func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Devices generates count devices.
func Devices(seed uint64, count int) []types.Device {
	rng := newRand(seed, 1)

	devices := make([]types.Device, 0, count)
	for i := 1; i <= count; i++ {
		devices = append(devices, types.Device{
			ID:        fmt.Sprintf("dev-%03d", i),
			Hostname:  fmt.Sprintf("core-%s-%02d", pick(rng, sites), i),
			Site:      pick(rng, sites),
			OSVersion: pick(rng, osVersions),
		})
	}

	return devices
}

// Interfaces generates three interfaces per device.
func Interfaces(seed uint64, devices []types.Device) []types.Interface {
	rng := newRand(seed, 2)

	interfaces := make([]types.Interface, 0, 3*len(devices))
	for _, dev := range devices {
		for i := 1; i <= 3; i++ {
			interfaces = append(interfaces, types.Interface{
				DeviceID:   dev.ID,
				Name:       fmt.Sprintf("GigabitEthernet0/%d", i),
				Status:     pick(rng, statuses),
				PacketLoss: round2(rng.Float64() * 15),
				ErrorRate:  round2(rng.Float64() * 2),
			})
		}
	}

	return interfaces
}

// Incidents samples interfaces without replacement and describes each one by
// its worst symptom: down, packet loss above 8%, or otherwise high CPU.
func Incidents(seed uint64, interfaces []types.Interface, opts IncidentOptions) []types.Incident {
	rng := newRand(seed, 3)

	count := min(opts.Count, len(interfaces))
	if count <= 0 {
		return nil
	}

	sample := rng.Perm(len(interfaces))[:count]

	incidents := make([]types.Incident, 0, count)
	for i, idx := range sample {
		iface := interfaces[idx]

		summary, category := describe(iface)

		inc := types.Incident{
			ID:        fmt.Sprintf("inc-%04d", i+1),
			DeviceID:  iface.DeviceID,
			Interface: iface.Name,
			Summary:   summary,
			Category:  category,
			Severity:  pick(rng, severities),
			Gateway:   DefaultGateway,
		}

		if opts.FailureRate > 0 && rng.Float64() < opts.FailureRate {
			inc.ShouldFail = true
			inc.FailureReason = pick(rng, failureReasons)
		}

		incidents = append(incidents, inc)
	}

	return incidents
}

func describe(iface types.Interface) (summary, category string) {
	switch {
	case iface.Status == "down":
		return "Interface down detected", "interfaces"
	case iface.PacketLoss > 8:
		return "High packet loss observed", "connectivity"
	default:
		return "CPU utilization high", "system"
	}
}
