// Package action provides the catalog of remediation actions that a plan can
// run against a device. The built-in catalog is a simulator: every action
// derives its command from the incident and returns a canned output without
// touching the network.
package action

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethpandaops/netops/pkg/types"
)

// Canonical action names.
const (
	ShowInterface         types.ActionName = "show_interface"
	ShowInterfaceCounters types.ActionName = "show_interface_counters"
	PingGateway           types.ActionName = "ping_gateway"
	ResetInterface        types.ActionName = "reset_interface"
	ShowProcessCPU        types.ActionName = "show_process_cpu"
)

// ErrUnknownAction is returned when an action name has no registered handler.
var ErrUnknownAction = errors.New("unknown action")

// Handler produces the outcome of an action for an incident.
type Handler func(incident types.Incident) types.ActionOutcome

// Executor runs named actions against the device an incident refers to.
// A real device transport implements this interface.
type Executor interface {
	Execute(ctx context.Context, name types.ActionName, incident types.Incident) (types.ActionOutcome, error)
}

// Catalog is a dispatch table from action name to handler.
// Register all handlers before sharing a catalog between goroutines.
type Catalog struct {
	handlers map[types.ActionName]Handler
}

// NewCatalog returns a catalog with the canonical simulated actions registered.
func NewCatalog() *Catalog {
	c := &Catalog{handlers: make(map[types.ActionName]Handler, 5)}

	c.Register(ShowInterface, showInterface)
	c.Register(ShowInterfaceCounters, showInterfaceCounters)
	c.Register(PingGateway, pingGateway)
	c.Register(ResetInterface, resetInterface)
	c.Register(ShowProcessCPU, showProcessCPU)

	return c
}

// Register adds or replaces the handler for name.
func (c *Catalog) Register(name types.ActionName, handler Handler) {
	c.handlers[name] = handler
}

// Names returns the registered action names in sorted order.
func (c *Catalog) Names() []types.ActionName {
	names := make([]types.ActionName, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Execute runs the action registered under name.
func (c *Catalog) Execute(_ context.Context, name types.ActionName, incident types.Incident) (types.ActionOutcome, error) {
	handler, ok := c.handlers[name]
	if !ok {
		return types.ActionOutcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	return handler(incident), nil
}

func showInterface(incident types.Incident) types.ActionOutcome {
	return types.ActionOutcome{
		Command: "show interface " + incident.Interface,
		Output:  incident.Interface + " is up with healthy counters",
	}
}

func showInterfaceCounters(incident types.Incident) types.ActionOutcome {
	return types.ActionOutcome{
		Command: "show interface " + incident.Interface + " counters",
		Output:  "Errors: 0, Drops: 1",
	}
}

func pingGateway(incident types.Incident) types.ActionOutcome {
	return types.ActionOutcome{
		Command: "ping " + incident.Gateway + " count 5",
		Output:  "Success rate 100 percent",
	}
}

func resetInterface(incident types.Incident) types.ActionOutcome {
	return types.ActionOutcome{
		Command: "interface " + incident.Interface + " ; shutdown ; no shutdown",
		Output:  "Interface reset completed",
	}
}

func showProcessCPU(_ types.Incident) types.ActionOutcome {
	return types.ActionOutcome{
		Command: "show process cpu",
		Output:  "CPU utilization 45%",
	}
}
