package runbooks

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/netops/pkg/types"
)

// Registry holds loaded runbooks in corpus order. It is read-only after
// construction.
type Registry struct {
	runbooks []types.Runbook
	byID     map[string]*types.Runbook
}

// NewRegistry loads runbooks from path, or the embedded corpus when path is empty.
func NewRegistry(log logrus.FieldLogger, path string) (*Registry, error) {
	log = log.WithField("component", "runbook_registry")

	var (
		runbooks []types.Runbook
		err      error
	)

	if path == "" {
		runbooks, err = Load()
	} else {
		runbooks, err = LoadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("loading runbooks: %w", err)
	}

	reg := NewRegistryFrom(runbooks)

	log.WithFields(logrus.Fields{
		"runbook_count": reg.Count(),
		"source":        sourceName(path),
	}).Info("Runbook registry loaded")

	return reg, nil
}

// NewRegistryFrom wraps an already loaded set of runbooks.
func NewRegistryFrom(runbooks []types.Runbook) *Registry {
	rbs := append([]types.Runbook(nil), runbooks...)

	byID := make(map[string]*types.Runbook, len(rbs))
	for i := range rbs {
		byID[rbs[i].ID] = &rbs[i]
	}

	return &Registry{runbooks: rbs, byID: byID}
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}

	return path
}

// All returns all runbooks in corpus order.
func (r *Registry) All() []types.Runbook {
	result := make([]types.Runbook, len(r.runbooks))
	copy(result, r.runbooks)

	return result
}

// Get returns a runbook by ID, or nil if not found.
func (r *Registry) Get(id string) *types.Runbook {
	return r.byID[id]
}

// Count returns the number of loaded runbooks.
func (r *Registry) Count() int {
	return len(r.runbooks)
}

// Categories returns the sorted unique categories across all runbooks.
func (r *Registry) Categories() []string {
	set := make(map[string]struct{})
	for _, rb := range r.runbooks {
		set[rb.Category] = struct{}{}
	}

	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}

	sort.Strings(categories)

	return categories
}
