// Package runbooks provides the remediation runbook corpus.
package runbooks

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/netops/pkg/types"
)

//go:embed runbooks.yaml
var embeddedRunbooks []byte

// document is the on-disk layout of a runbook file.
type document struct {
	Runbooks []types.Runbook `yaml:"runbooks"`
}

// Load parses the embedded runbook corpus.
func Load() ([]types.Runbook, error) {
	return Parse(embeddedRunbooks)
}

// LoadFile parses runbooks from a YAML file on disk.
func LoadFile(path string) ([]types.Runbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading runbook file %s: %w", path, err)
	}

	runbooks, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing runbook file %s: %w", path, err)
	}

	return runbooks, nil
}

// Parse decodes a runbook document and validates each runbook.
func Parse(data []byte) ([]types.Runbook, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling runbooks: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Runbooks))

	for i, rb := range doc.Runbooks {
		if err := validate(rb); err != nil {
			return nil, fmt.Errorf("runbook %d: %w", i, err)
		}

		if _, dup := seen[rb.ID]; dup {
			return nil, fmt.Errorf("duplicate runbook id %q", rb.ID)
		}

		seen[rb.ID] = struct{}{}
	}

	return doc.Runbooks, nil
}

func validate(rb types.Runbook) error {
	switch {
	case rb.ID == "":
		return errors.New("runbook must have an id")
	case rb.Title == "":
		return fmt.Errorf("runbook %s must have a title", rb.ID)
	case len(rb.Commands) == 0:
		return fmt.Errorf("runbook %s must have at least one command", rb.ID)
	}

	return nil
}
