package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/store"
)

// loadConfigOrDefaults loads config from file if provided, otherwise returns
// the built-in defaults.
func loadConfigOrDefaults(cfgPath string) (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return config.Load(envPath)
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return config.Load("config.yaml")
	}

	return config.Default(), nil
}

func openStore(ctx context.Context, path string) (*store.Store, error) {
	st, err := store.Open(ctx, log, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	return st, nil
}

// outputJSON marshals a value to JSON and prints it to stdout.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	fmt.Println(string(data))

	return nil
}

// isTerminal returns true if stdout is a terminal (TTY).
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// suppressLogs sends logs to stderr at warn level unless debugging, so
// command output stays clean.
func suppressLogs() {
	if log.GetLevel() < logrus.DebugLevel {
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.WarnLevel)
	}
}
