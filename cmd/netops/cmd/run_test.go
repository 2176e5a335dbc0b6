package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/observability"
)

func newRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	c := &cobra.Command{Use: "run"}
	c.Flags().Uint64Var(&runSeed, "seed", 0, "")
	c.Flags().StringVar(&runDBPath, "db-path", "", "")
	c.Flags().StringVar(&runLogPath, "log-path", "", "")
	c.Flags().IntVar(&runWorkers, "workers", 0, "")
	c.Flags().IntVar(&runIncidents, "incidents", 0, "")
	c.Flags().Float64Var(&runFailureRate, "failure-rate", 0, "")
	require.NoError(t, c.Flags().Parse(args))

	return c
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, applyRunFlags(newRunFlags(t, "--seed", "7", "--workers", "4", "--failure-rate", "0.25"), cfg))
	assert.Equal(t, uint64(7), cfg.Run.Seed)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, 0.25, cfg.Run.FailureRate)
	assert.Equal(t, config.Default().Storage.DBPath, cfg.Storage.DBPath)
}

func TestApplyRunFlagsLogPath(t *testing.T) {
	cfg := config.Default()
	assert.Empty(t, cfg.Run.LogPath, "event log file is opt-in")

	cfg.Run.LogPath = "outputs/from-config.jsonl"
	require.NoError(t, applyRunFlags(newRunFlags(t), cfg))
	assert.Equal(t, "outputs/from-config.jsonl", cfg.Run.LogPath)

	require.NoError(t, applyRunFlags(newRunFlags(t, "--log-path", "outputs/events.jsonl"), cfg))
	assert.Equal(t, "outputs/events.jsonl", cfg.Run.LogPath)

	require.NoError(t, applyRunFlags(newRunFlags(t, "--log-path", ""), cfg))
	assert.Empty(t, cfg.Run.LogPath)
}

func TestApplyRunFlagsValidates(t *testing.T) {
	require.Error(t, applyRunFlags(newRunFlags(t, "--failure-rate", "2"), config.Default()))
	require.Error(t, applyRunFlags(newRunFlags(t, "--workers", "0"), config.Default()))
}

func TestEventLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")

	emitter, closeLog, err := eventLog(path)
	require.NoError(t, err)

	emitter.Emit(observability.Event{
		Level:   logrus.InfoLevel,
		Message: observability.EventMatchFound,
		Fields:  logrus.Fields{"incident_id": "inc-0001"},
	})
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"match.found"`)
	assert.Contains(t, string(data), `"incident_id":"inc-0001"`)
}
