package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/netops/pkg/config"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/workflow"
)

// RunResult is the JSON output format for the run command.
type RunResult struct {
	*workflow.Report
	Summary workflow.Summary `json:"summary"`
	DBPath  string           `json:"db_path"`
}

var (
	runSeed        uint64
	runDBPath      string
	runLogPath     string
	runWorkers     int
	runIncidents   int
	runFailureRate float64
	runJSON        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the remediation workflow over synthetic incidents",
	Long: `Generate synthetic devices and incidents, index the runbooks, and run
every incident through match, plan, execute, validate and escalate. Tickets
are written to the SQLite database.

Workflow events always go to the console logger. Writing them to a JSON
lines file is opt-in: pass --log-path or set run.log_path in the config.
Use --log-level warn to quiet the console.

Examples:
  netops run
  netops run --seed 7 --failure-rate 0.3 --workers 4
  netops run --log-path outputs/events.jsonl --json`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Fixture seed (default from config)")
	runCmd.Flags().StringVar(&runDBPath, "db-path", "", "SQLite database path (default from config)")
	runCmd.Flags().StringVar(&runLogPath, "log-path", "", "Also write workflow events as JSON lines to this file (default from config, off when empty)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Incidents processed concurrently (default from config)")
	runCmd.Flags().IntVar(&runIncidents, "incidents", 0, "Number of incidents (default from config)")
	runCmd.Flags().Float64Var(&runFailureRate, "failure-rate", 0, "Fraction of incidents with injected validation failure")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Force JSON output")
}

// applyRunFlags overrides config values with flags the user set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("seed") {
		cfg.Run.Seed = runSeed
	}

	if flags.Changed("db-path") {
		cfg.Storage.DBPath = runDBPath
	}

	if flags.Changed("log-path") {
		cfg.Run.LogPath = runLogPath
	}

	if flags.Changed("workers") {
		cfg.Run.Workers = runWorkers
	}

	if flags.Changed("incidents") {
		cfg.Run.IncidentCount = runIncidents
	}

	if flags.Changed("failure-rate") {
		cfg.Run.FailureRate = runFailureRate
	}

	return cfg.Validate()
}

// eventLog opens path for JSON event output. The returned func closes it.
func eventLog(path string) (observability.Emitter, func() error, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening event log: %w", err)
	}

	fileLog := logrus.New()
	fileLog.SetOutput(f)
	fileLog.SetLevel(logrus.DebugLevel)
	fileLog.SetFormatter(&logrus.JSONFormatter{})

	return observability.NewLogEmitter(fileLog), f.Close, nil
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfigOrDefaults(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	jsonOut := runJSON || !isTerminal()
	if jsonOut {
		suppressLogs()
	}

	events := observability.Multi{observability.NewLogEmitter(log)}

	if cfg.Run.LogPath != "" {
		fileEvents, closeLog, err := eventLog(cfg.Run.LogPath)
		if err != nil {
			return err
		}

		defer func() { _ = closeLog() }()

		events = append(events, fileEvents)
	}

	st, err := openStore(ctx, cfg.Storage.DBPath)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	report, err := workflow.New(log, cfg, st, events).Run(ctx)
	if err != nil {
		return fmt.Errorf("running workflow: %w", err)
	}

	result := RunResult{Report: report, Summary: report.Summary(), DBPath: cfg.Storage.DBPath}

	if jsonOut {
		return outputJSON(result)
	}

	for _, t := range report.Tickets {
		verdict := "PASS"
		if !t.ValidationPassed {
			verdict = "FAIL"
		}

		escalation := ""
		if t.Escalated {
			escalation = " [escalated]"
		}

		fmt.Printf("%s  %-7s %s  %s%s\n", t.IncidentID, t.RunbookID, verdict, t.ValidationReason, escalation)

		for _, a := range t.Actions {
			fmt.Printf("    %s\n", a)
		}
	}

	fmt.Printf("\nRun %s: %d tickets, %d passed, %d failed, %d escalated (db: %s)\n",
		report.RunID, result.Summary.Total, result.Summary.Passed, result.Summary.Failed,
		result.Summary.Escalated, result.DBPath)

	return nil
}
