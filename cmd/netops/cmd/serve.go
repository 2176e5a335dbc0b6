package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/netops/pkg/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tickets, runbook search and metrics over HTTP",
	Long: `Start the HTTP API. Tickets are read from the configured database and
the runbook index is built at startup.

Examples:
  netops serve
  netops serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfigOrDefaults(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	svc, err := server.NewBuilder(log, cfg).Build(ctx)
	if err != nil {
		return err
	}

	return svc.Start(ctx)
}
