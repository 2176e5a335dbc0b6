package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/netops/pkg/observability"
)

var (
	cfgFile  string
	logLevel string
	log      = observability.DefaultLogger()
)

var rootCmd = &cobra.Command{
	Use:   "netops",
	Short: "Runbook-driven network incident remediation",
	Long: `netops matches network incidents to runbooks by text similarity, turns
the runbook into a plan of device actions, executes it, validates the
result and decides whether the incident needs a human.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if !observability.IsValidLogLevel(logLevel) {
			return fmt.Errorf("invalid log level %q", logLevel)
		}

		cfg, err := loadConfigOrDefaults(cfgFile)
		if err != nil {
			// Fall back to CLI flag if config fails to load.
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp: true,
			})
			return nil
		}

		loggerCfg := observability.LoggerConfig{
			Level:      observability.LogLevel(cfg.Observability.Logging.Level),
			Format:     observability.LogFormat(cfg.Observability.Logging.Format),
			OutputPath: cfg.Observability.Logging.OutputPath,
		}

		// CLI flag overrides config file.
		if logLevel != "" && logLevel != "info" {
			loggerCfg.Level = observability.LogLevel(logLevel)
		}

		configuredLog, err := observability.ConfigureLogger(loggerCfg)
		if err != nil {
			level, _ := logrus.ParseLevel(logLevel)
			log.SetLevel(level)
			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp: true,
			})
			return nil
		}

		log.SetLevel(configuredLog.Level)
		log.SetFormatter(configuredLog.Formatter)
		log.SetOutput(configuredLog.Out)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
