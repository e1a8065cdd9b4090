// Package cli implements the parley command line interface.
package cli

import (
	"github.com/soyeahso/parley/internal/config"
	"github.com/soyeahso/parley/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: "Parley — conversation sessions with guardrails",
		Long:  "Parley stores conversation sessions durably (with a volatile fallback) and applies input/output guardrails around an answer engine.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// The logger must exist before loadConfig can log, so read the
			// logging section with load errors deferred to loadConfig.
			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}
			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			log = logging.NewConsole(level, cfg.Logging.ConsoleStyle)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.parley/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads the config file, falling back to defaults on error.
// Validation issues are warned about but do not abort: downstream components
// degrade on bad values the same way they do on a missing config.
func loadConfig() config.Config {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		return config.Defaults()
	}
	for _, issue := range config.Validate(&cfg) {
		log.Warn().Str("setting", issue.Path).Msg(issue.Message)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = paths.Sessions
	}
	return cfg
}
