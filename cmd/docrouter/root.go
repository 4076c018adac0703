package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentrouter/internal/config"
	"github.com/Lllllllleong/documentrouter/internal/gcp"
	"github.com/Lllllllleong/documentrouter/internal/logger"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	auditPath  string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "docrouter",
		Short:         "Classify, route and audit business documents",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.auditPath != "" {
				cfg.Audit.Path = opts.auditPath
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			opts.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", gcp.GetEnv(config.ConfigPathEnv, ""), "path to a YAML config file")
	flags.StringVar(&opts.auditPath, "audit-log", "", "audit log path (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(
		newProcessCmd(opts),
		newHistoryCmd(opts),
		newLogCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}
