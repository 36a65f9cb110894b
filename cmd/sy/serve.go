package main

import (
	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/api"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	notifier := connectNotifier(ctx, cmd, cfg)
	if notifier != nil {
		defer notifier.Close()
	}

	return api.Start(ctx, api.StartOpts{
		DB:                    gormDB,
		Port:                  port,
		Owner:                 cfg.Owner,
		DefaultSprintDuration: cfg.Defaults.SprintDurationWeeks,
		CORSOrigins:           cfg.Server.CORSOrigins,
		Notifier:              notifier,
		Out:                   cmd.OutOrStdout(),
	})
}
