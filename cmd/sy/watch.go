package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/sprintwatch"
)

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		once       bool
		autoFinish bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for active sprints past their end date",
		Long: `Checks on the configured cron schedule for active sprints whose planned
end date has passed. Overdue sprints are reported once a day to the
configured chat platforms, or finished automatically with --auto-finish
(or watch.auto_finish in the config).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configPath, once, autoFinish)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	cmd.Flags().BoolVar(&autoFinish, "auto-finish", false, "finish overdue sprints")
	return cmd
}

func runWatch(cmd *cobra.Command, configPath string, once, autoFinish bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	notifier := connectNotifier(ctx, cmd, cfg)
	if notifier != nil {
		defer notifier.Close()
	}

	w, err := sprintwatch.New(sprintwatch.Opts{
		DB:         gormDB,
		Schedule:   cfg.Watch.Schedule,
		AutoFinish: autoFinish || cfg.Watch.AutoFinish,
		Notifier:   notifier,
		Out:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	if !once {
		return w.Run(ctx)
	}
	res, err := w.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d overdue, %d finished, %d notification(s) sent\n",
		res.Overdue, len(res.Finished), res.Notified)
	return nil
}
