package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Effort and burndown reports",
	}

	cmd.AddCommand(newReportBurndownCmd())
	cmd.AddCommand(newReportDoneCmd())
	return cmd
}

func newReportBurndownCmd() *cobra.Command {
	var (
		configPath string
		projectID  string
		sprintID   string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "burndown",
		Short: "Project burndown per sprint, or sprint burndown per day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (projectID == "") == (sprintID == "") {
				return fmt.Errorf("exactly one of --project or --sprint is required")
			}
			return runReportBurndown(cmd, configPath, projectID, sprintID, asJSON)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&projectID, "project", "", "project ID")
	cmd.Flags().StringVar(&sprintID, "sprint", "", "sprint ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func runReportBurndown(cmd *cobra.Command, configPath, projectID, sprintID string, asJSON bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var chart *effort.Chart
	if projectID != "" {
		p, err := project.Get(gormDB, projectID)
		if err != nil {
			return err
		}
		if chart, err = effort.ProjectBurndown(gormDB, *p); err != nil {
			return err
		}
	} else {
		s, err := sprint.Get(gormDB, sprintID)
		if err != nil {
			return err
		}
		if chart, err = effort.SprintBurndown(gormDB, *s, time.Now()); err != nil {
			return err
		}
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), chart)
	}
	return renderChart(cmd.OutOrStdout(), chart)
}

func newReportDoneCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "done <sprint-id>",
		Short: "Items completed per day of a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportDone(cmd, configPath, args[0], asJSON)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func runReportDone(cmd *cobra.Command, configPath, sprintID string, asJSON bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	s, err := sprint.Get(gormDB, sprintID)
	if err != nil {
		return err
	}
	days, err := effort.TasksDoneByDate(gormDB, s.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, days)
	}
	if len(days) == 0 {
		fmt.Fprintln(out, "Nothing done yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tITEMS\tEFFORT")
	for _, d := range days {
		fmt.Fprintf(w, "%s\t%d\t%d\n", d.Date, d.Items, d.Effort)
	}
	return w.Flush()
}
