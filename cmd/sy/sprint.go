package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/config"
	"github.com/zulandar/sprintyard/internal/models"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
	"github.com/zulandar/sprintyard/internal/telegraph"
)

func newSprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Sprint lifecycle commands",
	}

	cmd.AddCommand(newSprintCurrentCmd())
	cmd.AddCommand(newSprintListCmd())
	cmd.AddCommand(newSprintHistoryCmd())
	cmd.AddCommand(newSprintStartCmd())
	cmd.AddCommand(newSprintFinishCmd())
	return cmd
}

func newSprintCurrentCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "current <project-id>",
		Short: "Show the project's ready sprint, or its active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			p, err := project.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			cur, err := sprint.Current(gormDB, p.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cur == nil {
				fmt.Fprintln(out, "No current sprint.")
				return nil
			}
			printSprint(cmd, cur)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func printSprint(cmd *cobra.Command, s *models.Sprint) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sprint:   %d (%s)\n", s.Number, s.ID)
	fmt.Fprintf(out, "Status:   %s\n", s.Status)
	if s.Goal != "" {
		fmt.Fprintf(out, "Goal:     %s\n", s.Goal)
	}
	if s.StartDate != nil {
		fmt.Fprintf(out, "Started:  %s\n", formatTime(s.StartDate))
		fmt.Fprintf(out, "Ends:     %s (%d week(s))\n", formatTime(s.EndDate), s.Duration)
		fmt.Fprintf(out, "Effort:   %d\n", s.TotalEffort)
	}
	if s.Status == models.SprintFinished {
		fmt.Fprintf(out, "Velocity: %d\n", s.Velocity)
	}
}

func newSprintListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List every sprint of a project, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			sprints, err := sprint.List(gormDB, args[0])
			if err != nil {
				return err
			}
			return printSprintTable(cmd, sprints)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSprintHistoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "List finished sprints that held work, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			hist, err := sprint.History(gormDB, args[0])
			if err != nil {
				return err
			}
			return printSprintTable(cmd, hist)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func printSprintTable(cmd *cobra.Command, sprints []models.Sprint) error {
	out := cmd.OutOrStdout()
	if len(sprints) == 0 {
		fmt.Fprintln(out, "No sprints found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tSTATUS\tSTART\tEND\tEFFORT\tVELOCITY\tGOAL")
	for _, s := range sprints {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n", s.Number, s.ID, s.Status,
			formatDate(s.StartDate), formatDate(s.EndDate), s.TotalEffort, s.Velocity, truncate(s.Goal, 40))
	}
	return w.Flush()
}

func newSprintStartCmd() *cobra.Command {
	var (
		configPath string
		goal       string
	)

	cmd := &cobra.Command{
		Use:   "start <sprint-id>",
		Short: "Start a ready sprint",
		Long:  "Starts a ready sprint with non-zero effort, activating every item on it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSprintStart(cmd, configPath, args[0], goal)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&goal, "goal", "", "sprint goal")
	return cmd
}

func runSprintStart(cmd *cobra.Command, configPath, id, goal string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	s, err := sprint.Get(gormDB, id)
	if err != nil {
		return err
	}
	started, err := sprint.StartSprint(gormDB, id, goal)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if started == nil {
		fmt.Fprintf(out, "Sprint %d is %s; nothing started.\n", s.Number, s.Status)
		return nil
	}
	fmt.Fprintf(out, "Started sprint %d (effort %d, ends %s)\n", started.Number, started.TotalEffort, formatDate(started.EndDate))

	if p, err := project.Get(gormDB, started.ProjectID); err == nil {
		announce(cmd, cfg, telegraph.FormatSprintStarted(*p, *started))
	}
	return nil
}

func newSprintFinishCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "finish <sprint-id>",
		Short: "Finish an active sprint",
		Long:  "Finishes an active sprint, carries unfinished work over to the next ready sprint and updates the team velocity.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSprintFinish(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runSprintFinish(cmd *cobra.Command, configPath, id string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	s, err := sprint.Get(gormDB, id)
	if err != nil {
		return err
	}
	res, err := project.FinishSprint(gormDB, id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res == nil {
		fmt.Fprintf(out, "Sprint %d is %s; nothing finished.\n", s.Number, s.Status)
		return nil
	}
	fmt.Fprintf(out, "Finished sprint %d: velocity %d of %d\n", res.Sprint.Number, res.Sprint.Velocity, res.Sprint.TotalEffort)
	fmt.Fprintf(out, "Completed: %d, carried over: %d\n", res.Completed, res.CarriedOver)
	if res.Next != nil {
		fmt.Fprintf(out, "Next sprint: %d (%s)\n", res.Next.Number, res.Next.ID)
	}

	if p, err := project.Get(gormDB, s.ProjectID); err == nil {
		fmt.Fprintf(out, "Team velocity is now %d\n", p.TeamVelocity)
		announce(cmd, cfg, telegraph.FormatSprintFinished(*p, res))
	}
	return nil
}

// announce posts evt to the configured chat platforms, if any.
func announce(cmd *cobra.Command, cfg *config.Config, evt telegraph.FormattedEvent) {
	ctx := context.Background()
	notifier := connectNotifier(ctx, cmd, cfg)
	if notifier == nil {
		return
	}
	defer notifier.Close()
	if err := notifier.Notify(ctx, evt); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Notification failed: %v\n", err)
	}
}
