package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/sprint"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Task board commands",
	}

	cmd.AddCommand(newBoardShowCmd())
	cmd.AddCommand(newBoardMoveCmd())
	return cmd
}

func newBoardShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <sprint-id>",
		Short: "Show the task board of a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runBoardShow(cmd *cobra.Command, configPath, sprintID string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	s, err := sprint.Get(gormDB, sprintID)
	if err != nil {
		return err
	}
	assocs, err := sprint.Associations(gormDB, s.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sprint %d (%s)\n\n", s.Number, s.Status)
	if len(assocs) == 0 {
		fmt.Fprintln(out, "Board is empty.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tITEM\tTYPE\tEFFORT\tMOVED\tTITLE")
	for _, a := range assocs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", a.TaskBoardStatus, a.ItemID, a.Item.Type,
			a.Item.Effort, formatTime(&a.LastMoved), truncate(a.Item.Title, 50))
	}
	return w.Flush()
}

func newBoardMoveCmd() *cobra.Command {
	var (
		configPath string
		by         int
	)

	cmd := &cobra.Command{
		Use:   "move <sprint-id> <item-id>",
		Short: "Move an item along the task board",
		Long:  "Moves an item by the given number of columns (negative moves left). Only active sprints have a live board.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardMove(cmd, configPath, args[0], args[1], by)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVar(&by, "by", 1, "columns to move")
	return cmd
}

func runBoardMove(cmd *cobra.Command, configPath, sprintID, itemID string, by int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	a, err := sprint.IncrementTaskBoardStatus(gormDB, sprintID, itemID, by)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("item %s is not on the board of an active sprint %s", itemID, sprintID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Item %s is now %s\n", itemID, a.TaskBoardStatus)
	return nil
}
