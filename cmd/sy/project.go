package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project management commands",
	}

	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	cmd.AddCommand(newProjectUpdateCmd())
	cmd.AddCommand(newProjectDeleteCmd())
	return cmd
}

func newProjectCreateCmd() *cobra.Command {
	var (
		configPath string
		opts       project.CreateOpts
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new project",
		Long:  "Creates a project together with its first ready sprint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectCreate(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.Title, "title", "", "project title (required, unique)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "project description")
	cmd.Flags().IntVar(&opts.DevelopersWorking, "developers", 0, "developers working on the project")
	cmd.Flags().IntVar(&opts.TeamVelocity, "velocity", 0, "initial team velocity")
	cmd.Flags().IntVar(&opts.SprintDuration, "weeks", 0, "sprint duration in weeks (default from config)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func runProjectCreate(cmd *cobra.Command, configPath string, opts project.CreateOpts) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	opts.Owner = cfg.Owner
	if opts.SprintDuration == 0 {
		opts.SprintDuration = cfg.Defaults.SprintDurationWeeks
	}

	p, err := project.Create(gormDB, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", p.ID)
	return nil
}

func newProjectListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects with their effort summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runProjectList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	projects, err := project.List(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tVELOCITY\tTOTAL\tREMAINING\tSPRINTS NEEDED")
	for _, p := range projects {
		sum, err := project.Summarize(gormDB, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", p.ID, truncate(p.Title, 40),
			p.TeamVelocity, sum.TotalEffort, sum.RemainingEffort, formatOptional(sum.EstimatedSprintsNeeded))
	}
	return w.Flush()
}

func newProjectShowCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its derived figures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectShow(cmd, configPath, args[0], asJSON)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func runProjectShow(cmd *cobra.Command, configPath, id string, asJSON bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	p, err := project.Get(gormDB, id)
	if err != nil {
		return err
	}
	sum, err := project.Summarize(gormDB, *p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, sum)
	}
	fmt.Fprintf(out, "Project:          %s\n", p.ID)
	fmt.Fprintf(out, "Title:            %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(out, "Description:      %s\n", p.Description)
	}
	fmt.Fprintf(out, "Owner:            %s\n", p.Owner)
	fmt.Fprintf(out, "Developers:       %d\n", p.DevelopersWorking)
	fmt.Fprintf(out, "Sprint length:    %d week(s)\n", p.SprintDuration)
	fmt.Fprintf(out, "Team velocity:    %d\n", p.TeamVelocity)
	fmt.Fprintf(out, "Total effort:     %d (estimated %d)\n", sum.TotalEffort, sum.EstimatedTotalEffort)
	fmt.Fprintf(out, "Remaining effort: %d\n", sum.RemainingEffort)
	fmt.Fprintf(out, "Sprints:          %d executed, %s needed\n", sum.ExecutedSprints, formatOptional(sum.EstimatedSprintsNeeded))
	if sum.Current != nil {
		fmt.Fprintf(out, "Current sprint:   %d (%s) %s\n", sum.Current.Number, sum.Current.Status, sum.Current.ID)
	}
	return nil
}

func newProjectUpdateCmd() *cobra.Command {
	var (
		configPath  string
		title       string
		description string
		developers  int
		velocity    int
		weeks       int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update project fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts project.UpdateOpts
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("developers") {
				opts.DevelopersWorking = &developers
			}
			if cmd.Flags().Changed("velocity") {
				opts.TeamVelocity = &velocity
			}
			if cmd.Flags().Changed("weeks") {
				opts.SprintDuration = &weeks
			}
			return runProjectUpdate(cmd, configPath, args[0], opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().IntVar(&developers, "developers", 0, "developers working on the project")
	cmd.Flags().IntVar(&velocity, "velocity", 0, "team velocity")
	cmd.Flags().IntVar(&weeks, "weeks", 0, "sprint duration in weeks")
	return cmd
}

func runProjectUpdate(cmd *cobra.Command, configPath, id string, opts project.UpdateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := project.Update(gormDB, id, opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s\n", id)
	return nil
}

func newProjectDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project with all of its items and sprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectDelete(cmd, configPath, args[0], yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runProjectDelete(cmd *cobra.Command, configPath, id string, skipConfirm bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	p, err := project.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !skipConfirm && !confirm(cmd, fmt.Sprintf("WARNING: This will delete project %q with all of its items and sprints.", p.Title)) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}
	if err := project.Delete(gormDB, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted project %s\n", id)
	return nil
}
