package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/item"
	"github.com/zulandar/sprintyard/internal/sprint"
	"gorm.io/gorm"
)

func newItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Backlog item commands",
	}

	cmd.AddCommand(newItemCreateCmd())
	cmd.AddCommand(newItemListCmd())
	cmd.AddCommand(newItemShowCmd())
	cmd.AddCommand(newItemUpdateCmd())
	cmd.AddCommand(newItemDeleteCmd())
	cmd.AddCommand(newItemAssociationCmd("move", "Move an item and its subtree into a sprint", sprint.MoveItemToSprint))
	cmd.AddCommand(newItemAssociationCmd("remove", "Remove an item and its subtree from a sprint", sprint.RemoveItemFromSprint))
	cmd.AddCommand(newItemAssociationCmd("reparent", "Reconcile sprint membership after changing an item's parent", sprint.ReparentAssociation))
	return cmd
}

func newItemCreateCmd() *cobra.Command {
	var (
		configPath string
		opts       item.CreateOpts
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backlog item",
		Long:  "Creates an epic, story, task or bug. An item created under a parent that sits in a sprint joins that sprint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemCreate(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project ID (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "item title (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "task", "item type (epic, story, task, bug)")
	cmd.Flags().IntVar(&opts.Priority, "priority", item.DefaultPriority, "priority (1=lowest → 5=highest)")
	cmd.Flags().IntVar(&opts.Effort, "effort", 0, "effort in story points")
	cmd.Flags().IntVar(&opts.EstimatedEffort, "estimate", 0, "rough estimate for epics and stories")
	cmd.Flags().StringVar(&opts.Description, "description", "", "detailed description")
	cmd.Flags().StringVar(&opts.AcceptanceCriteria, "acceptance", "", "acceptance criteria")
	cmd.Flags().StringVar(&opts.ParentID, "parent", "", "parent epic or story ID")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assigned developer")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("title")
	return cmd
}

func runItemCreate(cmd *cobra.Command, configPath string, opts item.CreateOpts) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	opts.Owner = cfg.Owner

	var id string
	err = gormDB.Transaction(func(tx *gorm.DB) error {
		it, err := item.Create(tx, opts)
		if err != nil {
			return err
		}
		id = it.ID
		return sprint.FollowParent(tx, it)
	})
	if err != nil {
		return err
	}

	it, err := item.Get(gormDB, id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s %s\n", it.Type, it.ID)
	if it.ParentID != nil {
		fmt.Fprintf(out, "Parent: %s\n", *it.ParentID)
	}
	fmt.Fprintf(out, "Status: %s\n", it.Status)
	return nil
}

func newItemListCmd() *cobra.Command {
	var (
		configPath string
		filters    item.ListFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemList(cmd, configPath, filters)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&filters.ProjectID, "project", "", "filter by project")
	cmd.Flags().StringVar(&filters.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&filters.Type, "type", "", "filter by type")
	cmd.Flags().StringVar(&filters.ParentID, "parent", "", "filter by parent")
	cmd.Flags().BoolVar(&filters.TopLevel, "top", false, "only items without a parent")
	return cmd
}

func runItemList(cmd *cobra.Command, configPath string, filters item.ListFilters) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	items, err := item.List(gormDB, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPRI\tEFFORT\tTITLE")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", it.ID, it.Type, it.Status, it.Priority, it.Effort, truncate(it.Title, 50))
	}
	return w.Flush()
}

func newItemShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runItemShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	it, err := item.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", it.ID)
	fmt.Fprintf(out, "Title:       %s\n", it.Title)
	fmt.Fprintf(out, "Type:        %s\n", it.Type)
	fmt.Fprintf(out, "Status:      %s\n", it.Status)
	fmt.Fprintf(out, "Priority:    %d\n", it.Priority)
	fmt.Fprintf(out, "Effort:      %d (estimated %d)\n", it.Effort, it.EstimatedEffort)
	if it.ParentID != nil {
		fmt.Fprintf(out, "Parent:      %s\n", *it.ParentID)
	}
	if it.Assignee != "" {
		fmt.Fprintf(out, "Assignee:    %s\n", it.Assignee)
	}
	if it.Description != "" {
		fmt.Fprintf(out, "\nDescription:\n%s\n", it.Description)
	}
	if it.AcceptanceCriteria != "" {
		fmt.Fprintf(out, "\nAcceptance Criteria:\n%s\n", it.AcceptanceCriteria)
	}

	if len(it.Children) == 0 {
		return nil
	}
	tree, err := item.Tree(gormDB, *it)
	if err != nil {
		return err
	}
	summary, err := item.ChildrenSummary(gormDB, it.ID)
	if err != nil {
		return err
	}
	var parts []string
	for _, sc := range summary {
		parts = append(parts, fmt.Sprintf("%d %s", sc.Count, sc.Status))
	}
	fmt.Fprintf(out, "\nChildren (%s):\n", strings.Join(parts, ", "))
	for _, child := range tree.Children {
		printTree(out, child, 1)
	}
	return nil
}

func printTree(out io.Writer, n *item.Node, depth int) {
	fmt.Fprintf(out, "%s%s  [%s/%s]  %s (%d)\n", strings.Repeat("  ", depth),
		n.Item.ID, n.Item.Type, n.Item.Status, n.Item.Title, n.Item.Effort)
	for _, c := range n.Children {
		printTree(out, c, depth+1)
	}
}

func newItemUpdateCmd() *cobra.Command {
	var (
		configPath  string
		title       string
		description string
		acceptance  string
		priority    int
		effortVal   int
		estimate    int
		assignee    string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update item fields",
		Long:  "Updates item fields. Status and sprint membership change through move, remove and reparent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts item.UpdateOpts
			flags := cmd.Flags()
			if flags.Changed("title") {
				opts.Title = &title
			}
			if flags.Changed("description") {
				opts.Description = &description
			}
			if flags.Changed("acceptance") {
				opts.AcceptanceCriteria = &acceptance
			}
			if flags.Changed("priority") {
				opts.Priority = &priority
			}
			if flags.Changed("effort") {
				opts.Effort = &effortVal
			}
			if flags.Changed("estimate") {
				opts.EstimatedEffort = &estimate
			}
			if flags.Changed("assignee") {
				opts.Assignee = &assignee
			}
			return runItemUpdate(cmd, configPath, args[0], opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "new acceptance criteria")
	cmd.Flags().IntVar(&priority, "priority", 0, "new priority")
	cmd.Flags().IntVar(&effortVal, "effort", 0, "new effort")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "new estimated effort")
	cmd.Flags().StringVar(&assignee, "assignee", "", "new assignee")
	return cmd
}

func runItemUpdate(cmd *cobra.Command, configPath, id string, opts item.UpdateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := item.Update(gormDB, id, opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated item %s\n", id)
	return nil
}

func newItemDeleteCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemDelete(cmd, configPath, args[0], yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runItemDelete(cmd *cobra.Command, configPath, id string, skipConfirm bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	it, err := item.Get(gormDB, id)
	if err != nil {
		return err
	}
	hasChildren, err := item.HasChildren(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if hasChildren && !skipConfirm &&
		!confirm(cmd, fmt.Sprintf("WARNING: %q has children; they will be deleted too.", it.Title)) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}
	if err := item.Delete(gormDB, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted item %s\n", id)
	return nil
}

// associationFunc is the shape shared by the association cascades.
type associationFunc func(db *gorm.DB, itemID, sprintID, parentID string) error

func newItemAssociationCmd(use, short string, op associationFunc) *cobra.Command {
	var (
		configPath string
		sprintID   string
		parentID   string
	)

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := op(gormDB, args[0], sprintID, parentID); err != nil {
				return err
			}
			it, err := item.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			parent := "-"
			if it.ParentID != nil {
				parent = *it.ParentID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %s is %s (parent %s, %d children)\n",
				it.ID, it.Status, parent, len(it.Children))
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&sprintID, "sprint", "", "sprint ID (required)")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent ID the item ends up under (empty for top level)")
	cmd.MarkFlagRequired("sprint")
	return cmd
}
