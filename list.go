package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
)

func newWorkspacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List accessible workspaces",
		Args:  cobra.NoArgs,
		RunE:  runWorkspaces,
	}

	addSortFlags(cmd)

	return cmd
}

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List accessible models",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}

	addSortFlags(cmd)

	return cmd
}

func addSortFlags(cmd *cobra.Command) {
	cmd.Flags().String("sort", "", "sort by this field (e.g. name, active_state)")
	cmd.Flags().Bool("desc", false, "sort in descending order")
}

// sortOptions turns --sort and --desc into listing options.
func sortOptions(cmd *cobra.Command) []anaplan.ListOption {
	field, _ := cmd.Flags().GetString("sort")
	if field == "" {
		return nil
	}

	desc, _ := cmd.Flags().GetBool("desc")

	return []anaplan.ListOption{anaplan.SortBy(field, desc)}
}

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the files of the model",
		Args:  cobra.NoArgs,
		RunE:  runFiles,
	}
}

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the imports, exports, processes and other actions of the model",
		Args:  cobra.NoArgs,
		RunE:  runActions,
	}
}

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <action-id>",
		Short: "List the recent tasks of an action",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasks,
	}
}

// withClient builds a client for the command, runs fn and closes it.
func withClient(cmd *cobra.Command, fn func(context.Context, *CLIContext, *anaplan.Client) error) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	c, err := newClient(ctx, cc)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, cc, c)
}

func runWorkspaces(cmd *cobra.Command, _ []string) error {
	opts := sortOptions(cmd)

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		ws, err := c.ListWorkspaces(ctx, opts...)
		if err != nil {
			return err
		}

		return cc.printResult(ws, []string{"ID", "NAME", "ACTIVE", "USED", "ALLOWANCE"}, workspaceRows(ws))
	})
}

func workspaceRows(ws []anaplan.Workspace) [][]string {
	rows := make([][]string, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, []string{
			w.ID, w.Name, strconv.FormatBool(w.Active),
			formatSize(w.CurrentSize), formatSize(w.SizeAllowance),
		})
	}

	return rows
}

func runModels(cmd *cobra.Command, _ []string) error {
	opts := sortOptions(cmd)

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		models, err := c.ListModels(ctx, opts...)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(models))
		for _, m := range models {
			rows = append(rows, []string{m.ID, m.Name, m.ActiveState, m.WorkspaceName, formatSize(m.MemoryUsage)})
		}

		return cc.printResult(models, []string{"ID", "NAME", "STATE", "WORKSPACE", "MEMORY"}, rows)
	})
}

func runFiles(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		files, err := c.ListFiles(ctx)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(files))
		for _, f := range files {
			rows = append(rows, []string{formatID(f.ID), f.Name, strconv.Itoa(f.ChunkCount)})
		}

		return cc.printResult(files, []string{"ID", "NAME", "CHUNKS"}, rows)
	})
}

func runTasks(cmd *cobra.Command, args []string) error {
	actionID, err := parseID("action id", args[0])
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		tasks, err := c.ListTaskStatus(ctx, actionID)
		if err != nil {
			return err
		}

		return cc.printResult(tasks, []string{"TASK", "STATE", "CREATED"}, taskRows(tasks))
	})
}

func taskRows(tasks []anaplan.TaskSummary) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{t.ID, t.TaskState, formatMillis(t.CreationTime)})
	}

	return rows
}

// actionEntry is one row of the combined actions listing.
type actionEntry struct {
	Kind string     `json:"kind"`
	ID   anaplan.ID `json:"id"`
	Name string     `json:"name"`
	Type string     `json:"type,omitempty"`
}

func runActions(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		entries, err := collectActions(ctx, c)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Kind, formatID(e.ID), e.Name, e.Type})
		}

		return cc.printResult(entries, []string{"KIND", "ID", "NAME", "TYPE"}, rows)
	})
}

// collectActions lists every runnable action of the model, grouped by kind.
func collectActions(ctx context.Context, c *anaplan.Client) ([]actionEntry, error) {
	imports, err := c.ListImports(ctx)
	if err != nil {
		return nil, err
	}

	exports, err := c.ListExports(ctx)
	if err != nil {
		return nil, err
	}

	processes, err := c.ListProcesses(ctx)
	if err != nil {
		return nil, err
	}

	actions, err := c.ListActions(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]actionEntry, 0, len(imports)+len(exports)+len(processes)+len(actions))

	for _, i := range imports {
		entries = append(entries, actionEntry{Kind: "import", ID: i.ID, Name: i.Name, Type: i.Type})
	}

	for _, e := range exports {
		entries = append(entries, actionEntry{Kind: "export", ID: e.ID, Name: e.Name, Type: e.Format})
	}

	for _, p := range processes {
		entries = append(entries, actionEntry{Kind: "process", ID: p.ID, Name: p.Name})
	}

	for _, a := range actions {
		entries = append(entries, actionEntry{Kind: "action", ID: a.ID, Name: a.Name, Type: a.Type})
	}

	return entries, nil
}

func formatID(id anaplan.ID) string {
	return strconv.FormatInt(int64(id), 10)
}
