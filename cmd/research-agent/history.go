// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/report"
	"github.com/pdiddy/research-agent/internal/taskstore"
	"github.com/pdiddy/research-agent/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse research tasks served over A2A",
	Long: `History reads the SQLite task store written by "serve". Use subcommands
to list recent tasks, show one task's report, or export tasks.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List recent tasks, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.List(context.Background(), listOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if tasks == nil {
			tasks = []taskstore.Task{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-9s  %-6s  %-7s  %s\n",
		"Session", "Created", "Status", "Mode", "Results", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, t := range tasks {
		results := "-"
		if t.Report != nil {
			results = fmt.Sprintf("%d", len(t.Report.Results))
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-9s  %-6s  %-7s  %s\n",
			t.ID, t.CreatedAt.Format("2006-01-02 15:04:05"), t.Status, t.Mode, results, report.Truncate(t.Query, 40))
	}
	fmt.Fprintf(w, "\n%d tasks\n", len(tasks))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the report of one task",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}
	if t.Report == nil {
		fmt.Fprintf(w, "Task %s %s: %s\n", t.ID, t.Status, t.Error)
		return nil
	}
	markdown, _ := cmd.Flags().GetBool("markdown")
	return writeReport(w, *t.Report, false, markdown)
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tasks to tasks.yaml and tasks.json",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	format, _ := cmd.Flags().GetString("format")

	store, err := historyStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	opts := listOptsFromFlags(cmd, args)

	var paths []string
	if format == "yaml" || format == "both" {
		p, err := store.ExportYAML(ctx, dir, opts)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}
	if format == "json" || format == "both" {
		p, err := store.ExportJSON(ctx, dir, opts)
		if err != nil {
			return err
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return fmt.Errorf("unsupported format %q: use yaml, json, or both", format)
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), "Exported to", p)
	}
	return nil
}

// --- shared helpers ---

func historyStore() (*taskstore.Store, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("task store disabled: set store.path")
	}
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("no task store at %s: run \"research-agent serve\" first", cfg.Store.Path)
	}
	return taskstore.NewStore(cfg.Store.Path)
}

func listOptsFromFlags(cmd *cobra.Command, args []string) taskstore.ListOptions {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	mode, _ := cmd.Flags().GetString("mode")
	status, _ := cmd.Flags().GetString("status")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return taskstore.ListOptions{
		Query:      query,
		Mode:       types.SearchMode(strings.ToLower(mode)),
		Status:     taskstore.Status(strings.ToLower(status)),
		MaxResults: maxResults,
	}
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().String("query", "", "only tasks whose query contains this text")
		c.Flags().String("mode", "", "only tasks with this search mode")
		c.Flags().String("status", "", "only tasks with this status: completed or failed")
	}
	historyListCmd.Flags().Int("max-results", 20, "maximum number of tasks to list")
	historyListCmd.Flags().Bool("json", false, "output tasks as JSON")

	historyShowCmd.Flags().Bool("json", false, "output the task as JSON")
	historyShowCmd.Flags().Bool("markdown", false, "output the full Markdown report")

	historyExportCmd.Flags().String("dir", "reports", "directory for the export files")
	historyExportCmd.Flags().String("format", "both", "export format: yaml, json, or both")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
