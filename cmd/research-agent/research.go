// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/report"
	"github.com/pdiddy/research-agent/internal/research"
	"github.com/pdiddy/research-agent/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run one research query and print the ranked sources",
	Long: `Research sends the query to the providers selected by --mode (or named by
--providers), scores every result, drops results from excluded domains or
below --min-score, removes duplicate URLs, and prints the ranked list.

Modes:
  normal   tavily and exa, no domain restriction
  url      tavily only, results restricted to --domains
  hybrid   perplexity, tavily, and exa, with tavily focused on --domains

Use --save to keep the request and report in a YAML file and --load to
print a saved report again without querying providers.`,
	Args: cobra.ArbitraryArgs,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	loadFile, _ := cmd.Flags().GetString("load")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	markdown, _ := cmd.Flags().GetBool("markdown")

	if loadFile != "" {
		f, err := report.ReadFile(loadFile)
		if err != nil {
			return err
		}
		return writeReport(os.Stdout, f.Report, jsonOutput, markdown)
	}

	req, err := requestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	orch, err := newOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := orch.Run(ctx, req)
	var all *research.AllProvidersFailedError
	if errors.As(err, &all) {
		for _, f := range all.Failures() {
			fmt.Fprintf(os.Stderr, "warning: %s failed: %s\n", f.Provider, f.Reason)
		}
	}
	if err != nil {
		return err
	}

	if saveFile, _ := cmd.Flags().GetString("save"); saveFile != "" {
		if err := report.WriteFile(saveFile, req, rep); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved report to %s\n", saveFile)
	}
	return writeReport(os.Stdout, rep, jsonOutput, markdown)
}

// requestFromFlags builds a research request from the command's flags.
// Unset numeric flags leave the configured defaults in effect.
func requestFromFlags(cmd *cobra.Command, args []string) (research.Request, error) {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	mode, _ := cmd.Flags().GetString("mode")
	domains, _ := cmd.Flags().GetStringSlice("domains")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	providerNames, _ := cmd.Flags().GetStringSlice("providers")

	var m types.SearchMode
	if mode != "" {
		var err error
		if m, err = research.ParseMode(mode); err != nil {
			return research.Request{}, err
		}
	}
	providers, err := research.ParseProviders(providerNames)
	if err != nil {
		return research.Request{}, err
	}
	req := research.Request{
		Query:          query,
		Mode:           m,
		Domains:        domains,
		ExcludeDomains: exclude,
		Providers:      providers,
	}
	if cmd.Flags().Changed("max-results") {
		req.MaxResultsPerTool, _ = cmd.Flags().GetInt("max-results")
	}
	if cmd.Flags().Changed("min-score") {
		ms, _ := cmd.Flags().GetFloat64("min-score")
		if ms < 0 || ms > 10 {
			return research.Request{}, fmt.Errorf("--min-score must be between 0 and 10, got %g", ms)
		}
		req.MinScore = &ms
	}
	return req, nil
}

func writeReport(w io.Writer, rep types.ResearchReport, jsonOutput, markdown bool) error {
	switch {
	case jsonOutput:
		return report.FormatJSON(rep, w)
	case markdown:
		return report.Markdown(rep, w)
	default:
		report.FormatTable(rep, w)
		return nil
	}
}

// addResearchFlags registers the research command's flags on c.
func addResearchFlags(c *cobra.Command) {
	c.Flags().String("query", "", "research question (or pass it as the first argument)")
	c.Flags().String("mode", "", "search mode: normal, url, or hybrid (default from config)")
	c.Flags().StringSlice("domains", nil, "domains to restrict to (url) or focus on (hybrid); supports *.example.org")
	c.Flags().StringSlice("exclude", nil, "domains whose results are dropped")
	c.Flags().StringSlice("providers", nil, "providers to query, overriding the mode: perplexity, tavily, exa")
	c.Flags().Int("max-results", types.DefaultMaxResults, "results per provider and in the final list")
	c.Flags().Float64("min-score", types.DefaultMinScore, "minimum overall score (0-10)")
	c.Flags().Bool("json", false, "output the report as JSON")
	c.Flags().Bool("markdown", false, "output the full Markdown report")
	c.Flags().String("save", "", "save the request and report to a YAML file")
	c.Flags().String("load", "", "print a saved report file instead of searching")

	c.MarkFlagsMutuallyExclusive("json", "markdown")
	c.MarkFlagsMutuallyExclusive("load", "query")
}

func init() {
	addResearchFlags(researchCmd)
	rootCmd.AddCommand(researchCmd)
}
