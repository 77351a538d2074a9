// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/a2a"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research pipeline over the A2A HTTP endpoint",
	Long: `Serve starts the A2A HTTP server:

  GET  /health          liveness check
  GET  /a2a/info        agent card for discovery
  POST /a2a/task        run one research request
  GET  /a2a/task/:id    fetch a finished task by session id

Task endpoints require an API key (Authorization: Bearer or X-API-Key) when
server.api_keys, A2A_API_KEYS, or .secrets/a2a-api-key is set, and are rate
limited per client. Finished tasks are kept in the SQLite task store.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}

	orch, err := newOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	var store a2a.TaskStore
	ts, err := openStore(cfg)
	if err != nil {
		return err
	}
	if ts != nil {
		defer ts.Close()
		store = ts
		log.Info("task store opened", zap.String("path", cfg.Store.Path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a2a.NewServer(orch, store, cfg.Server, version, log).Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
