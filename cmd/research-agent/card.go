// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/a2a"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Print the A2A agent card as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(a2a.NewAgentCard(cfg.Server, version))
	},
}

func init() {
	rootCmd.AddCommand(cardCmd)
}
