/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grouptrip/internal/config"
	"github.com/friendsincode/grouptrip/internal/db"
	"github.com/friendsincode/grouptrip/internal/presence"
)

var (
	seedDemo   bool
	seedDryRun bool
)

var seedCmd = &cobra.Command{
	Use:   "seed [lobbies.yaml]",
	Short: "Load lobbies into the database",
	Long: `Migrate the lobby tables and upsert lobbies from a YAML seed file.

Existing lobbies with the same id are replaced, members included.

Examples:
  # Seed from a file
  grouptrip seed lobbies.yaml

  # Seed the built-in demo lobby
  grouptrip seed --demo
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "Seed the built-in demo lobby")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate and list lobbies without writing")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	var lobbies []presence.Lobby
	switch {
	case seedDemo:
		lobbies = presence.DemoLobbies()
	case len(args) == 1:
		var err error
		if lobbies, err = presence.LoadSeed(args[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("a seed file or --demo is required")
	}

	out := cmd.OutOrStdout()
	for _, l := range lobbies {
		fmt.Fprintf(out, "lobby %s (owner %q, %d members)\n", l.ID, l.OwnerID, len(l.Members))
	}
	if seedDryRun {
		return nil
	}

	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.PresenceBackend != config.PresenceStore {
		return fmt.Errorf("seeding needs GROUPTRIP_PRESENCE_BACKEND=store, got %q", cfg.PresenceBackend)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := presence.NewStoreSource(database).Seed(cmd.Context(), lobbies); err != nil {
		return fmt.Errorf("seed lobbies: %w", err)
	}

	logger.Info().Int("lobbies", len(lobbies)).Str("backend", string(cfg.DBBackend)).Msg("lobbies seeded")
	return nil
}
