package main

import (
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	dbPath     string
	format     string
	debug      bool
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "deck-engine",
		Short: "Deck analysis and optimization engine",
		Long: `deck-engine scores 60-card decks on eight quality dimensions, classifies
their archetype, compares decks head to head and proposes explained card
substitutions toward a goal.

Decks are read as text lists ("4 card-id" per line) or JSON. Card data, owned
collections and meta snapshots live in a local SQLite database filled with the
import commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/.deck-engine/config.toml)")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides storage.path)")
	flags.StringVarP(&opts.format, "format", "f", "", "Game format (overrides the deck list and engine.default_format)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newOptimizeCmd(opts),
		newBuildCmd(opts),
		newCollectionBuildCmd(opts),
		newCompareCmd(opts),
		newServeCmd(opts),
		newCatalogCmd(opts),
		newCollectionCmd(opts),
		newMetaCmd(opts),
		newDBCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
