package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/meta"
)

func newCatalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the card catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <cards.json|cards.yaml>",
		Short: "Insert or update cards from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cs, err := cards.ReadFile(args[0])
				if err != nil {
					return err
				}
				n, err := a.store.ImportCards(ctx, cs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards\n", n)
				return nil
			})
		},
	})
	return cmd
}

func newCollectionCmd(opts *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage owned card collections",
	}
	importCmd := &cobra.Command{
		Use:   "import <list>",
		Short: "Replace a user's collection with a card list",
		Long: `Import reads the same formats as deck lists ("4 card-id" per line or JSON)
and replaces everything previously stored for the user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				parsed, err := a.readDeck(cmd, args[0])
				if err != nil {
					return err
				}
				owned := make(map[string]int, parsed.Composition.Len())
				for _, e := range parsed.Composition.Entries() {
					owned[e.CardID] = e.Quantity
				}
				if err := a.store.Collection().Replace(ctx, userID, owned); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d cards (%d distinct) for %s\n",
					parsed.Composition.Total(), len(owned), userID)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&userID, "user", "", "Collection owner")
	cmd.AddCommand(importCmd)
	return cmd
}

func newMetaCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Manage stored meta snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <snapshots.json|snapshots.yaml>",
		Short: "Store meta snapshots keyed by format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				snapshots, err := meta.ReadFile(args[0])
				if err != nil {
					return err
				}
				if err := a.store.ImportMeta(ctx, snapshots); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported meta for %d formats\n", len(snapshots))
				return nil
			})
		},
	})
	return cmd
}
