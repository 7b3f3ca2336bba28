package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/export"
	"github.com/ramonehamilton/deck-engine/internal/storage"
)

func newDBCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Back up and restore the database",
	}

	var keep int
	backupCmd := &cobra.Command{
		Use:   "backup [name]",
		Short: "Write a verified copy of the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				m := a.backups()
				path, err := m.Backup(ctx, name)
				if err != nil {
					return err
				}
				if _, err := m.Prune(keep); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	backupCmd.Flags().IntVar(&keep, "keep", 0, "Keep only the newest N backups (0 = all)")

	listCmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				backups, err := a.backups().List()
				if err != nil {
					return err
				}
				if a.opts.jsonOutput {
					return export.JSON(cmd.OutOrStdout(), backups)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tSHA256")
				for _, b := range backups {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%.12s\n", b.Name, b.Size, b.ModTime.Format("2006-01-02 15:04:05"), b.Checksum)
				}
				return tw.Flush()
			})
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the database with a backup",
		Long: `Restore verifies the backup and swaps it in for the configured database.
The previous file is kept next to it with an ".old" suffix. Stop any running
server first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := storage.Restore(cmd.Context(), args[0], cfg.Storage.Path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", cfg.Storage.Path, args[0])
			return nil
		},
	}

	cmd.AddCommand(backupCmd, listCmd, restoreCmd)
	return cmd
}
