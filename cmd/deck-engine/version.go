package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "deck-engine", version.String())
		},
	}
}
