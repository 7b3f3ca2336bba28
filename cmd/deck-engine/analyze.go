package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/charts"
	"github.com/ramonehamilton/deck-engine/internal/display"
	"github.com/ramonehamilton/deck-engine/internal/matchup"
)

// chartFlags control optional HTML chart output.
type chartFlags struct {
	path string
	open bool
}

func (f *chartFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "chart", "", "Write an HTML chart to this file")
	cmd.Flags().BoolVar(&f.open, "open", false, "Open the chart in the browser")
}

func (f *chartFlags) write(a *app, render func(io.Writer) error) error {
	if f.path == "" {
		return nil
	}
	if err := charts.WriteFile(f.path, render); err != nil {
		return err
	}
	a.logger.Info("chart written", "path", f.path)
	if f.open {
		return charts.OpenInBrowser(f.path)
	}
	return nil
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var chart chartFlags

	cmd := &cobra.Command{
		Use:   "analyze <deck-file>",
		Short: "Score a deck and classify its archetype",
		Long: `Analyze validates a deck against its format and reports its eight scores,
archetype, synergy, speed and performance estimates. Use "-" to read the deck
from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				parsed, err := a.readDeck(cmd, args[0])
				if err != nil {
					return err
				}
				res, err := a.analyzer.Analyze(ctx, parsed.Composition, a.format(parsed.Format))
				if err != nil {
					return err
				}

				name := deckName(parsed.Name, args[0])
				err = chart.write(a, func(w io.Writer) error {
					cfg := charts.DefaultChartConfig()
					cfg.Title = name
					cfg.Subtitle = fmt.Sprintf("%s, overall %d", res.Archetype.PrimaryArchetype, res.Scores.Overall)
					return charts.RenderScoreRadar(w, []charts.Series{{Name: name, Scores: res.Scores}}, cfg)
				})
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), res, func(p *display.Printer) error { return p.Analysis(res) })
			})
		},
	}
	chart.register(cmd)
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	var chart chartFlags

	cmd := &cobra.Command{
		Use:   "compare <deck-a> <deck-b>",
		Short: "Compare two decks and estimate the matchup",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				deckA, err := a.readDeck(cmd, args[0])
				if err != nil {
					return err
				}
				deckB, err := a.readDeck(cmd, args[1])
				if err != nil {
					return err
				}

				format := a.format(deckA.Format)
				resA, err := a.analyzer.Analyze(ctx, deckA.Composition, format)
				if err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				resB, err := a.analyzer.Analyze(ctx, deckB.Composition, format)
				if err != nil {
					return fmt.Errorf("%s: %w", args[1], err)
				}

				cmp := matchup.NewComparator(a.tables).Compare(resA, resB)
				nameA, nameB := deckName(deckA.Name, args[0]), deckName(deckB.Name, args[1])
				if nameA == nameB {
					nameA, nameB = nameA+" (a)", nameB+" (b)"
				}

				err = chart.write(a, func(w io.Writer) error {
					cfg := charts.DefaultChartConfig()
					cfg.Title = nameA + " vs " + nameB
					return charts.RenderComparison(w, cmp, nameA, nameB, cfg)
				})
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), cmp, func(p *display.Printer) error {
					return p.Comparison(cmp, nameA, nameB)
				})
			})
		},
	}
	chart.register(cmd)
	return cmd
}

// deckName prefers the deck list's Name header over the file name.
func deckName(fromList, path string) string {
	if fromList != "" {
		return fromList
	}
	if path == "-" {
		return "deck"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
