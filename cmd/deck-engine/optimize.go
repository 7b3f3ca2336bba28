package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/display"
	"github.com/ramonehamilton/deck-engine/internal/export"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

// runFlags are shared by every optimization command.
type runFlags struct {
	goal        string
	budget      float64
	maxChanges  int
	mustInclude []string
	mustExclude []string
	onlyOwned   bool
	userID      string
	exportPath  string

	archetype string
	types     []string
}

func (f *runFlags) register(cmd *cobra.Command, build bool) {
	flags := cmd.Flags()
	flags.StringVarP(&f.goal, "goal", "g", "consistency", "Goal: consistency, power, cost or meta_adapt")
	flags.Float64Var(&f.budget, "budget", 0, "Maximum total cost increase in currency units (unset = no cap)")
	flags.IntVar(&f.maxChanges, "max-changes", 0, "Maximum goal-driven changes (default optimizer.max_changes)")
	flags.StringSliceVar(&f.mustInclude, "include", nil, "Card ids the deck must contain")
	flags.StringSliceVar(&f.mustExclude, "exclude", nil, "Card ids the deck must not contain")
	flags.StringVar(&f.userID, "user", "", "Collection owner")
	flags.StringVarP(&f.exportPath, "export", "o", "", "Export the result (.json full result, .csv changes, .txt deck list)")
	if build {
		flags.StringVar(&f.archetype, "archetype", "", "Archetype to build (default: top meta archetype)")
		flags.StringSliceVar(&f.types, "types", nil, "Preferred elemental types")
	} else {
		flags.BoolVar(&f.onlyOwned, "only-owned", false, "Only add cards owned by --user")
	}
}

func (f *runFlags) request(cmd *cobra.Command, a *app, format string) (recommendations.Constraints, recommendations.Preferences, recommendations.Goal, error) {
	goal, err := recommendations.ParseGoal(f.goal)
	if err != nil {
		return recommendations.Constraints{}, recommendations.Preferences{}, "", err
	}
	cons := recommendations.Constraints{
		Format:            format,
		OnlyOwnedCards:    f.onlyOwned,
		UserID:            f.userID,
		MustInclude:       f.mustInclude,
		MustExclude:       f.mustExclude,
		AcceptableChanges: f.maxChanges,
	}
	if cons.AcceptableChanges <= 0 {
		cons.AcceptableChanges = a.cfg.Optimizer.MaxChanges
	}
	if cmd.Flags().Changed("budget") {
		cons.MaxBudget = cards.CentsPtr(cards.Cents(math.Round(f.budget * 100)))
	}
	prefs := recommendations.Preferences{Archetype: f.archetype, Types: f.types}
	return cons, prefs, goal, nil
}

// finish exports and prints a run result.
func (f *runFlags) finish(cmd *cobra.Command, a *app, res *recommendations.Result) error {
	if f.exportPath != "" {
		err := export.ToFile(export.Options{FilePath: f.exportPath, Overwrite: true}, func(w io.Writer) error {
			return export.Optimization(w, export.FormatForPath(f.exportPath), res)
		})
		if err != nil {
			return err
		}
		a.logger.Info("result exported", "path", f.exportPath)
	}
	return a.print(cmd.OutOrStdout(), res, func(p *display.Printer) error { return p.Optimization(res) })
}

// runContext bounds a run by optimizer.timeout.
func runContext(ctx context.Context, a *app) (context.Context, context.CancelFunc) {
	if d := a.cfg.OptimizerTimeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func newOptimizeCmd(opts *options) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "optimize <deck-file>",
		Short: "Improve a deck toward a goal with explained substitutions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				parsed, err := a.readDeck(cmd, args[0])
				if err != nil {
					return err
				}
				cons, _, goal, err := f.request(cmd, a, a.format(parsed.Format))
				if err != nil {
					return err
				}
				ctx, cancel := runContext(ctx, a)
				defer cancel()

				start := time.Now()
				res, err := a.optimizer().OptimizeExisting(ctx, parsed.Composition, cons, goal)
				if err != nil {
					return err
				}
				a.logger.Debug("optimization finished", "run_id", res.RunID, "duration", time.Since(start))
				return f.finish(cmd, a, res)
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func newBuildCmd(opts *options) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a new deck from the card pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cons, prefs, goal, err := f.request(cmd, a, a.format(""))
				if err != nil {
					return err
				}
				ctx, cancel := runContext(ctx, a)
				defer cancel()

				res, err := a.optimizer().BuildFromScratch(ctx, cons, prefs, goal)
				if err != nil {
					return err
				}
				return f.finish(cmd, a, res)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newCollectionBuildCmd(opts *options) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "collection-build",
		Short: "Build the best deck from a collection and list cards worth acquiring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.userID == "" {
				return fmt.Errorf("--user is required")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				cons, prefs, goal, err := f.request(cmd, a, a.format(""))
				if err != nil {
					return err
				}
				ctx, cancel := runContext(ctx, a)
				defer cancel()

				res, err := a.optimizer().OptimizeFromCollection(ctx, cons, prefs, goal)
				if err != nil {
					return err
				}
				return f.finish(cmd, a, res)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}
