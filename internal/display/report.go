// Package display renders analysis, optimization and comparison results as
// readable terminal reports.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/matchup"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
)

const rule = "═══════════════════════════════════════════════════════════════"

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

// Printer writes reports to w. Write errors are sticky: after the first
// one every print is a no-op and Err reports it.
type Printer struct {
	w   io.Writer
	err error
}

// NewPrinter creates a printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Err returns the first write error.
func (p *Printer) Err() error { return p.err }

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) header(title string) {
	p.printf("%s\n%s\n%s\n", rule, bold(title), rule)
}

// Analysis prints scores, archetype, synergy and speed of one deck.
func (p *Printer) Analysis(res *analysis.Result) error {
	p.header(fmt.Sprintf("Deck Analysis (%s)", res.Format))
	info := res.DeckInfo
	p.printf("Cards: %d (%d unique)  Creatures: %d  Support: %d  Resources: %d\n",
		info.TotalCards, info.UniqueCards, info.CreatureCount, info.SupportCount, info.ResourceCount)
	p.printf("Estimated value: %s\n\n", info.EstimatedValue)

	p.printf("%s\n", bold("Scores"))
	for _, dim := range scoring.Dimensions {
		v := res.Scores.Get(dim)
		p.printf("├─ %-15s %3d %s\n", label(dim), v, bar(v))
	}

	arch := res.Archetype
	p.printf("\n%s\n", bold("Archetype"))
	p.printf("├─ Primary:    %s (confidence %d)\n", arch.PrimaryArchetype, arch.Confidence)
	if arch.SecondaryArchetype != "" {
		p.printf("├─ Secondary:  %s\n", arch.SecondaryArchetype)
	}
	if arch.LowConfidence {
		p.printf("├─ %s\n", gray("low confidence classification"))
	}
	p.printf("└─ Playstyle:  %s\n", arch.Playstyle)

	syn := res.Synergy
	p.printf("\n%s\n", bold("Synergy"))
	p.printf("├─ Overall:    %d\n", syn.OverallSynergy)
	p.printf("├─ Lines:      %s\n", list(syn.EvolutionSynergy.Lines))
	if len(syn.EvolutionSynergy.BrokenLines) > 0 {
		p.printf("├─ Broken:     %s\n", red(list(syn.EvolutionSynergy.BrokenLines)))
	}
	p.printf("└─ Weak to:    %s\n", list(syn.TypeSynergy.Vulnerabilities))

	sp := res.Speed
	p.printf("\n%s\n", bold("Speed"))
	p.printf("├─ Setup turn: %.1f\n", sp.AverageSetupTurn)
	p.printf("├─ Damage:     %d per turn, max %d\n", sp.PrizeRaceSpeed.DamageOutputPerTurn, sp.PrizeRaceSpeed.MaxDamage)
	p.printf("└─ Attackers:  %s\n", list(sp.PrimaryAttackers))

	perf := res.Performance
	p.printf("\n%s\n", bold("Performance"))
	p.printf("├─ Viability:  %d (tier %d)\n", perf.TournamentViability, perf.MetaTier)
	p.printf("├─ Win rate:   %.1f%%\n", perf.EstimatedWinRate*100)
	p.printf("├─ Strengths:  %s\n", list(perf.Strengths))
	p.printf("└─ Weaknesses: %s\n", list(perf.Weaknesses))
	return p.err
}

// Optimization prints the change list and the score movement of a run.
func (p *Printer) Optimization(res *recommendations.Result) error {
	p.header(fmt.Sprintf("Optimization (%s, goal %s)", res.Format, res.Goal))
	if len(res.Changes) == 0 {
		p.printf("No changes.\n")
	}
	for i, ch := range res.Changes {
		tag := ""
		if ch.Forced {
			tag = gray(" [required]")
		}
		switch ch.Action {
		case recommendations.ActionReplace:
			p.printf("%2d. %dx %s -> %s%s\n", i+1, ch.Quantity, ch.ReplacesCardID, ch.CardName, tag)
		default:
			p.printf("%2d. %s %dx %s%s\n", i+1, ch.Action, ch.Quantity, ch.CardName, tag)
		}
		p.printf("    %s  cost %s\n", ch.Reasoning, signedCents(ch.CostDelta.String(), int64(ch.CostDelta)))
	}

	p.printf("\n%s\n", bold("Scores"))
	for _, dim := range scoring.Dimensions {
		before, after := res.Before.Get(dim), res.After.Get(dim)
		p.printf("├─ %-15s %3d -> %3d %s\n", label(dim), before, after, signed(after-before))
	}
	p.printf("\nTotal cost change: %s\n", signedCents(res.TotalCostDelta.String(), int64(res.TotalCostDelta)))
	p.printf("Stopped: %s\n", res.StopReason)

	if len(res.WantList) > 0 {
		p.printf("\n%s\n", bold("Want list"))
		for _, item := range res.WantList {
			p.printf("├─ %dx %s at %s: %s\n", item.Copies, item.CardName, item.UnitPrice, item.Reasoning)
		}
	}
	for _, u := range res.UnsatisfiedConstraints {
		p.printf("%s %s\n", gray("note:"), u)
	}
	p.printf("\n%s\n", res.Explanation)
	return p.err
}

// Comparison prints a per-dimension comparison of two decks.
func (p *Printer) Comparison(cmp matchup.Comparison, nameA, nameB string) error {
	p.header(fmt.Sprintf("%s vs %s", nameA, nameB))
	p.printf("Archetypes: %s vs %s\n\n", cmp.ArchetypeA, cmp.ArchetypeB)
	for _, c := range cmp.Categories {
		winner := "tie"
		switch c.Winner {
		case matchup.WinnerA:
			winner = nameA
		case matchup.WinnerB:
			winner = nameB
		}
		p.printf("├─ %-15s %3d  %3d  %s\n", label(c.Dimension), c.A, c.B, winner)
	}
	p.printf("\nCategories: %d-%d (%d tied)\n", cmp.WinsA, cmp.WinsB, cmp.Ties)
	p.printf("Estimated win rate for %s: %.1f%%\n", nameA, cmp.WinRate)
	for _, adj := range cmp.Adjustments {
		p.printf("├─ %-11s %s %s\n", adj.Source, signedFloat(adj.Points), gray(adj.Reason))
	}
	p.printf("\n%s\n", cmp.Summary)
	return p.err
}

func label(dim string) string {
	s := strings.ReplaceAll(dim, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func bar(v int) string {
	n := max(0, min(20, v/5))
	return strings.Repeat("█", n) + gray(strings.Repeat("░", 20-n))
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func signed(d int) string {
	switch {
	case d > 0:
		return green(fmt.Sprintf("+%d", d))
	case d < 0:
		return red(fmt.Sprintf("%d", d))
	default:
		return gray("0")
	}
}

func signedFloat(d float64) string {
	switch {
	case d > 0:
		return green(fmt.Sprintf("+%.1f", d))
	case d < 0:
		return red(fmt.Sprintf("%.1f", d))
	default:
		return gray("0.0")
	}
}

// signedCents colors a cost change: savings green, spending red.
func signedCents(s string, v int64) string {
	switch {
	case v < 0:
		return green(s)
	case v > 0:
		return red("+" + s)
	default:
		return s
	}
}
