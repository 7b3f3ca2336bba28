// Package matchup compares two analyzed decks: per-dimension winners, an
// overall winner and a heuristic head-to-head win rate.
package matchup

import (
	"fmt"
	"math"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
)

// Winner labels.
const (
	WinnerA   = "a"
	WinnerB   = "b"
	WinnerTie = "tie"
)

// Adjustment sources.
const (
	SourceArchetype   = "archetype"
	SourceSpeed       = "speed"
	SourcePower       = "power"
	SourceConsistency = "consistency"
)

// Category is the result of one score dimension.
type Category struct {
	Dimension string `json:"dimension"`
	A         int    `json:"a"`
	B         int    `json:"b"`
	Winner    string `json:"winner"`
	Margin    int    `json:"margin"`
}

// Adjustment is one itemized win-rate contribution, in percentage points
// for deck A.
type Adjustment struct {
	Source string  `json:"source"`
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

// Comparison is the outcome of comparing deck A with deck B.
type Comparison struct {
	ArchetypeA string     `json:"archetype_a"`
	ArchetypeB string     `json:"archetype_b"`
	Categories []Category `json:"categories"`
	WinsA      int        `json:"wins_a"`
	WinsB      int        `json:"wins_b"`
	Ties       int        `json:"ties"`

	// Winner is decided by the overall score.
	Winner string `json:"winner"`

	// WinRate is deck A's estimated head-to-head win rate in percent.
	WinRate     float64      `json:"win_rate"`
	Adjustments []Adjustment `json:"adjustments"`
	Summary     string       `json:"summary"`
}

// Comparator compares analysis results using the matchup table and the
// comparator settings of the heuristic tables.
type Comparator struct {
	tables *heuristics.Tables
}

// NewComparator creates a comparator.
func NewComparator(tables *heuristics.Tables) *Comparator {
	if tables == nil {
		tables = heuristics.Default()
	}
	return &Comparator{tables: tables}
}

// Compare compares two results. It is pure and symmetric: swapping a and b
// mirrors every category and gives 100 minus the win rate, up to clamping.
func (c *Comparator) Compare(a, b *analysis.Result) Comparison {
	out := Comparison{
		ArchetypeA: a.Archetype.PrimaryArchetype,
		ArchetypeB: b.Archetype.PrimaryArchetype,
	}
	for _, dim := range scoring.Dimensions {
		cat := category(dim, a.Scores.Get(dim), b.Scores.Get(dim))
		switch {
		case dim == scoring.DimOverall:
			out.Winner = cat.Winner
		case cat.Winner == WinnerA:
			out.WinsA++
		case cat.Winner == WinnerB:
			out.WinsB++
		default:
			out.Ties++
		}
		out.Categories = append(out.Categories, cat)
	}
	out.WinRate, out.Adjustments = c.WinRate(a.Scores, b.Scores, out.ArchetypeA, out.ArchetypeB)
	out.Summary = summary(out)
	return out
}

// category decides one dimension. Lower difficulty wins.
func category(dim string, a, b int) Category {
	cat := Category{Dimension: dim, A: a, B: b, Margin: abs(a - b)}
	hi, lo := WinnerA, WinnerB
	if dim == scoring.DimDifficulty {
		hi, lo = WinnerB, WinnerA
	}
	switch {
	case a > b:
		cat.Winner = hi
	case a < b:
		cat.Winner = lo
	default:
		cat.Winner = WinnerTie
	}
	return cat
}

// WinRate estimates deck A's win rate against deck B. It starts from the
// base rate and adds the archetype advantage, a speed-tier bonus, a power
// bonus and a scaled consistency difference, then clamps.
func (c *Comparator) WinRate(a, b scoring.Vector, archA, archB string) (float64, []Adjustment) {
	cfg := c.tables.Comparator
	rate := cfg.BaseWinRate
	adjustments := []Adjustment{}
	adjust := func(source string, points float64, reason string) {
		if points == 0 {
			return
		}
		rate += points
		adjustments = append(adjustments, Adjustment{Source: source, Points: points, Reason: reason})
	}

	if adv := c.tables.Advantage(archA, archB); archA != "" && archB != "" {
		adjust(SourceArchetype, adv, fmt.Sprintf("%s vs %s matchup", archA, archB))
	}

	tierA, tierB := SpeedTier(a.Speed, cfg.SpeedTierWidth), SpeedTier(b.Speed, cfg.SpeedTierWidth)
	switch gap := tierA - tierB; {
	case gap >= cfg.SpeedTierGap:
		adjust(SourceSpeed, cfg.SpeedBonus, fmt.Sprintf("deck A is %d speed tiers faster", gap))
	case -gap >= cfg.SpeedTierGap:
		adjust(SourceSpeed, -cfg.SpeedBonus, fmt.Sprintf("deck B is %d speed tiers faster", -gap))
	}

	switch diff := a.Power - b.Power; {
	case diff > cfg.PowerThreshold:
		adjust(SourcePower, cfg.PowerBonus, fmt.Sprintf("deck A has %d more power", diff))
	case -diff > cfg.PowerThreshold:
		adjust(SourcePower, -cfg.PowerBonus, fmt.Sprintf("deck B has %d more power", -diff))
	}

	if diff := a.Consistency - b.Consistency; diff != 0 {
		adjust(SourceConsistency, round1(float64(diff)*cfg.ConsistencyScale),
			fmt.Sprintf("consistency difference of %+d", diff))
	}

	rate = math.Max(cfg.MinWinRate, math.Min(cfg.MaxWinRate, rate))
	return round1(rate), adjustments
}

// SpeedTier maps a speed score to a discrete tier of the given width.
func SpeedTier(speed, width int) int {
	if width <= 0 {
		return 0
	}
	return speed / width
}

func summary(c Comparison) string {
	var b strings.Builder
	switch c.Winner {
	case WinnerA:
		b.WriteString("Deck A is stronger overall")
	case WinnerB:
		b.WriteString("Deck B is stronger overall")
	default:
		b.WriteString("The decks are even overall")
	}
	fmt.Fprintf(&b, " (categories %d-%d, %d tied). Deck A wins an estimated %.1f%% of games", c.WinsA, c.WinsB, c.Ties, c.WinRate)
	if c.ArchetypeA != "" && c.ArchetypeB != "" {
		fmt.Fprintf(&b, " as %s against %s", c.ArchetypeA, c.ArchetypeB)
	}
	b.WriteByte('.')
	return b.String()
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
