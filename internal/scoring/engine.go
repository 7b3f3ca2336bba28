package scoring

import (
	"math"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/meta"
	"github.com/ramonehamilton/deck-engine/internal/speed"
)

// Neutral is the score reported when there is nothing to compare against.
const Neutral = 50

// Engine scores resolved decks. Scoring runs in two phases: Base needs only
// the deck, Finalize adds the archetype-dependent meta scores once the deck
// has been classified.
type Engine struct {
	tables *heuristics.Tables
}

// NewEngine creates a scoring engine.
func NewEngine(tables *heuristics.Tables) *Engine {
	return &Engine{tables: tables}
}

// Base computes consistency, power, speed, versatility and difficulty. Meta
// relevance and innovation start neutral.
func (e *Engine) Base(r *deck.Resolved, sp speed.Analysis) Vector {
	v := Vector{
		Consistency:   Consistency(r),
		Power:         Power(r, sp),
		Speed:         SpeedScore(sp.AverageSetupTurn),
		Versatility:   Versatility(r),
		Difficulty:    Difficulty(r),
		MetaRelevance: Neutral,
		Innovation:    Neutral,
	}
	v.Overall = Overall(v, e.tables.ScoreWeights)
	return v
}

// Finalize fills meta relevance and innovation from the meta snapshot. A nil
// snapshot leaves both neutral.
func (e *Engine) Finalize(v Vector, r *deck.Resolved, archetype string, snap *meta.Snapshot) Vector {
	v.MetaRelevance = e.MetaRelevance(r, archetype, snap)
	v.Innovation = Innovation(r, snap)
	v.Overall = Overall(v, e.tables.ScoreWeights)
	return v
}

// Consistency rewards search/draw density, a basic-creature floor, a
// resource count inside the format band and intact evolution lines. The
// total is scaled down in proportion to how far the resource count lies
// outside the band.
func Consistency(r *deck.Resolved) int {
	rules := r.Rules
	searchDraw := float64(r.EffectCopies(heuristics.EffectSearch, heuristics.EffectDraw))
	basics := float64(r.CountCopies(func(s deck.Slot) bool { return s.Card.IsBasicCreature() }))

	tolerance := float64(max(1, rules.ResourceTolerance))
	dist := float64(rules.ResourceBand.Distance(r.ResourceCount))

	score := 35*ratio(searchDraw, float64(rules.SearchDrawTarget)) +
		15*ratio(basics, float64(rules.BasicCreatureFloor)) +
		40*math.Max(0, 1-dist/tolerance) +
		10*lineIntegrity(r)
	score *= 1 - 0.5*math.Min(1, dist/tolerance)
	return clampf(score)
}

// lineIntegrity is the fraction of evolution copies whose previous stage is
// in the deck, or 1 without evolutions.
func lineIntegrity(r *deck.Resolved) float64 {
	names := make(map[string]bool)
	for _, s := range r.Slots {
		if s.Card.IsCreature() {
			names[s.Card.Name] = true
		}
	}
	evo, intact := 0, 0
	for _, s := range r.Slots {
		if s.Card.IsCreature() && s.Card.Stage() > 0 {
			evo += s.Quantity
			if names[s.Card.EvolvesFrom] {
				intact += s.Quantity
			}
		}
	}
	if evo == 0 {
		return 1
	}
	return float64(intact) / float64(evo)
}

// Power rewards reaching common HP thresholds, average damage and attack
// cost efficiency (damage per cost symbol) of the primary attackers.
func Power(r *deck.Resolved, sp speed.Analysis) int {
	thresholds := r.Rules.HPThresholds
	met := 0
	for _, hp := range thresholds {
		if sp.PrizeRaceSpeed.MaxDamage >= hp {
			met++
		}
	}
	thresholdScore := 0.0
	if len(thresholds) > 0 {
		thresholdScore = float64(met) / float64(len(thresholds))
	}

	var copies, efficiency float64
	for _, s := range speed.PrimaryAttackers(r) {
		best, _ := s.Card.BestAttack()
		dmg := float64(speed.EffectiveDamage(best))
		if n := len(best.Cost); n > 0 {
			dmg /= float64(n)
		}
		efficiency += float64(s.Quantity) * dmg
		copies += float64(s.Quantity)
	}
	if copies > 0 {
		efficiency /= copies
	}

	score := 40*thresholdScore +
		30*ratio(float64(sp.PrizeRaceSpeed.DamageOutputPerTurn), 220) +
		30*ratio(efficiency, 60)
	return clampf(score)
}

// SpeedScore is an inverse function of the average setup turn: turn 1 is
// 100 and every further turn costs 20 points.
func SpeedScore(setupTurn float64) int {
	return clampf(100 - (setupTurn-1)*20)
}

// Versatility rewards elemental type coverage, utility support cards and a
// spread of distinct attackers.
func Versatility(r *deck.Resolved) int {
	types := float64(len(r.TypeDistribution()))
	utility := float64(r.CountDistinct(func(s deck.Slot) bool {
		return s.Card.IsSupport() && len(s.Effects) > 0
	}))
	attackers := float64(r.CountDistinct(func(s deck.Slot) bool {
		return s.Card.IsCreature() && speed.BestEffectiveDamage(s.Card) > 0
	}))
	score := 45*ratio(types, 3) + 35*ratio(utility, 5) + 20*ratio(attackers, 4)
	return clampf(score)
}

// Difficulty rises with decision density: distinct abilities and attacks
// carrying an effect text, plus support cards with effects.
func Difficulty(r *deck.Resolved) int {
	decisions := 0
	for _, s := range r.Slots {
		decisions += len(s.Card.Abilities)
		for _, a := range s.Card.Attacks {
			if strings.TrimSpace(a.Text) != "" {
				decisions++
			}
		}
		if s.Card.IsSupport() && len(s.Effects) > 0 {
			decisions++
		}
	}
	p := float64(decisions)
	return clampf(100 * p / (p + 10))
}

// Innovation is the inverse of the largest overlap with a known reference
// deck. Overlap counts shared copies over the deck size.
func Innovation(r *deck.Resolved, snap *meta.Snapshot) int {
	if snap == nil || len(snap.ReferenceDecks) == 0 || r.Total == 0 {
		return Neutral
	}
	ours := make(map[string]int, len(r.Slots))
	for _, s := range r.Slots {
		ours[s.Card.ID] += s.Quantity
	}
	best := 0
	for _, ref := range snap.ReferenceDecks {
		shared := 0
		for _, e := range ref.Cards {
			shared += min(e.Quantity, ours[e.CardID])
		}
		best = max(best, shared)
	}
	return clampf(100 - 100*float64(best)/float64(r.Total))
}

// MetaRelevance scores how the deck's archetype fares against the field:
// share-weighted matchup advantages, whether the archetype is itself a top
// performer and how many key meta cards the deck runs.
func (e *Engine) MetaRelevance(r *deck.Resolved, archetype string, snap *meta.Snapshot) int {
	if snap == nil || len(snap.Archetypes) == 0 {
		return Neutral
	}
	score := float64(Neutral)
	for _, a := range snap.Archetypes {
		if a.Archetype == archetype {
			continue
		}
		score += a.Share * e.tables.Advantage(archetype, a.Archetype) * 3
	}

	inTop := false
	for _, a := range snap.Top(3) {
		if a.Archetype == archetype {
			inTop = true
		}
	}
	if inTop {
		score += 10
	} else {
		score -= 5
	}

	keyCards := 0
	for _, s := range r.Slots {
		if snap.IsKeyCard(s.Card.ID) {
			keyCards++
		}
	}
	score += float64(min(10, 2*keyCards))
	return clampf(score)
}

func ratio(v, target float64) float64 {
	if target <= 0 {
		return 1
	}
	return math.Min(1, v/target)
}
