// Package speed estimates how quickly a deck becomes fully operational and
// how it fares in the prize race.
//
// The default Heuristic is a closed-form estimate. Any Estimator can stand
// in for it, for example a simulation, without changing consumers.
package speed

import (
	"math"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
)

// NoAttackerSetupTurn is reported for decks without a damaging attack.
const NoAttackerSetupTurn = 5.0

// Analysis is the speed model output.
type Analysis struct {
	AverageSetupTurn           float64   `json:"average_setup_turn"`
	EnergyAttachmentEfficiency int       `json:"energy_attachment_efficiency"`
	LateGameSustainability     int       `json:"late_game_sustainability"`
	PrizeRaceSpeed             PrizeRace `json:"prize_race_speed"`
	PrimaryAttackers           []string  `json:"primary_attackers"`
}

// PrizeRace summarizes damage output.
type PrizeRace struct {
	DamageOutputPerTurn int  `json:"damage_output_per_turn"`
	MaxDamage           int  `json:"max_damage"`
	OneShotCapable      bool `json:"one_shot_capable"`
}

// Estimator produces a speed analysis. energyEfficiency is the synergy
// detector's energy metric (0-100).
type Estimator interface {
	Estimate(r *deck.Resolved, energyEfficiency int) Analysis
}

// Heuristic is the default closed-form Estimator.
type Heuristic struct{}

var _ Estimator = Heuristic{}

// AttachRate is the expected resource attachments per turn for an energy
// efficiency: one manual attachment, boosted by acceleration.
func AttachRate(efficiency int) float64 {
	return 1 + float64(efficiency)/100
}

// CardSetupTurns estimates the turn on which card can first use its best
// attack, given an attachment rate. Evolution stages overlap with energy
// attachment, so the slower of the two dominates.
func CardSetupTurns(card *cards.Card, attachRate float64) int {
	if attachRate <= 0 {
		attachRate = 1
	}
	stageTurns := card.Stage() + 1
	best, ok := card.BestAttack()
	if !ok {
		return stageTurns
	}
	energyTurns := int(math.Ceil(float64(len(best.Cost)) / attachRate))
	return max(1, energyTurns, stageTurns)
}

// EffectiveDamage is an attack's base damage plus the largest bonus its own
// text states.
func EffectiveDamage(a cards.Attack) int {
	return a.Damage + heuristics.DamageBoost(a.Text)
}

// BestEffectiveDamage returns the card's highest effective attack damage.
func BestEffectiveDamage(card *cards.Card) int {
	best := 0
	for _, a := range card.Attacks {
		best = max(best, EffectiveDamage(a))
	}
	return best
}

// PrimaryAttackers returns the creature slots whose best effective damage is
// at least 70% of the deck maximum.
func PrimaryAttackers(r *deck.Resolved) []deck.Slot {
	top := 0
	for _, s := range r.Slots {
		if s.Card.IsCreature() {
			top = max(top, BestEffectiveDamage(s.Card))
		}
	}
	if top == 0 {
		return nil
	}
	var out []deck.Slot
	for _, s := range r.Slots {
		if s.Card.IsCreature() && float64(BestEffectiveDamage(s.Card)) >= 0.7*float64(top) {
			out = append(out, s)
		}
	}
	return out
}

// Estimate implements Estimator.
func (Heuristic) Estimate(r *deck.Resolved, energyEfficiency int) Analysis {
	out := Analysis{
		EnergyAttachmentEfficiency: clampInt(energyEfficiency),
		AverageSetupTurn:           NoAttackerSetupTurn,
		LateGameSustainability:     lateGame(r),
	}

	attackers := PrimaryAttackers(r)
	if len(attackers) > 0 {
		var copies, cost, stage, damage float64
		for _, s := range attackers {
			q := float64(s.Quantity)
			best, _ := s.Card.BestAttack()
			copies += q
			cost += q * float64(len(best.Cost))
			stage += q * float64(s.Card.Stage())
			damage += q * float64(BestEffectiveDamage(s.Card))
			out.PrimaryAttackers = append(out.PrimaryAttackers, s.Card.Name)
		}
		avgCost, avgStage := cost/copies, stage/copies

		base := avgCost/AttachRate(energyEfficiency) + 0.5*avgStage
		searchDensity := 0.0
		if r.Total > 0 {
			searchDensity = float64(r.EffectCopies(heuristics.EffectSearch)) / float64(r.Total)
		}
		assembly := 1 + math.Max(0, 1-4*searchDensity)
		setup := math.Max(1, 0.7*math.Max(1, base)+0.3*assembly)
		out.AverageSetupTurn = math.Round(setup*100) / 100
		out.PrizeRaceSpeed.DamageOutputPerTurn = int(math.Round(damage / copies))
	}

	out.PrizeRaceSpeed.MaxDamage, out.PrizeRaceSpeed.OneShotCapable = maxDamage(r)
	return out
}

// maxDamage finds the best attack damage reachable with the deck's own
// boosts: the attack's own text plus the best boost any support card offers.
func maxDamage(r *deck.Resolved) (int, bool) {
	supportBoost := 0
	for _, s := range r.Slots {
		if s.Card.IsSupport() {
			supportBoost = max(supportBoost, heuristics.DamageBoost(s.Card.Text))
		}
	}
	best := 0
	for _, s := range r.Slots {
		if !s.Card.IsCreature() {
			continue
		}
		for _, a := range s.Card.Attacks {
			if a.Damage == 0 && heuristics.DamageBoost(a.Text) == 0 {
				continue
			}
			best = max(best, EffectiveDamage(a)+supportBoost)
		}
	}
	return best, r.Rules.LargeHPThreshold > 0 && best >= r.Rules.LargeHPThreshold
}

func lateGame(r *deck.Resolved) int {
	v := 30 +
		6*float64(r.EffectCopies(heuristics.EffectRecursion)) +
		2*float64(r.EffectCopies(heuristics.EffectDraw)) +
		3*float64(r.EffectCopies(heuristics.EffectHeal)) +
		1.5*float64(r.EffectCopies(heuristics.EffectSearch))
	return clampInt(int(math.Round(v)))
}

func clampInt(v int) int {
	return min(100, max(0, v))
}
