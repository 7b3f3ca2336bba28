// Package synergy detects interactions between the cards of a deck and rolls
// them into an overall synergy score.
package synergy

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/speed"
)

// Neutral is the score of a subcomponent with nothing to measure.
const Neutral = 50

// Analysis is the synergy detector output. All five subcomponents are always present.
type Analysis struct {
	OverallSynergy   int              `json:"overall_synergy"`
	Components       Components       `json:"components"`
	TypeSynergy      TypeSynergy      `json:"type_synergy"`
	EnergySynergy    EnergySynergy    `json:"energy_synergy"`
	EvolutionSynergy EvolutionSynergy `json:"evolution_synergy"`
	AbilityCombos    []AbilityCombo   `json:"ability_combos"`
	AttackCombos     []AttackCombo    `json:"attack_combos"`
	TrainerSynergy   []TrainerSynergy `json:"trainer_synergy"`
}

// Components are the five weighted subcomponent scores.
type Components struct {
	AbilityCombos int `json:"ability_combos"`
	AttackCombos  int `json:"attack_combos"`
	TypeCoverage  int `json:"type_coverage"`
	Energy        int `json:"energy"`
	Evolution     int `json:"evolution"`
}

// TypeSynergy is how the deck's primary creature types fare against the
// common opposing types.
type TypeSynergy struct {
	WeaknessCoverage int            `json:"weakness_coverage"`
	Vulnerabilities  []string       `json:"vulnerabilities"`
	Resistances      []string       `json:"resistances"`
	PrimaryTypes     []string       `json:"primary_types"`
	Distribution     map[string]int `json:"distribution"`
}

// EnergySynergy is the share of resource cards that accelerate attachment.
type EnergySynergy struct {
	Efficiency          int      `json:"efficiency"`
	AccelerationMethods []string `json:"acceleration_methods"`
}

// EvolutionSynergy describes the deck's evolution lines and how reliably
// they come together.
type EvolutionSynergy struct {
	Reliability    int      `json:"reliability"`
	EvolutionSpeed int      `json:"evolution_speed"`
	Lines          []string `json:"lines"`
	BrokenLines    []string `json:"broken_lines,omitempty"`
}

// AbilityCombo is a pair of creature abilities whose effects reinforce each other.
type AbilityCombo struct {
	ParticipantCards []string `json:"participant_cards"`
	Abilities        []string `json:"abilities"`
	Description      string   `json:"description"`
	SynergyScore     int      `json:"synergy_score"`
	Tier             int      `json:"tier"`
}

// AttackCombo pairs a setup attack with a conditionally boosted attacker.
type AttackCombo struct {
	SetupCard        string `json:"setup_card"`
	AttackerCard     string `json:"attacker_card"`
	ComboDescription string `json:"combo_description"`
	Damage           int    `json:"damage"`
	SetupTurns       int    `json:"setup_turns"`
}

// TrainerSynergy is a support card paired with the creatures it powers.
type TrainerSynergy struct {
	ParticipantCards         []string `json:"participant_cards"`
	Effect                   string   `json:"effect"`
	SynergyScore             int      `json:"synergy_score"`
	ExpectedFrequencyPerGame float64  `json:"expected_frequency_per_game"`
}

// cardsSeenPerGame approximates the opening hand plus draws over a typical game.
const cardsSeenPerGame = 13

// Detector runs the synergy scan against a set of heuristic tables.
type Detector struct {
	tables *heuristics.Tables
}

// NewDetector creates a detector.
func NewDetector(tables *heuristics.Tables) *Detector {
	return &Detector{tables: tables}
}

// Detect analyzes a resolved deck.
func (d *Detector) Detect(r *deck.Resolved) Analysis {
	out := Analysis{
		AbilityCombos:  d.abilityCombos(r),
		TrainerSynergy: d.trainerSynergy(r),
		EnergySynergy:  energySynergy(r),
	}
	out.AttackCombos = attackCombos(r, speed.AttachRate(out.EnergySynergy.Efficiency))
	out.TypeSynergy = d.typeSynergy(r)
	out.EvolutionSynergy = evolutionSynergy(r)

	out.Components = Components{
		AbilityCombos: abilityComboScore(out.AbilityCombos),
		AttackCombos:  attackComboScore(out.AttackCombos),
		TypeCoverage:  typeScore(r, out.TypeSynergy),
		Energy:        out.EnergySynergy.Efficiency,
		Evolution:     out.EvolutionSynergy.Reliability,
	}

	w := d.tables.SynergyWeights
	overall := w.AbilityCombos*float64(out.Components.AbilityCombos) +
		w.AttackCombos*float64(out.Components.AttackCombos) +
		w.TypeCoverage*float64(out.Components.TypeCoverage) +
		w.Energy*float64(out.Components.Energy) +
		w.Evolution*float64(out.Components.Evolution)
	out.OverallSynergy = clamp(int(math.Round(overall)))
	return out
}

func (d *Detector) pairScore(tier, copies int) int {
	f := 0.8 + 0.05*float64(min(copies, 4))
	return clamp(int(math.Round(float64(d.tables.TierScore(tier)) * f)))
}

type abilityRef struct {
	slot    int
	ability string
}

// abilityCombos records, per pairing, every pair of distinct cards where one
// card's ability carries one category and the other's carries the partner.
func (d *Detector) abilityCombos(r *deck.Resolved) []AbilityCombo {
	providers := make(map[string][]abilityRef)
	for i, s := range r.Slots {
		for j, cats := range s.AbilityEffects {
			for _, c := range cats {
				providers[c] = append(providers[c], abilityRef{slot: i, ability: s.Card.Abilities[j].Name})
			}
		}
	}

	var out []AbilityCombo
	seen := make(map[string]bool)
	for _, p := range d.tables.Pairings {
		for _, a := range providers[p.A] {
			for _, b := range providers[p.B] {
				if a.slot == b.slot {
					continue
				}
				lo, hi := min(a.slot, b.slot), max(a.slot, b.slot)
				key := fmt.Sprintf("%s+%s/%d/%d", p.A, p.B, lo, hi)
				if seen[key] {
					continue
				}
				seen[key] = true

				sa, sb := r.Slots[a.slot], r.Slots[b.slot]
				out = append(out, AbilityCombo{
					ParticipantCards: []string{sa.Card.Name, sb.Card.Name},
					Abilities:        []string{a.ability, b.ability},
					Description:      p.Description,
					SynergyScore:     d.pairScore(p.Tier, min(sa.Quantity, sb.Quantity)),
					Tier:             p.Tier,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SynergyScore > out[j].SynergyScore })
	return out
}

func abilityComboScore(combos []AbilityCombo) int {
	if len(combos) == 0 {
		return Neutral
	}
	top := min(3, len(combos))
	sum := 0
	for _, c := range combos[:top] {
		sum += c.SynergyScore
	}
	bonus := 5 * min(3, len(combos)-1)
	return clamp(int(math.Round(float64(sum)/float64(top))) + bonus)
}

// attackCombos pairs a creature with a setup attack with a different
// creature whose attack is conditionally boosted by board state.
func attackCombos(r *deck.Resolved, attachRate float64) []AttackCombo {
	var out []AttackCombo
	for i, setup := range r.Slots {
		if !setup.Card.IsCreature() {
			continue
		}
		for si, setupEffects := range setup.AttackEffects {
			if !slices.Contains(setupEffects, heuristics.EffectSetup) {
				continue
			}
			for j, attacker := range r.Slots {
				if i == j || !attacker.Card.IsCreature() {
					continue
				}
				for ai, attackEffects := range attacker.AttackEffects {
					if !slices.Contains(attackEffects, heuristics.EffectConditionalBoost) {
						continue
					}
					sa, aa := setup.Card.Attacks[si], attacker.Card.Attacks[ai]
					out = append(out, AttackCombo{
						SetupCard:        setup.Card.Name,
						AttackerCard:     attacker.Card.Name,
						ComboDescription: fmt.Sprintf("%s's %s sets up %s's %s", setup.Card.Name, sa.Name, attacker.Card.Name, aa.Name),
						Damage:           speed.EffectiveDamage(aa),
						SetupTurns:       speed.CardSetupTurns(attacker.Card, attachRate),
					})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SetupTurns < out[j].SetupTurns })
	return out
}

func attackComboValue(c AttackCombo) int {
	return min(90, max(40, 90-10*(c.SetupTurns-1)))
}

func attackComboScore(combos []AttackCombo) int {
	if len(combos) == 0 {
		return Neutral
	}
	top := min(3, len(combos))
	sum := 0
	for _, c := range combos[:top] {
		sum += attackComboValue(c)
	}
	return clamp(int(math.Round(float64(sum) / float64(top))))
}

// typeSynergy cross-references the primary creature types against the
// weakness chart. A type is primary when it holds at least a quarter of the
// creature copies.
func (d *Detector) typeSynergy(r *deck.Resolved) TypeSynergy {
	dist := r.TypeDistribution()
	out := TypeSynergy{Distribution: dist, WeaknessCoverage: Neutral}
	if r.CreatureCount == 0 || len(dist) == 0 {
		return out
	}

	types := make([]string, 0, len(dist))
	for t := range dist {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if dist[types[i]] != dist[types[j]] {
			return dist[types[i]] > dist[types[j]]
		}
		return types[i] < types[j]
	})
	for _, t := range types {
		if float64(dist[t]) >= 0.25*float64(r.CreatureCount) {
			out.PrimaryTypes = append(out.PrimaryTypes, t)
		}
	}
	if len(out.PrimaryTypes) == 0 {
		out.PrimaryTypes = types[:1]
	}

	weak := make(map[string]bool)
	resist := make(map[string]bool)
	for _, t := range out.PrimaryTypes {
		m := d.tables.Types.Chart[t]
		for _, w := range m.WeakTo {
			weak[w] = true
		}
		for _, rs := range m.Resists {
			resist[rs] = true
		}
	}

	opposing := d.tables.Types.CommonOpposing
	covered := 0
	for _, t := range opposing {
		if weak[t] {
			out.Vulnerabilities = append(out.Vulnerabilities, t)
		} else {
			covered++
		}
		if resist[t] {
			out.Resistances = append(out.Resistances, t)
		}
	}
	if len(opposing) > 0 {
		out.WeaknessCoverage = int(math.Round(100 * float64(covered) / float64(len(opposing))))
	}
	return out
}

func typeScore(r *deck.Resolved, ts TypeSynergy) int {
	if r.CreatureCount == 0 {
		return Neutral
	}
	return clamp(ts.WeaknessCoverage + 5*len(ts.Resistances))
}

// energySynergy relates accelerating resource copies to the resource count.
// Creatures and supports that accelerate are listed as methods but do not
// count toward efficiency.
func energySynergy(r *deck.Resolved) EnergySynergy {
	out := EnergySynergy{Efficiency: Neutral}
	for _, s := range r.Slots {
		if s.Has(heuristics.EffectAccelerate) {
			out.AccelerationMethods = append(out.AccelerationMethods, s.Card.Name)
		}
	}
	if r.ResourceCount == 0 {
		return out
	}
	accel := r.CountCopies(func(s deck.Slot) bool {
		return s.Card.IsResource() && s.Has(heuristics.EffectAccelerate)
	})
	out.Efficiency = clamp(int(math.Round(100 * float64(accel) / float64(r.ResourceCount))))
	return out
}

// evolutionSynergy measures search/draw support against evolution-line
// copies: every evolved creature plus the in-deck creatures they evolve from.
func evolutionSynergy(r *deck.Resolved) EvolutionSynergy {
	out := EvolutionSynergy{Reliability: Neutral, EvolutionSpeed: 3}

	names := make(map[string]bool)
	evolvesInto := make(map[string]bool)
	for _, s := range r.Slots {
		if !s.Card.IsCreature() {
			continue
		}
		names[s.Card.Name] = true
		if s.Card.Stage() > 0 {
			evolvesInto[s.Card.EvolvesFrom] = true
		}
	}
	if len(evolvesInto) == 0 {
		return out
	}
	lineCopies := r.CountCopies(func(s deck.Slot) bool {
		return s.Card.IsCreature() && (s.Card.Stage() > 0 || evolvesInto[s.Card.Name])
	})

	for _, s := range r.Slots {
		c := s.Card
		if !c.IsCreature() || c.Stage() == 0 {
			continue
		}
		if !names[c.EvolvesFrom] {
			out.BrokenLines = append(out.BrokenLines, c.Name)
			continue
		}
		if evolvesInto[c.Name] {
			continue
		}
		line := []string{c.Name}
		prev := c.EvolvesFrom
		for prev != "" && names[prev] && len(line) < 3 {
			line = append(line, prev)
			p, _ := r.FindByName(prev)
			prev = p.Card.EvolvesFrom
		}
		for i, j := 0, len(line)-1; i < j; i, j = i+1, j-1 {
			line[i], line[j] = line[j], line[i]
		}
		out.Lines = append(out.Lines, strings.Join(line, " > "))
	}

	ratio := float64(r.EffectCopies(heuristics.EffectSearch, heuristics.EffectDraw)) / float64(lineCopies)
	reliability := 100 * ratio / (ratio + 0.5)
	if len(out.BrokenLines) > 0 {
		reliability /= 2
	}
	out.Reliability = clamp(int(math.Round(reliability)))
	out.EvolutionSpeed = 1 + int(math.Floor(math.Min(ratio, 2)*2))
	return out
}

// trainerSynergy pairs support cards with creatures carrying the partner
// category of an effect pairing.
func (d *Detector) trainerSynergy(r *deck.Resolved) []TrainerSynergy {
	var out []TrainerSynergy
	for _, s := range r.Slots {
		if !s.Card.IsSupport() {
			continue
		}
		for _, p := range d.tables.Pairings {
			var partner string
			switch {
			case s.Has(p.A):
				partner = p.B
			case s.Has(p.B):
				partner = p.A
			default:
				continue
			}
			participants := []string{s.Card.Name}
			for _, c := range r.Slots {
				if c.Card.IsCreature() && c.Has(partner) {
					participants = append(participants, c.Card.Name)
				}
			}
			if len(participants) == 1 {
				continue
			}
			freq := float64(s.Quantity) * cardsSeenPerGame / float64(max(1, r.Total))
			out = append(out, TrainerSynergy{
				ParticipantCards:         participants,
				Effect:                   p.Description,
				SynergyScore:             d.pairScore(p.Tier, s.Quantity),
				ExpectedFrequencyPerGame: math.Round(freq*100) / 100,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SynergyScore > out[j].SynergyScore })
	return out
}

func clamp(v int) int {
	return min(100, max(0, v))
}
