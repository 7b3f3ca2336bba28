// Package archetype classifies a deck into the closed archetype taxonomy by
// matching its profile against rule-based signatures.
package archetype

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
	"github.com/ramonehamilton/deck-engine/internal/speed"
	"github.com/ramonehamilton/deck-engine/internal/synergy"
)

// Fallback is the archetype reported when too few signatures match.
const Fallback = "midrange"

// Classification is the classifier output.
type Classification struct {
	PrimaryArchetype   string      `json:"primary_archetype"`
	SecondaryArchetype string      `json:"secondary_archetype,omitempty"`
	Confidence         int         `json:"confidence"`
	LowConfidence      bool        `json:"low_confidence"`
	Characteristics    []string    `json:"characteristics"`
	Playstyle          string      `json:"playstyle"`
	Candidates         []Candidate `json:"candidates"`
	Indicators         []Indicator `json:"indicators,omitempty"`
}

// Candidate is one archetype's reported signature score.
type Candidate struct {
	Archetype string `json:"archetype"`
	Score     int    `json:"score"`
}

// Indicator is a card that points at the primary archetype.
type Indicator struct {
	CardName string  `json:"card_name"`
	Weight   float64 `json:"weight"`
	Reason   string  `json:"reason"`
}

// Features is a deck profile with every value in 0-1.
type Features map[string]float64

// Classifier matches deck profiles against archetype signatures.
type Classifier struct {
	tables *heuristics.Tables
	margin float64
}

// NewClassifier creates a classifier. A non-positive margin uses the tables'
// default secondary margin.
func NewClassifier(tables *heuristics.Tables, margin float64) *Classifier {
	if margin <= 0 {
		margin = tables.Classifier.SecondaryMargin
	}
	return &Classifier{tables: tables, margin: margin}
}

// Classify profiles the deck and classifies it.
func (c *Classifier) Classify(r *deck.Resolved, v scoring.Vector, syn synergy.Analysis, sp speed.Analysis) Classification {
	f := Profile(r, v, syn, sp)
	out := c.ClassifyFeatures(f)
	out.Characteristics = characteristics(r, v, syn, sp)
	out.Playstyle = c.playstyle(out)
	out.Indicators = c.indicators(r, out.PrimaryArchetype)
	return out
}

// ClassifyFeatures scores every signature against a profile.
//
// Raw signature scores are min-max normalized across the taxonomy and then
// scaled by the top raw score, so confidence is the top archetype's absolute
// signature strength and no candidate exceeds it. When fewer than two
// signatures reach the floor the deck falls back to midrange with low
// confidence.
func (c *Classifier) ClassifyFeatures(f Features) Classification {
	sigs := c.tables.Archetypes
	raw := make([]float64, len(sigs))
	lo, hi := math.Inf(1), math.Inf(-1)
	top := 0
	matched := 0
	for i, sig := range sigs {
		raw[i] = signatureScore(sig, f)
		lo = math.Min(lo, raw[i])
		hi = math.Max(hi, raw[i])
		if raw[i] > raw[top] {
			top = i
		}
		if raw[i] >= c.tables.Classifier.Floor {
			matched++
		}
	}

	strength := math.Max(0, math.Min(100, 100*raw[top]))
	fallback := matched < 2
	if fallback {
		strength = math.Min(strength, c.tables.Classifier.LowConfidence)
	}

	out := Classification{Candidates: make([]Candidate, len(sigs))}
	for i, sig := range sigs {
		norm := 1.0
		if hi > lo {
			norm = (raw[i] - lo) / (hi - lo)
		}
		out.Candidates[i] = Candidate{Archetype: sig.Name, Score: int(math.Round(norm * strength))}
	}
	out.Confidence = int(math.Round(strength))

	if fallback {
		out.PrimaryArchetype = Fallback
		out.LowConfidence = true
		for i := range out.Candidates {
			if out.Candidates[i].Archetype == Fallback {
				out.Candidates[i].Score = out.Confidence
			}
		}
		return out
	}

	out.PrimaryArchetype = sigs[top].Name
	out.LowConfidence = strength < c.tables.Classifier.LowConfidence

	second := -1
	for i := range sigs {
		if i == top {
			continue
		}
		if second < 0 || out.Candidates[i].Score > out.Candidates[second].Score {
			second = i
		}
	}
	if second >= 0 && out.Candidates[second].Score > 0 &&
		float64(out.Confidence-out.Candidates[second].Score) <= c.margin {
		out.SecondaryArchetype = sigs[second].Name
	}
	return out
}

// signatureScore is the weighted feature sum, accumulated in sorted feature
// order so results are bit-identical between runs.
func signatureScore(sig heuristics.ArchetypeSignature, f Features) float64 {
	names := make([]string, 0, len(sig.Features))
	for name := range sig.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	total := 0.0
	for _, name := range names {
		total += sig.Features[name] * f[name]
	}
	return total
}

// Profile derives the classifier features of a deck.
func Profile(r *deck.Resolved, v scoring.Vector, syn synergy.Analysis, sp speed.Analysis) Features {
	f := Features{
		"power":       float64(v.Power) / 100,
		"speed":       float64(v.Speed) / 100,
		"consistency": float64(v.Consistency) / 100,
		"versatility": float64(v.Versatility) / 100,
		"low_power":   1 - float64(v.Power)/100,
	}

	for _, effect := range []string{
		heuristics.EffectSearch, heuristics.EffectAccelerate, heuristics.EffectDamageBoost,
		heuristics.EffectSpread, heuristics.EffectHeal, heuristics.EffectStatus,
		heuristics.EffectMill, heuristics.EffectDisruption,
	} {
		f[effect] = math.Min(1, float64(r.EffectCopies(effect))/8)
	}

	var copies, cost, hp float64
	for _, s := range r.Creatures() {
		q := float64(s.Quantity)
		copies += q
		hp += q * float64(s.Card.HPValue())
		if best, ok := s.Card.BestAttack(); ok {
			cost += q * float64(len(best.Cost))
		}
	}
	if copies > 0 {
		f["low_cost"] = 1 - math.Min(1, cost/copies/4)
		f["high_hp"] = math.Min(1, hp/copies/150)
	}
	if r.Total > 0 {
		f["support_ratio"] = math.Min(1, float64(r.SupportCount)/(0.5*float64(r.Total)))
	}
	f["type_diversity"] = math.Min(1, float64(len(r.TypeDistribution()))/4)
	f["ability_combos"] = math.Min(1, float64(len(syn.AbilityCombos))/3)
	return f
}

func characteristics(r *deck.Resolved, v scoring.Vector, syn synergy.Analysis, sp speed.Analysis) []string {
	var tags []string
	switch {
	case v.Speed >= 70:
		tags = append(tags, "fast")
	case v.Speed <= 40:
		tags = append(tags, "slow")
	}
	if v.Power >= 70 {
		tags = append(tags, "hard-hitting")
	}
	switch {
	case v.Consistency >= 70:
		tags = append(tags, "consistent")
	case v.Consistency <= 40:
		tags = append(tags, "inconsistent")
	}
	if sp.PrizeRaceSpeed.OneShotCapable {
		tags = append(tags, "one-shot capable")
	}
	if len(syn.EvolutionSynergy.Lines) > 0 {
		tags = append(tags, "evolution-based")
	}
	if r.EffectCopies(heuristics.EffectAccelerate) >= 8 {
		tags = append(tags, "energy acceleration")
	}
	if r.EffectCopies(heuristics.EffectHeal) >= 4 {
		tags = append(tags, "healing")
	}
	if r.EffectCopies(heuristics.EffectDisruption) >= 4 {
		tags = append(tags, "disruptive")
	}
	if len(syn.AbilityCombos) > 0 {
		tags = append(tags, "combo pieces")
	}
	if len(syn.TypeSynergy.Vulnerabilities) >= 3 {
		tags = append(tags, "weakness exposed")
	}
	return tags
}

func (c *Classifier) playstyle(cl Classification) string {
	sig, ok := c.tables.Signature(cl.PrimaryArchetype)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(sig.Description)
	if cl.SecondaryArchetype != "" {
		fmt.Fprintf(&b, ", with %s elements", cl.SecondaryArchetype)
	}
	b.WriteString(".")
	if cl.LowConfidence {
		b.WriteString(" No strategy dominates this list, so treat the label as tentative.")
	}
	return b.String()
}

// indicators lists the cards carrying the primary archetype's preferred
// effects, weighted by copies and effect rank.
func (c *Classifier) indicators(r *deck.Resolved, archetype string) []Indicator {
	sig, ok := c.tables.Signature(archetype)
	if !ok {
		return nil
	}
	var out []Indicator
	for _, s := range r.Slots {
		for rank, effect := range sig.PreferredEffects {
			if !s.Has(effect) {
				continue
			}
			out = append(out, Indicator{
				CardName: s.Card.Name,
				Weight:   float64(s.Quantity) * float64(len(sig.PreferredEffects)-rank) / float64(len(sig.PreferredEffects)),
				Reason:   strings.ReplaceAll(effect, "_", " ") + " effect",
			})
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}
