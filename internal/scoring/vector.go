// Package scoring computes the eight 0-100 quality scores of a deck.
package scoring

import (
	"math"

	"github.com/ramonehamilton/deck-engine/internal/heuristics"
)

// Score dimension names.
const (
	DimOverall       = "overall"
	DimConsistency   = "consistency"
	DimPower         = "power"
	DimSpeed         = "speed"
	DimVersatility   = "versatility"
	DimMetaRelevance = "meta_relevance"
	DimInnovation    = "innovation"
	DimDifficulty    = "difficulty"
)

// Dimensions lists every score dimension in report order.
var Dimensions = []string{
	DimOverall, DimConsistency, DimPower, DimSpeed,
	DimVersatility, DimMetaRelevance, DimInnovation, DimDifficulty,
}

// Vector holds the eight scores. Overall is always recomputable from the
// other seven with the score weights.
type Vector struct {
	Overall       int `json:"overall"`
	Consistency   int `json:"consistency"`
	Power         int `json:"power"`
	Speed         int `json:"speed"`
	Versatility   int `json:"versatility"`
	MetaRelevance int `json:"meta_relevance"`
	Innovation    int `json:"innovation"`
	Difficulty    int `json:"difficulty"`
}

// Get returns a dimension by name; unknown names return 0.
func (v Vector) Get(dim string) int {
	switch dim {
	case DimOverall:
		return v.Overall
	case DimConsistency:
		return v.Consistency
	case DimPower:
		return v.Power
	case DimSpeed:
		return v.Speed
	case DimVersatility:
		return v.Versatility
	case DimMetaRelevance:
		return v.MetaRelevance
	case DimInnovation:
		return v.Innovation
	case DimDifficulty:
		return v.Difficulty
	default:
		return 0
	}
}

// Overall computes the weighted overall score of the seven sub-scores.
func Overall(v Vector, w heuristics.ScoreWeights) int {
	sum := w.Consistency*float64(v.Consistency) +
		w.Power*float64(v.Power) +
		w.Speed*float64(v.Speed) +
		w.Versatility*float64(v.Versatility) +
		w.MetaRelevance*float64(v.MetaRelevance) +
		w.Innovation*float64(v.Innovation) +
		w.Difficulty*float64(v.Difficulty)
	return clamp(int(math.Round(sum)))
}

// Delta is a partial score change. Zero fields are omitted when encoded.
type Delta struct {
	Overall       int `json:"overall,omitempty"`
	Consistency   int `json:"consistency,omitempty"`
	Power         int `json:"power,omitempty"`
	Speed         int `json:"speed,omitempty"`
	Versatility   int `json:"versatility,omitempty"`
	MetaRelevance int `json:"meta_relevance,omitempty"`
	Innovation    int `json:"innovation,omitempty"`
	Difficulty    int `json:"difficulty,omitempty"`
}

// Diff returns after minus before.
func Diff(before, after Vector) Delta {
	return Delta{
		Overall:       after.Overall - before.Overall,
		Consistency:   after.Consistency - before.Consistency,
		Power:         after.Power - before.Power,
		Speed:         after.Speed - before.Speed,
		Versatility:   after.Versatility - before.Versatility,
		MetaRelevance: after.MetaRelevance - before.MetaRelevance,
		Innovation:    after.Innovation - before.Innovation,
		Difficulty:    after.Difficulty - before.Difficulty,
	}
}

// Add sums two deltas.
func (d Delta) Add(o Delta) Delta {
	return Delta{
		Overall:       d.Overall + o.Overall,
		Consistency:   d.Consistency + o.Consistency,
		Power:         d.Power + o.Power,
		Speed:         d.Speed + o.Speed,
		Versatility:   d.Versatility + o.Versatility,
		MetaRelevance: d.MetaRelevance + o.MetaRelevance,
		Innovation:    d.Innovation + o.Innovation,
		Difficulty:    d.Difficulty + o.Difficulty,
	}
}

// IsZero reports whether no dimension changed.
func (d Delta) IsZero() bool { return d == Delta{} }

func clamp(v int) int {
	return min(100, max(0, v))
}

func clampf(v float64) int {
	return clamp(int(math.Round(v)))
}
