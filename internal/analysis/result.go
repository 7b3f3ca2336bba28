package analysis

import (
	"math"

	"github.com/ramonehamilton/deck-engine/internal/archetype"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
	"github.com/ramonehamilton/deck-engine/internal/speed"
	"github.com/ramonehamilton/deck-engine/internal/synergy"
)

// Result is the complete analysis of one composition. A Result is never
// mutated after Analyze returns it.
type Result struct {
	Format          string                   `json:"format"`
	CompositionHash string                   `json:"composition_hash"`
	TablesVersion   string                   `json:"tables_version"`
	Composition     deck.Composition         `json:"composition"`
	Scores          scoring.Vector           `json:"scores"`
	Archetype       archetype.Classification `json:"archetype"`
	Synergy         synergy.Analysis         `json:"synergy"`
	Speed           speed.Analysis           `json:"speed"`
	DeckInfo        DeckInfo                 `json:"deck_info"`
	Performance     Performance              `json:"performance"`
}

// DeckInfo summarizes the shape of the deck.
type DeckInfo struct {
	TotalCards    int `json:"total_cards"`
	UniqueCards   int `json:"unique_cards"`
	CreatureCount int `json:"creature_count"`
	SupportCount  int `json:"support_count"`
	ResourceCount int `json:"resource_count"`

	// QuantityHistogram maps a copy count to the number of distinct cards
	// played at that count.
	QuantityHistogram map[int]int `json:"quantity_histogram"`

	// TypeDistribution counts creature copies per elemental type.
	TypeDistribution map[string]int `json:"type_distribution"`

	EstimatedValue cards.Cents `json:"estimated_value"`
}

// Performance holds tournament viability estimates derived from the scores.
type Performance struct {
	TournamentViability int      `json:"tournament_viability"`
	MetaTier            int      `json:"meta_tier"`
	EstimatedWinRate    float64  `json:"estimated_win_rate"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
}

func buildDeckInfo(r *deck.Resolved) DeckInfo {
	info := DeckInfo{
		TotalCards:        r.Total,
		UniqueCards:       len(r.Slots),
		CreatureCount:     r.CreatureCount,
		SupportCount:      r.SupportCount,
		ResourceCount:     r.ResourceCount,
		QuantityHistogram: make(map[int]int),
		TypeDistribution:  r.TypeDistribution(),
	}
	for _, s := range r.Slots {
		info.QuantityHistogram[s.Quantity]++
		info.EstimatedValue += s.Card.Price() * cards.Cents(s.Quantity)
	}
	return info
}

var dimensionLabels = map[string][2]string{
	scoring.DimConsistency:   {"reliable draws and setup", "inconsistent draws and setup"},
	scoring.DimPower:         {"high damage output", "low damage output"},
	scoring.DimSpeed:         {"fast setup", "slow setup"},
	scoring.DimVersatility:   {"flexible game plan", "narrow game plan"},
	scoring.DimMetaRelevance: {"well positioned in the current meta", "poorly positioned in the current meta"},
	scoring.DimInnovation:    {"novel list the field may not expect", "close copy of an established list"},
}

var labelOrder = []string{
	scoring.DimConsistency,
	scoring.DimPower,
	scoring.DimSpeed,
	scoring.DimVersatility,
	scoring.DimMetaRelevance,
	scoring.DimInnovation,
}

// buildPerformance derives viability, tier and field win rate from the score
// vector. Dimensions at 70 or above are strengths and below 40 weaknesses.
func buildPerformance(v scoring.Vector) Performance {
	viability := int(math.Round(0.5*float64(v.Overall) + 0.3*float64(v.Consistency) + 0.2*float64(v.MetaRelevance)))
	viability = max(0, min(100, viability))

	p := Performance{
		TournamentViability: viability,
		MetaTier:            metaTier(viability),
		EstimatedWinRate:    math.Round((0.5+float64(v.Overall-50)/250)*1000) / 1000,
		Strengths:           []string{},
		Weaknesses:          []string{},
	}
	for _, dim := range labelOrder {
		score := v.Get(dim)
		switch {
		case score >= 70:
			p.Strengths = append(p.Strengths, dimensionLabels[dim][0])
		case score < 40:
			p.Weaknesses = append(p.Weaknesses, dimensionLabels[dim][1])
		}
	}
	if v.Difficulty >= 70 {
		p.Weaknesses = append(p.Weaknesses, "demanding to pilot")
	}
	return p
}

func metaTier(viability int) int {
	switch {
	case viability >= 80:
		return 1
	case viability >= 65:
		return 2
	case viability >= 50:
		return 3
	default:
		return 4
	}
}
