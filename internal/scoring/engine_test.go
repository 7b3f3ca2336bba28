package scoring

import (
	"testing"

	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/meta"
	"github.com/ramonehamilton/deck-engine/internal/speed"
)

func resolve(t *testing.T, c deck.Composition) (*deck.Resolved, speed.Analysis) {
	t.Helper()
	tables := heuristics.Default()
	rules, _ := tables.Format("standard")
	r := deck.Resolve(c, rules, cardstest.ByID(), tables)
	return r, speed.Heuristic{}.Estimate(r, 0)
}

func TestEngine_FloodedDeck(t *testing.T) {
	r, sp := resolve(t, cardstest.FloodedDeck())
	got := NewEngine(heuristics.Default()).Base(r, sp)

	want := Vector{
		Overall:       38,
		Consistency:   23,
		Power:         13,
		Speed:         94,
		Versatility:   27,
		MetaRelevance: Neutral,
		Innovation:    Neutral,
		Difficulty:    9,
	}
	if got != want {
		t.Errorf("Base() = %+v, want %+v", got, want)
	}
	if got.Consistency >= 40 {
		t.Errorf("consistency %d should be below 40 with 30 resources", got.Consistency)
	}
}

func TestConsistency_ResourceBand(t *testing.T) {
	tests := []struct {
		name      string
		resources int
	}{
		{name: "inside band", resources: 14},
		{name: "slightly over", resources: 18},
		{name: "far over", resources: 26},
	}

	prev := 101
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := deck.NewComposition([]deck.Entry{
				{CardID: cardstest.SparkMouse, Quantity: 4},
				{CardID: cardstest.EmberPup, Quantity: 4},
				{CardID: cardstest.ScoutOwl, Quantity: 4},
				{CardID: cardstest.DeepSearch, Quantity: 4},
				{CardID: cardstest.FieldResearcher, Quantity: 4},
				{CardID: cardstest.LightningEnergy, Quantity: tt.resources},
				{CardID: cardstest.Potion, Quantity: 40 - tt.resources},
			})
			r, _ := resolve(t, c)
			got := Consistency(r)
			if got >= prev {
				t.Errorf("Consistency(%d resources) = %d, want below %d", tt.resources, got, prev)
			}
			prev = got
		})
	}
}

func TestSpeedScore(t *testing.T) {
	tests := []struct {
		turn float64
		want int
	}{
		{1, 100},
		{2, 80},
		{3.5, 50},
		{6, 0},
		{9, 0},
	}
	for _, tt := range tests {
		if got := SpeedScore(tt.turn); got != tt.want {
			t.Errorf("SpeedScore(%v) = %d, want %d", tt.turn, got, tt.want)
		}
	}
}

func TestEngine_Finalize(t *testing.T) {
	r, sp := resolve(t, cardstest.FloodedDeck())
	e := NewEngine(heuristics.Default())
	base := e.Base(r, sp)

	snap := &meta.Snapshot{
		Archetypes: []meta.ArchetypeShare{
			{Archetype: "aggro", Share: 0.20},
			{Archetype: "stall", Share: 0.15},
			{Archetype: "combo", Share: 0.10},
		},
		KeyCards: []string{cardstest.SparkMouse},
		ReferenceDecks: []meta.ReferenceDeck{{
			Name:      "Mouse Flood",
			Archetype: "aggro",
			Cards: []deck.Entry{
				{CardID: cardstest.SparkMouse, Quantity: 20},
				{CardID: cardstest.LightningEnergy, Quantity: 30},
			},
		}},
	}

	got := e.Finalize(base, r, "aggro", snap)
	if got.MetaRelevance != 61 {
		t.Errorf("MetaRelevance = %d, want 61", got.MetaRelevance)
	}
	if got.Innovation != 17 {
		t.Errorf("Innovation = %d, want 17", got.Innovation)
	}
	if got.Overall != Overall(got, heuristics.Default().ScoreWeights) {
		t.Error("overall is not recomputable from the sub-scores")
	}

	neutral := e.Finalize(base, r, "aggro", nil)
	if neutral != base {
		t.Errorf("Finalize without snapshot = %+v, want %+v", neutral, base)
	}
}

func TestScores_Bounded(t *testing.T) {
	e := NewEngine(heuristics.Default())
	for _, c := range []deck.Composition{cardstest.FloodedDeck(), cardstest.LightningDeck(), cardstest.StallDeck(), cardstest.FloodedLegalDeck()} {
		r, sp := resolve(t, c)
		v := e.Base(r, sp)
		for _, dim := range Dimensions {
			if s := v.Get(dim); s < 0 || s > 100 {
				t.Errorf("%s = %d out of range", dim, s)
			}
		}
	}
}

func TestDiff(t *testing.T) {
	before := Vector{Overall: 50, Power: 40}
	after := Vector{Overall: 55, Power: 38, Speed: 3}
	d := Diff(before, after)
	if d != (Delta{Overall: 5, Power: -2, Speed: 3}) {
		t.Errorf("Diff() = %+v", d)
	}
	if !Diff(after, after).IsZero() {
		t.Error("Diff of equal vectors should be zero")
	}
	if sum := d.Add(d); sum.Overall != 10 || sum.Power != -4 {
		t.Errorf("Add() = %+v", sum)
	}
}
