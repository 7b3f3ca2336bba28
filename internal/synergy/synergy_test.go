package synergy

import (
	"reflect"
	"testing"

	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
)

func detect(t *testing.T, c deck.Composition) Analysis {
	t.Helper()
	tables := heuristics.Default()
	rules, _ := tables.Format("standard")
	return NewDetector(tables).Detect(deck.Resolve(c, rules, cardstest.ByID(), tables))
}

func TestDetect_LightningDeck(t *testing.T) {
	got := detect(t, cardstest.LightningDeck())

	t.Run("energy", func(t *testing.T) {
		if got.EnergySynergy.Efficiency != 22 {
			t.Errorf("Efficiency = %d, want 22", got.EnergySynergy.Efficiency)
		}
		want := []string{"Ember Pup", "Charge Beetle", "Double Turbo Energy"}
		if !reflect.DeepEqual(got.EnergySynergy.AccelerationMethods, want) {
			t.Errorf("AccelerationMethods = %v, want %v", got.EnergySynergy.AccelerationMethods, want)
		}
	})

	t.Run("types", func(t *testing.T) {
		ts := got.TypeSynergy
		if ts.WeaknessCoverage != 75 {
			t.Errorf("WeaknessCoverage = %d, want 75", ts.WeaknessCoverage)
		}
		if !reflect.DeepEqual(ts.Vulnerabilities, []string{"water", "fighting"}) {
			t.Errorf("Vulnerabilities = %v", ts.Vulnerabilities)
		}
		if !reflect.DeepEqual(ts.PrimaryTypes, []string{"lightning", "fire"}) {
			t.Errorf("PrimaryTypes = %v", ts.PrimaryTypes)
		}
		if got.Components.TypeCoverage != 80 {
			t.Errorf("TypeCoverage component = %d, want 80", got.Components.TypeCoverage)
		}
	})

	t.Run("evolution", func(t *testing.T) {
		ev := got.EvolutionSynergy
		if ev.Reliability != 58 || ev.EvolutionSpeed != 2 {
			t.Errorf("evolution = %+v, want reliability 58 speed 2", ev)
		}
		want := []string{"Spark Mouse > Volt Rat > Storm Drake", "Ember Pup > Blaze Hound"}
		if !reflect.DeepEqual(ev.Lines, want) {
			t.Errorf("Lines = %v, want %v", ev.Lines, want)
		}
		if len(ev.BrokenLines) != 0 {
			t.Errorf("BrokenLines = %v, want none", ev.BrokenLines)
		}
	})

	t.Run("ability combos", func(t *testing.T) {
		if len(got.AbilityCombos) != 1 {
			t.Fatalf("AbilityCombos = %+v, want one", got.AbilityCombos)
		}
		c := got.AbilityCombos[0]
		if !reflect.DeepEqual(c.ParticipantCards, []string{"Scout Owl", "Ember Pup"}) {
			t.Errorf("ParticipantCards = %v", c.ParticipantCards)
		}
		if c.Tier != 3 || c.SynergyScore != 81 {
			t.Errorf("tier %d score %d, want tier 3 score 81", c.Tier, c.SynergyScore)
		}
	})

	t.Run("attack combos", func(t *testing.T) {
		if len(got.AttackCombos) != 3 {
			t.Fatalf("AttackCombos = %+v, want three", got.AttackCombos)
		}
		first := got.AttackCombos[0]
		if first.SetupCard != "Charge Beetle" || first.AttackerCard != "Volt Rat" || first.SetupTurns != 3 {
			t.Errorf("first combo = %+v", first)
		}
		for _, c := range got.AttackCombos {
			if c.SetupCard == c.AttackerCard {
				t.Errorf("combo pairs a card with itself: %+v", c)
			}
		}
	})

	t.Run("trainer synergy", func(t *testing.T) {
		if len(got.TrainerSynergy) != 6 {
			t.Errorf("TrainerSynergy has %d entries, want 6", len(got.TrainerSynergy))
		}
		for _, ts := range got.TrainerSynergy {
			if len(ts.ParticipantCards) < 2 {
				t.Errorf("trainer synergy without partner: %+v", ts)
			}
			if ts.ExpectedFrequencyPerGame <= 0 {
				t.Errorf("ExpectedFrequencyPerGame = %v", ts.ExpectedFrequencyPerGame)
			}
		}
	})

	if got.OverallSynergy != 62 {
		t.Errorf("OverallSynergy = %d, want 62", got.OverallSynergy)
	}
}

func TestDetect_NeutralDefaults(t *testing.T) {
	got := detect(t, cardstest.FloodedDeck())

	if got.AbilityCombos != nil || got.AttackCombos != nil {
		t.Errorf("expected no combos, got %d ability and %d attack", len(got.AbilityCombos), len(got.AttackCombos))
	}
	if got.Components.AbilityCombos != Neutral || got.Components.AttackCombos != Neutral {
		t.Errorf("combo components = %+v, want neutral", got.Components)
	}
	if got.EvolutionSynergy.Reliability != Neutral || got.EvolutionSynergy.EvolutionSpeed != 3 {
		t.Errorf("evolution = %+v, want neutral", got.EvolutionSynergy)
	}
	if got.EnergySynergy.Efficiency != 0 {
		t.Errorf("Efficiency = %d, want 0", got.EnergySynergy.Efficiency)
	}
	if got.TypeSynergy.WeaknessCoverage != 88 {
		t.Errorf("WeaknessCoverage = %d, want 88", got.TypeSynergy.WeaknessCoverage)
	}
	if got.OverallSynergy != 49 {
		t.Errorf("OverallSynergy = %d, want 49", got.OverallSynergy)
	}
}

func TestDetect_EfficiencyCountsResourcesOnly(t *testing.T) {
	// Ember Pup and Charge Beetle still accelerate, but no resource does.
	got := detect(t, cardstest.LightningDeck().Replace(cardstest.DoubleTurbo, cardstest.LightningEnergy, 4))

	if got.EnergySynergy.Efficiency != 0 {
		t.Errorf("Efficiency = %d, want 0", got.EnergySynergy.Efficiency)
	}
	want := []string{"Ember Pup", "Charge Beetle"}
	if !reflect.DeepEqual(got.EnergySynergy.AccelerationMethods, want) {
		t.Errorf("AccelerationMethods = %v, want %v", got.EnergySynergy.AccelerationMethods, want)
	}
}

func TestDetect_LineBasicsCountTowardReliability(t *testing.T) {
	tests := []struct {
		name string
		comp deck.Composition
		want int
	}{
		// 11 search/draw copies over 16 line copies.
		{"lightning", cardstest.LightningDeck(), 58},
		// Two more Spark Mouse copies lengthen the line to 18.
		{"extra basics", cardstest.LightningDeck().Replace(cardstest.ChargeBeetle, cardstest.SparkMouse, 2), 55},
		// Scout Owl starts no line, so trading it away only drops search.
		{"unrelated basic", cardstest.LightningDeck().Replace(cardstest.ScoutOwl, cardstest.LeafSprite, 3), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detect(t, tt.comp).EvolutionSynergy.Reliability
			if got != tt.want {
				t.Errorf("Reliability = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetect_BrokenLineHalvesReliability(t *testing.T) {
	full := detect(t, cardstest.LightningDeck())
	broken := detect(t, cardstest.LightningDeck().Replace(cardstest.EmberPup, cardstest.LeafSprite, 4))

	if !reflect.DeepEqual(broken.EvolutionSynergy.BrokenLines, []string{"Blaze Hound"}) {
		t.Fatalf("BrokenLines = %v, want [Blaze Hound]", broken.EvolutionSynergy.BrokenLines)
	}
	if broken.EvolutionSynergy.Reliability >= full.EvolutionSynergy.Reliability {
		t.Errorf("broken reliability %d should be below %d", broken.EvolutionSynergy.Reliability, full.EvolutionSynergy.Reliability)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	a := detect(t, cardstest.StallDeck())
	b := detect(t, cardstest.StallDeck())
	if !reflect.DeepEqual(a, b) {
		t.Error("Detect is not deterministic")
	}
}
