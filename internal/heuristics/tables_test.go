package heuristics

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	tables := Default()
	if tables.Version == "" {
		t.Fatal("expected a version")
	}
	for _, name := range []string{"standard", "expanded", "unlimited"} {
		f, ok := tables.Format(name)
		if !ok {
			t.Fatalf("format %s missing", name)
		}
		if f.DeckSize != 60 {
			t.Errorf("format %s deck size = %d, want 60", name, f.DeckSize)
		}
		if f.Name != name {
			t.Errorf("format name = %q, want %q", f.Name, name)
		}
	}
	if len(tables.Archetypes) != 9 {
		t.Errorf("archetypes = %d, want 9", len(tables.Archetypes))
	}
	if got, want := tables.EnforcedFormats(), []string{"expanded", "standard"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EnforcedFormats() = %v, want %v", got, want)
	}
}

func TestClassify(t *testing.T) {
	tables := Default()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "search for energy",
			text: "Search your deck for up to 2 basic Energy cards and attach them to your creatures.",
			want: []string{EffectSearch, EffectAccelerate, EffectSetup},
		},
		{
			name: "draw",
			text: "Draw 3 cards.",
			want: []string{EffectDraw},
		},
		{
			name: "damage boost",
			text: "During this turn, your creatures' attacks do 30 more damage.",
			want: []string{EffectDamageBoost},
		},
		{
			name: "status",
			text: "Your opponent's Active creature is now Paralyzed.",
			want: []string{EffectStatus},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tables.Classify(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAdvantage_Symmetric(t *testing.T) {
	tables := Default()

	if got := tables.Advantage("aggro", "combo"); got != 8 {
		t.Errorf("Advantage(aggro, combo) = %v, want 8", got)
	}
	if got := tables.Advantage("combo", "aggro"); got != -8 {
		t.Errorf("Advantage(combo, aggro) = %v, want -8", got)
	}
	if got := tables.Advantage("mill", "spread"); got != 0 {
		t.Errorf("unlisted pair advantage = %v, want 0", got)
	}
}

func TestBand_Distance(t *testing.T) {
	b := Band{Min: 12, Max: 16}
	tests := []struct {
		v    int
		want int
	}{
		{v: 10, want: 2},
		{v: 12, want: 0},
		{v: 14, want: 0},
		{v: 16, want: 0},
		{v: 30, want: 14},
	}
	for _, tt := range tests {
		if got := b.Distance(tt.v); got != tt.want {
			t.Errorf("Distance(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no version", yaml: "formats: {standard: {deck_size: 60, copy_limit: 4}}"},
		{name: "bad weights", yaml: `
version: "x"
formats: {standard: {deck_size: 60, copy_limit: 4}}
score_weights: {consistency: 0.5}
archetypes: [{name: aggro}]
comparator: {speed_tier_width: 20}
`},
		{name: "bad pattern", yaml: `
version: "x"
formats: {standard: {deck_size: 60, copy_limit: 4}}
score_weights: {consistency: 1}
effects: [{category: search, patterns: ["("]}]
archetypes: [{name: aggro}]
comparator: {speed_tier_width: 20}
`},
		{name: "duplicate matchup", yaml: `
version: "x"
formats: {standard: {deck_size: 60, copy_limit: 4}}
score_weights: {consistency: 1}
archetypes: [{name: aggro}]
matchups: [{a: aggro, b: stall, advantage: 3}, {a: stall, b: aggro, advantage: 3}]
comparator: {speed_tier_width: 20}
`},
		{name: "overweighted archetype", yaml: `
version: "x"
formats: {standard: {deck_size: 60, copy_limit: 4}}
score_weights: {consistency: 1}
archetypes: [{name: aggro, features: {power: 1, speed: 1, low_cost: 0.5, damage_boost: 0.5}}]
comparator: {speed_tier_width: 20}
`},
		{name: "negative archetype weight", yaml: `
version: "x"
formats: {standard: {deck_size: 60, copy_limit: 4}}
score_weights: {consistency: 1}
archetypes: [{name: aggro, features: {power: 0.8, speed: -0.3}}]
comparator: {speed_tier_width: 20}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, defaultTablesYAML, 0o644); err != nil {
		t.Fatal(err)
	}
	tables, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tables.Version != Default().Version {
		t.Errorf("version = %q, want %q", tables.Version, Default().Version)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDamageBoost(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"This attack does 30 more damage for each Energy attached.", 30},
		{"Does 10 more damage, or 90 more damage if the Defending creature is asleep.", 90},
		{"Heal 30 damage.", 0},
	}
	for _, tt := range tests {
		if got := DamageBoost(tt.text); got != tt.want {
			t.Errorf("DamageBoost(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
