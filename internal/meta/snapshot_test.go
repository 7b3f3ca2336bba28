package meta

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshot_Top(t *testing.T) {
	s := &Snapshot{Archetypes: []ArchetypeShare{
		{Archetype: "stall", Share: 0.05},
		{Archetype: "aggro", Share: 0.20},
		{Archetype: "control", Share: 0.05},
	}}

	top := s.Top(2)
	if len(top) != 2 || top[0].Archetype != "aggro" || top[1].Archetype != "control" {
		t.Errorf("Top(2) = %+v", top)
	}
	if len(s.Top(0)) != 3 {
		t.Error("Top(0) should return every archetype")
	}
	if s.Archetypes[0].Archetype != "stall" {
		t.Error("Top must not reorder the snapshot")
	}
}

func TestTierForShare(t *testing.T) {
	tests := []struct {
		share float64
		want  int
	}{
		{0.15, 1},
		{0.05, 1},
		{0.03, 2},
		{0.01, 3},
		{0.001, 4},
	}
	for _, tt := range tests {
		if got := TierForShare(tt.share); got != tt.want {
			t.Errorf("TierForShare(%v) = %d, want %d", tt.share, got, tt.want)
		}
	}
}

func TestLoadStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.yaml")
	data := `
formats:
  Standard:
    archetypes:
      - {archetype: Aggro, share: 0.25}
      - {archetype: stall, share: 0.10}
    key_cards: [spark-mouse]
    reference_decks:
      - name: Mouse Rush
        archetype: aggro
        cards:
          - {card_id: spark-mouse, quantity: 4}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic() error = %v", err)
	}
	snap, err := p.CurrentTopArchetypes(context.Background(), "standard")
	if err != nil {
		t.Fatalf("CurrentTopArchetypes() error = %v", err)
	}
	if snap.ShareOf("aggro") != 0.25 || snap.Archetypes[0].Tier != 1 {
		t.Errorf("archetypes = %+v", snap.Archetypes)
	}
	if !snap.IsKeyCard("spark-mouse") {
		t.Error("spark-mouse should be a key card")
	}
	if len(snap.ReferenceDecks) != 1 || snap.ReferenceDecks[0].Cards[0].Quantity != 4 {
		t.Errorf("reference decks = %+v", snap.ReferenceDecks)
	}

	if _, err := p.CurrentTopArchetypes(context.Background(), "expanded"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("missing format error = %v, want ErrNoSnapshot", err)
	}
}

func TestNewStatic_RejectsBadShares(t *testing.T) {
	_, err := NewStatic(map[string]*Snapshot{
		"standard": {Archetypes: []ArchetypeShare{{Archetype: "aggro", Share: 0.8}, {Archetype: "stall", Share: 0.5}}},
	})
	if err == nil {
		t.Error("expected error for shares summing above 1")
	}
}
