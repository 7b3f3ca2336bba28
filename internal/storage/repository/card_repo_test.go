package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
	"github.com/ramonehamilton/deck-engine/internal/storage"
	"github.com/ramonehamilton/deck-engine/internal/storage/repository"
)

func setupCardRepository(t *testing.T) *repository.CardRepository {
	t.Helper()
	repo := repository.NewCardRepository(storage.OpenTestDB(t).Conn(), "Standard", "expanded")
	if err := repo.Upsert(context.Background(), cardstest.Cards()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return repo
}

func TestCardRepository_ResolveCards(t *testing.T) {
	repo := setupCardRepository(t)
	ctx := context.Background()

	got, err := repo.ResolveCards(ctx, []string{cardstest.SparkMouse, cardstest.FieldResearcher, cardstest.SparkMouse})
	if err != nil {
		t.Fatalf("ResolveCards() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ResolveCards()) = %d, want 2", len(got))
	}

	want := cardstest.ByID()[cardstest.SparkMouse]
	mouse := got[cardstest.SparkMouse]
	if mouse.Name != want.Name || mouse.HPValue() != want.HPValue() || len(mouse.Attacks) != len(want.Attacks) {
		t.Errorf("resolved card = %+v, want %+v", mouse, want)
	}
	if !mouse.IsBasicCreature() {
		t.Error("subtypes lost in storage")
	}

	_, err = repo.ResolveCards(ctx, []string{"b-missing", cardstest.SparkMouse, "a-missing"})
	var rerr *cards.ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *cards.ResolutionError", err)
	}
	if len(rerr.Missing) != 2 || rerr.Missing[0] != "a-missing" {
		t.Errorf("Missing = %v", rerr.Missing)
	}
}

func TestCardRepository_Legality(t *testing.T) {
	repo := setupCardRepository(t)
	ctx := context.Background()

	tests := []struct {
		id     string
		format string
		want   bool
	}{
		{cardstest.AncientRelic, "standard", false},
		{cardstest.AncientRelic, "expanded", true},
		{cardstest.AncientRelic, "unlimited", true},
		{cardstest.SparkMouse, "standard", true},
		{"unknown-card", "standard", false},
		{"unknown-card", "unlimited", true},
	}
	for _, tt := range tests {
		got, err := repo.IsLegal(ctx, tt.id, tt.format)
		if err != nil {
			t.Fatalf("IsLegal(%s, %s) error = %v", tt.id, tt.format, err)
		}
		if got != tt.want {
			t.Errorf("IsLegal(%s, %s) = %v, want %v", tt.id, tt.format, got, tt.want)
		}
	}

	standard, err := repo.Candidates(ctx, "standard")
	if err != nil {
		t.Fatal(err)
	}
	unlimited, err := repo.Candidates(ctx, "unlimited")
	if err != nil {
		t.Fatal(err)
	}
	if len(unlimited) != len(cardstest.Cards()) {
		t.Errorf("unlimited candidates = %d, want %d", len(unlimited), len(cardstest.Cards()))
	}
	if len(standard) != len(unlimited)-1 {
		t.Errorf("standard candidates = %d, want %d", len(standard), len(unlimited)-1)
	}
	for i := 1; i < len(standard); i++ {
		if standard[i-1].ID >= standard[i].ID {
			t.Fatalf("candidates not ordered by id at %d", i)
		}
	}
}

func TestCardRepository_UpsertReplaces(t *testing.T) {
	repo := setupCardRepository(t)
	ctx := context.Background()

	relic := cardstest.ByID()[cardstest.AncientRelic]
	price := cards.Cents(125)
	relic.MarketPrice = &price
	relic.Legality = map[string]bool{"standard": true}
	if err := repo.Upsert(ctx, []*cards.Card{relic}); err != nil {
		t.Fatal(err)
	}

	if legal, _ := repo.IsLegal(ctx, cardstest.AncientRelic, "standard"); !legal {
		t.Error("relic should be legal in standard after update")
	}
	if legal, _ := repo.IsLegal(ctx, cardstest.AncientRelic, "expanded"); legal {
		t.Error("stale expanded legality row kept")
	}
	got, err := repo.CardPrice(ctx, cardstest.AncientRelic)
	if err != nil || got == nil || *got != 125 {
		t.Errorf("CardPrice() = %v, %v, want 125", got, err)
	}
	if n, _ := repo.Count(ctx); n != len(cardstest.Cards()) {
		t.Errorf("Count() = %d, want %d", n, len(cardstest.Cards()))
	}

	if err := repo.Upsert(ctx, []*cards.Card{{Name: "nameless"}}); err == nil {
		t.Error("expected error for a card without id")
	}
}

func TestCardRepository_CardPrice(t *testing.T) {
	repo := setupCardRepository(t)
	ctx := context.Background()

	if _, err := repo.CardPrice(ctx, "unknown-card"); err == nil {
		t.Error("expected error for unknown card")
	}

	noPrice := &cards.Card{ID: "no-price", Name: "No Price", Supertype: cards.SupertypeSupport}
	if err := repo.Upsert(ctx, []*cards.Card{noPrice}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.CardPrice(ctx, "no-price")
	if err != nil || got != nil {
		t.Errorf("CardPrice() = %v, %v, want nil, nil", got, err)
	}
}
