package repository_test

import (
	"context"
	"testing"

	"github.com/ramonehamilton/deck-engine/internal/storage"
	"github.com/ramonehamilton/deck-engine/internal/storage/repository"
)

func TestCollectionRepository_SetQuantity(t *testing.T) {
	repo := repository.NewCollectionRepository(storage.OpenTestDB(t).Conn())
	ctx := context.Background()

	if err := repo.SetQuantity(ctx, "ash", "spark-mouse", 4); err != nil {
		t.Fatalf("SetQuantity() error = %v", err)
	}
	if err := repo.SetQuantity(ctx, "ash", "spark-mouse", 2); err != nil {
		t.Fatalf("SetQuantity() error = %v", err)
	}
	if err := repo.SetQuantity(ctx, "ash", "potion", -1); err == nil {
		t.Error("expected error for negative quantity")
	}

	got, err := repo.OwnedQuantity(ctx, "ash", "spark-mouse")
	if err != nil || got != 2 {
		t.Errorf("OwnedQuantity() = %d, %v, want 2", got, err)
	}
	got, err = repo.OwnedQuantity(ctx, "misty", "spark-mouse")
	if err != nil || got != 0 {
		t.Errorf("OwnedQuantity() for another user = %d, %v, want 0", got, err)
	}
}

func TestCollectionRepository_Replace(t *testing.T) {
	repo := repository.NewCollectionRepository(storage.OpenTestDB(t).Conn())
	ctx := context.Background()

	if err := repo.SetQuantity(ctx, "ash", "old-card", 3); err != nil {
		t.Fatal(err)
	}
	if err := repo.Replace(ctx, "ash", map[string]int{"spark-mouse": 4, "potion": 2, "empty": 0}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	owned, err := repo.OwnedCards(ctx, "ash")
	if err != nil {
		t.Fatalf("OwnedCards() error = %v", err)
	}
	if len(owned) != 2 || owned["spark-mouse"] != 4 || owned["potion"] != 2 {
		t.Errorf("OwnedCards() = %v", owned)
	}

	// A failed replace leaves the previous collection intact.
	if err := repo.Replace(ctx, "ash", map[string]int{"bad": -2}); err == nil {
		t.Fatal("expected error for negative quantity")
	}
	owned, _ = repo.OwnedCards(ctx, "ash")
	if len(owned) != 2 {
		t.Errorf("collection changed by failed replace: %v", owned)
	}
}
