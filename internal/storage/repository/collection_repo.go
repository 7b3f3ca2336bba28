package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/deck-engine/internal/cards"
)

// CollectionRepository stores per-user card collections and implements
// cards.Ownership.
type CollectionRepository struct {
	db *sql.DB
}

var _ cards.Ownership = (*CollectionRepository)(nil)

// NewCollectionRepository creates a collection repository.
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// SetQuantity inserts or updates how many copies of a card a user owns.
func (r *CollectionRepository) SetQuantity(ctx context.Context, userID, cardID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("negative quantity %d for %s", quantity, cardID)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collection (user_id, card_id, quantity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, card_id) DO UPDATE SET
			quantity = excluded.quantity,
			updated_at = excluded.updated_at
	`, userID, cardID, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert collection card: %w", err)
	}
	return nil
}

// Replace overwrites a user's whole collection in one transaction.
func (r *CollectionRepository) Replace(ctx context.Context, userID string, owned map[string]int) error {
	now := time.Now()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM collection WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		for cardID, q := range owned {
			if q < 0 {
				return fmt.Errorf("negative quantity %d for %s", q, cardID)
			}
			if q == 0 {
				continue
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO collection (user_id, card_id, quantity, updated_at) VALUES (?, ?, ?, ?)`,
				userID, cardID, q, now)
			if err != nil {
				return fmt.Errorf("failed to insert collection card %s: %w", cardID, err)
			}
		}
		return nil
	})
}

// OwnedQuantity implements cards.Ownership.
func (r *CollectionRepository) OwnedQuantity(ctx context.Context, userID, cardID string) (int, error) {
	var quantity int
	err := r.db.QueryRowContext(ctx,
		`SELECT quantity FROM collection WHERE user_id = ? AND card_id = ?`, userID, cardID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get card quantity: %w", err)
	}
	return quantity, nil
}

// OwnedCards implements cards.Ownership.
func (r *CollectionRepository) OwnedCards(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT card_id, quantity FROM collection WHERE user_id = ? AND quantity > 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]int)
	for rows.Next() {
		var cardID string
		var quantity int
		if err := rows.Scan(&cardID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		owned[cardID] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection: %w", err)
	}
	return owned, nil
}
