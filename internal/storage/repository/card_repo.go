package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/deck-engine/internal/cards"
)

// CardRepository stores the card catalog and implements cards.Catalog.
//
// Legality is only checked for enforced formats; in any other format every
// stored card is legal.
type CardRepository struct {
	db       *sql.DB
	enforced map[string]bool
}

var _ cards.Catalog = (*CardRepository)(nil)

// NewCardRepository creates a card repository enforcing legality in the
// given formats.
func NewCardRepository(db *sql.DB, enforcedFormats ...string) *CardRepository {
	enforced := make(map[string]bool, len(enforcedFormats))
	for _, f := range enforcedFormats {
		enforced[strings.ToLower(f)] = true
	}
	return &CardRepository{db: db, enforced: enforced}
}

// Upsert inserts or replaces cards and their legality rows in one transaction.
func (r *CardRepository) Upsert(ctx context.Context, cs []*cards.Card) error {
	now := time.Now()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, c := range cs {
			if c == nil || c.ID == "" {
				return fmt.Errorf("card without id")
			}
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to encode card %s: %w", c.ID, err)
			}

			var price sql.NullInt64
			if c.MarketPrice != nil {
				price = sql.NullInt64{Int64: int64(*c.MarketPrice), Valid: true}
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO cards (id, name, supertype, market_price, data, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					supertype = excluded.supertype,
					market_price = excluded.market_price,
					data = excluded.data,
					updated_at = excluded.updated_at
			`, c.ID, c.Name, string(c.Supertype), price, string(data), now)
			if err != nil {
				return fmt.Errorf("failed to upsert card %s: %w", c.ID, err)
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM card_legality WHERE card_id = ?`, c.ID); err != nil {
				return fmt.Errorf("failed to clear legality of %s: %w", c.ID, err)
			}
			for format, legal := range c.Legality {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO card_legality (card_id, format, legal) VALUES (?, ?, ?)`,
					c.ID, strings.ToLower(format), legal)
				if err != nil {
					return fmt.Errorf("failed to store legality of %s: %w", c.ID, err)
				}
			}
		}
		return nil
	})
}

// Count returns the number of stored cards.
func (r *CardRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// ResolveCards implements cards.Catalog. Unknown ids are reported together
// in a *cards.ResolutionError.
func (r *CardRepository) ResolveCards(ctx context.Context, ids []string) (map[string]*cards.Card, error) {
	out := make(map[string]*cards.Card, len(ids))
	var missing []string
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		var data string
		err := r.db.QueryRowContext(ctx, `SELECT data FROM cards WHERE id = ?`, id).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get card %s: %w", id, err)
		}
		c, err := decodeCard(data)
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	if len(missing) > 0 {
		return nil, cards.NewResolutionError(missing)
	}
	return out, nil
}

// CardPrice implements cards.Catalog.
func (r *CardRepository) CardPrice(ctx context.Context, id string) (*cards.Cents, error) {
	var price sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT market_price FROM cards WHERE id = ?`, id).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cards.NewResolutionError([]string{id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price of %s: %w", id, err)
	}
	if !price.Valid {
		return nil, nil
	}
	p := cards.Cents(price.Int64)
	return &p, nil
}

// IsLegal implements cards.Catalog. A card without a legality row for an
// enforced format is not legal there.
func (r *CardRepository) IsLegal(ctx context.Context, id, format string) (bool, error) {
	format = strings.ToLower(format)
	if !r.enforced[format] {
		return true, nil
	}
	var legal bool
	err := r.db.QueryRowContext(ctx,
		`SELECT legal FROM card_legality WHERE card_id = ? AND format = ?`, id, format).Scan(&legal)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get legality of %s: %w", id, err)
	}
	return legal, nil
}

// Candidates implements cards.Catalog. Cards are ordered by id.
func (r *CardRepository) Candidates(ctx context.Context, format string) ([]*cards.Card, error) {
	format = strings.ToLower(format)
	query := `SELECT data FROM cards ORDER BY id`
	var args []any
	if r.enforced[format] {
		query = `
			SELECT c.data FROM cards c
			JOIN card_legality l ON l.card_id = c.id
			WHERE l.format = ? AND l.legal = 1
			ORDER BY c.id
		`
		args = append(args, format)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []*cards.Card
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c, err := decodeCard(data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return out, nil
}

func decodeCard(data string) (*cards.Card, error) {
	var c cards.Card
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to decode card: %w", err)
	}
	return &c, nil
}
