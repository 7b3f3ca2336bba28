package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/meta"
)

// MetaRepository stores one meta snapshot per format and implements
// meta.Provider.
type MetaRepository struct {
	db *sql.DB
}

var _ meta.Provider = (*MetaRepository)(nil)

// NewMetaRepository creates a meta repository.
func NewMetaRepository(db *sql.DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// Save replaces the stored snapshot of a format.
func (r *MetaRepository) Save(ctx context.Context, format string, snap *meta.Snapshot) error {
	format = strings.ToLower(format)
	if snap == nil {
		return fmt.Errorf("format %s: nil snapshot", format)
	}
	if err := snap.Prepare(format); err != nil {
		return fmt.Errorf("format %s: %w", format, err)
	}
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	source := strings.Join(snap.Sources, ",")

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"meta_archetypes", "meta_key_cards", "reference_decks"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE format = ?", format); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		for _, a := range snap.Archetypes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO meta_archetypes (format, archetype, share, tier, source, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, format, a.Archetype, a.Share, a.Tier, source, updated)
			if err != nil {
				return fmt.Errorf("failed to insert archetype %s: %w", a.Archetype, err)
			}
		}
		for _, id := range snap.KeyCards {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO meta_key_cards (format, card_id) VALUES (?, ?)`, format, id)
			if err != nil {
				return fmt.Errorf("failed to insert key card %s: %w", id, err)
			}
		}
		for _, d := range snap.ReferenceDecks {
			entries, err := json.Marshal(d.Cards)
			if err != nil {
				return fmt.Errorf("failed to encode reference deck %s: %w", d.Name, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO reference_decks (format, name, archetype, cards)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(format, name) DO UPDATE SET
					archetype = excluded.archetype,
					cards = excluded.cards
			`, format, d.Name, strings.ToLower(d.Archetype), string(entries))
			if err != nil {
				return fmt.Errorf("failed to insert reference deck %s: %w", d.Name, err)
			}
		}
		return nil
	})
}

// CurrentTopArchetypes implements meta.Provider. A format without stored
// archetypes returns meta.ErrNoSnapshot.
func (r *MetaRepository) CurrentTopArchetypes(ctx context.Context, format string) (*meta.Snapshot, error) {
	format = strings.ToLower(format)
	snap := &meta.Snapshot{Format: format}

	rows, err := r.db.QueryContext(ctx, `
		SELECT archetype, share, tier, COALESCE(source, ''), updated_at
		FROM meta_archetypes WHERE format = ?
		ORDER BY share DESC, archetype
	`, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query archetypes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a meta.ArchetypeShare
		var source string
		var updated time.Time
		if err := rows.Scan(&a.Archetype, &a.Share, &a.Tier, &source, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan archetype: %w", err)
		}
		snap.Archetypes = append(snap.Archetypes, a)
		if updated.After(snap.UpdatedAt) {
			snap.UpdatedAt = updated
		}
		if source != "" && snap.Sources == nil {
			snap.Sources = strings.Split(source, ",")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archetypes: %w", err)
	}
	if len(snap.Archetypes) == 0 {
		return nil, fmt.Errorf("%w: %s", meta.ErrNoSnapshot, format)
	}

	if snap.KeyCards, err = r.keyCards(ctx, format); err != nil {
		return nil, err
	}
	if snap.ReferenceDecks, err = r.referenceDecks(ctx, format); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *MetaRepository) keyCards(ctx context.Context, format string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT card_id FROM meta_key_cards WHERE format = ? ORDER BY card_id`, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query key cards: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan key card: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MetaRepository) referenceDecks(ctx context.Context, format string) ([]meta.ReferenceDeck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, archetype, cards FROM reference_decks WHERE format = ? ORDER BY name`, format)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference decks: %w", err)
	}
	defer rows.Close()

	var decks []meta.ReferenceDeck
	for rows.Next() {
		var d meta.ReferenceDeck
		var entries string
		if err := rows.Scan(&d.Name, &d.Archetype, &entries); err != nil {
			return nil, fmt.Errorf("failed to scan reference deck: %w", err)
		}
		var cs []deck.Entry
		if err := json.Unmarshal([]byte(entries), &cs); err != nil {
			return nil, fmt.Errorf("failed to decode reference deck %s: %w", d.Name, err)
		}
		d.Cards = cs
		decks = append(decks, d)
	}
	return decks, rows.Err()
}
