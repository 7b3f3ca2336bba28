package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/meta"
	"github.com/ramonehamilton/deck-engine/internal/storage/repository"
)

// Service bundles the repositories over one database.
type Service struct {
	db         *DB
	cards      *repository.CardRepository
	collection *repository.CollectionRepository
	meta       *repository.MetaRepository
}

// NewService creates a storage service. Card legality is enforced in the
// given formats.
func NewService(db *DB, enforcedFormats ...string) *Service {
	return &Service{
		db:         db,
		cards:      repository.NewCardRepository(db.Conn(), enforcedFormats...),
		collection: repository.NewCollectionRepository(db.Conn()),
		meta:       repository.NewMetaRepository(db.Conn()),
	}
}

// Catalog returns the card catalog.
func (s *Service) Catalog() *repository.CardRepository { return s.cards }

// Collection returns the collection store, which implements cards.Ownership.
func (s *Service) Collection() *repository.CollectionRepository { return s.collection }

// Meta returns the stored meta snapshots.
func (s *Service) Meta() *repository.MetaRepository { return s.meta }

// ImportCards stores cards and returns the catalog size afterwards.
func (s *Service) ImportCards(ctx context.Context, cs []*cards.Card) (int, error) {
	if err := s.cards.Upsert(ctx, cs); err != nil {
		return 0, fmt.Errorf("import cards: %w", err)
	}
	return s.cards.Count(ctx)
}

// ImportMeta stores snapshots keyed by format, replacing what each format had.
func (s *Service) ImportMeta(ctx context.Context, snapshots map[string]*meta.Snapshot) error {
	formats := make([]string, 0, len(snapshots))
	for f := range snapshots {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		if err := s.meta.Save(ctx, f, snapshots[f]); err != nil {
			return fmt.Errorf("import meta: %w", err)
		}
	}
	return nil
}

// DB returns the underlying database.
func (s *Service) DB() *DB { return s.db }

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}
