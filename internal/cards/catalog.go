package cards

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Catalog is the read-only card database the engine resolves compositions against.
type Catalog interface {
	// ResolveCards returns the cards for ids. Unknown ids are reported
	// together in a single *ResolutionError.
	ResolveCards(ctx context.Context, ids []string) (map[string]*Card, error)

	// CardPrice returns the current market price, or nil when unknown.
	CardPrice(ctx context.Context, id string) (*Cents, error)

	// IsLegal reports whether the card may be played in format.
	IsLegal(ctx context.Context, id, format string) (bool, error)

	// Candidates lists every card legal in format. The optimizer draws its
	// substitution pool from this list.
	Candidates(ctx context.Context, format string) ([]*Card, error)
}

// Ownership reports how many copies of a card a user owns.
type Ownership interface {
	OwnedQuantity(ctx context.Context, userID, cardID string) (int, error)
	OwnedCards(ctx context.Context, userID string) (map[string]int, error)
}

// ResolutionError lists every card id the catalog could not resolve.
type ResolutionError struct {
	Missing []string
}

// NewResolutionError returns an error listing the missing ids in sorted order.
func NewResolutionError(missing []string) *ResolutionError {
	ids := append([]string(nil), missing...)
	sort.Strings(ids)
	return &ResolutionError{Missing: ids}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("catalog resolution failed: %d unknown card id(s): %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}

// MemoryCatalog is an in-memory Catalog and Ownership implementation.
// It is safe for concurrent use.
type MemoryCatalog struct {
	mu          sync.RWMutex
	cards       map[string]*Card
	order       []string
	checkLegal  map[string]bool
	collections map[string]map[string]int
}

// NewMemoryCatalog creates a catalog holding the given cards.
func NewMemoryCatalog(cs ...*Card) *MemoryCatalog {
	m := &MemoryCatalog{
		cards:       make(map[string]*Card, len(cs)),
		checkLegal:  make(map[string]bool),
		collections: make(map[string]map[string]int),
	}
	for _, c := range cs {
		m.Add(c)
	}
	return m
}

// Add inserts or replaces a card.
func (m *MemoryCatalog) Add(c *Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cards[c.ID]; !exists {
		m.order = append(m.order, c.ID)
	}
	m.cards[c.ID] = c
}

// EnforceLegality makes format legality depend on Card.Legality. Formats not
// enforced treat every card as legal.
func (m *MemoryCatalog) EnforceLegality(formats ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range formats {
		m.checkLegal[f] = true
	}
}

// SetOwned records the owned quantity of a card for a user.
func (m *MemoryCatalog) SetOwned(userID, cardID string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned, ok := m.collections[userID]
	if !ok {
		owned = make(map[string]int)
		m.collections[userID] = owned
	}
	owned[cardID] = quantity
}

// ResolveCards implements Catalog.
func (m *MemoryCatalog) ResolveCards(_ context.Context, ids []string) (map[string]*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*Card, len(ids))
	var missing []string
	for _, id := range ids {
		c, ok := m.cards[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out[id] = c
	}
	if len(missing) > 0 {
		return nil, NewResolutionError(missing)
	}
	return out, nil
}

// CardPrice implements Catalog.
func (m *MemoryCatalog) CardPrice(_ context.Context, id string) (*Cents, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, NewResolutionError([]string{id})
	}
	return c.MarketPrice, nil
}

// IsLegal implements Catalog.
func (m *MemoryCatalog) IsLegal(_ context.Context, id, format string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok {
		return false, NewResolutionError([]string{id})
	}
	return m.legalLocked(c, format), nil
}

func (m *MemoryCatalog) legalLocked(c *Card, format string) bool {
	if !m.checkLegal[format] {
		return true
	}
	return c.Legality[format]
}

// Candidates implements Catalog. Cards are returned in insertion order.
func (m *MemoryCatalog) Candidates(_ context.Context, format string) ([]*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Card, 0, len(m.order))
	for _, id := range m.order {
		c := m.cards[id]
		if m.legalLocked(c, format) {
			out = append(out, c)
		}
	}
	return out, nil
}

// OwnedQuantity implements Ownership.
func (m *MemoryCatalog) OwnedQuantity(_ context.Context, userID, cardID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collections[userID][cardID], nil
}

// OwnedCards implements Ownership.
func (m *MemoryCatalog) OwnedCards(_ context.Context, userID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.collections[userID]))
	for id, q := range m.collections[userID] {
		out[id] = q
	}
	return out, nil
}
