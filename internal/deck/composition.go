// Package deck models deck compositions: the multiset of cards and
// quantities that makes up one deck, its validation rules and the resolved
// snapshot the analysis components operate on.
package deck

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ramonehamilton/deck-engine/internal/cards"
)

// Entry is one card line of a composition.
type Entry struct {
	CardID   string `json:"card_id" yaml:"card_id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Composition is an immutable ordered list of entries. Operations that
// change the deck return a new Composition.
type Composition struct {
	entries []Entry
}

// NewComposition copies entries into a new composition. It does not validate;
// see ValidateStructure.
func NewComposition(entries []Entry) Composition {
	return Composition{entries: append([]Entry(nil), entries...)}
}

// Entries returns a copy of the entries in declaration order.
func (c Composition) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of entries.
func (c Composition) Len() int { return len(c.entries) }

// Total returns the summed quantity of all entries.
func (c Composition) Total() int {
	total := 0
	for _, e := range c.entries {
		total += e.Quantity
	}
	return total
}

// Quantity returns the copies of cardID in the composition.
func (c Composition) Quantity(cardID string) int {
	q := 0
	for _, e := range c.entries {
		if e.CardID == cardID {
			q += e.Quantity
		}
	}
	return q
}

// CardIDs returns the distinct card ids in declaration order.
func (c Composition) CardIDs() []string {
	seen := make(map[string]bool, len(c.entries))
	ids := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if !seen[e.CardID] {
			seen[e.CardID] = true
			ids = append(ids, e.CardID)
		}
	}
	return ids
}

// WithDelta returns a composition with delta copies of cardID added (or
// removed when negative). Entries that drop to zero are removed; new cards
// are appended.
func (c Composition) WithDelta(cardID string, delta int) Composition {
	out := make([]Entry, 0, len(c.entries)+1)
	found := false
	for _, e := range c.entries {
		if e.CardID == cardID {
			found = true
			e.Quantity += delta
		}
		if e.Quantity > 0 {
			out = append(out, e)
		}
	}
	if !found && delta > 0 {
		out = append(out, Entry{CardID: cardID, Quantity: delta})
	}
	return Composition{entries: out}
}

// Replace swaps quantity copies of oldID for newID.
func (c Composition) Replace(oldID, newID string, quantity int) Composition {
	return c.WithDelta(oldID, -quantity).WithDelta(newID, quantity)
}

// Cost sums the market price of every copy. Cards missing from byID or
// without a price count as zero.
func (c Composition) Cost(byID map[string]*cards.Card) cards.Cents {
	var total cards.Cents
	for _, e := range c.entries {
		if card, ok := byID[e.CardID]; ok {
			total += card.Price() * cards.Cents(e.Quantity)
		}
	}
	return total
}

// Canonical returns the entries merged by card id and sorted by id.
func (c Composition) Canonical() []Entry {
	merged := make(map[string]int, len(c.entries))
	for _, e := range c.entries {
		merged[e.CardID] += e.Quantity
	}
	out := make([]Entry, 0, len(merged))
	for id, q := range merged {
		out = append(out, Entry{CardID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out
}

// Equal reports whether two compositions hold the same cards and quantities,
// regardless of order.
func (c Composition) Equal(other Composition) bool {
	a, b := c.Canonical(), other.Canonical()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Key returns the canonical text form "id:qty;id:qty" of the composition.
func (c Composition) Key() string {
	var b strings.Builder
	for i, e := range c.Canonical() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.CardID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.Quantity))
	}
	return b.String()
}

// Hash returns a stable hex digest of the sorted composition and format.
// Entry order does not affect the hash.
func (c Composition) Hash(format string) string {
	d := xxhash.New()
	_, _ = d.WriteString(c.Key())
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strings.ToLower(format))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], d.Sum64())
	return hex.EncodeToString(buf[:])
}

// MarshalJSON encodes the composition as its entry list.
func (c Composition) MarshalJSON() ([]byte, error) {
	if c.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.entries)
}

// UnmarshalJSON decodes an entry list.
func (c *Composition) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.entries = entries
	return nil
}
