// Package meta supplies the current competitive meta snapshot used to score
// meta relevance and innovation: archetype shares of the field and known
// reference ("netdecked") lists.
package meta

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/deck-engine/internal/deck"
)

// ErrNoSnapshot is returned when a provider has no data for a format.
var ErrNoSnapshot = errors.New("no meta snapshot for format")

// Provider supplies meta snapshots.
type Provider interface {
	CurrentTopArchetypes(ctx context.Context, format string) (*Snapshot, error)
}

// ArchetypeShare is one archetype's share of the field.
type ArchetypeShare struct {
	Archetype string  `json:"archetype" yaml:"archetype"`
	Share     float64 `json:"share" yaml:"share"` // fraction of the field, 0-1
	Tier      int     `json:"tier,omitempty" yaml:"tier,omitempty"`
}

// ReferenceDeck is a widely played list.
type ReferenceDeck struct {
	Name      string       `json:"name" yaml:"name"`
	Archetype string       `json:"archetype" yaml:"archetype"`
	Cards     []deck.Entry `json:"cards" yaml:"cards"`
}

// Snapshot is the meta for one format.
type Snapshot struct {
	Format         string           `json:"format" yaml:"format"`
	Archetypes     []ArchetypeShare `json:"archetypes" yaml:"archetypes"`
	ReferenceDecks []ReferenceDeck  `json:"reference_decks,omitempty" yaml:"reference_decks,omitempty"`
	KeyCards       []string         `json:"key_cards,omitempty" yaml:"key_cards,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Sources        []string         `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Top returns the n archetypes with the largest share. Ties keep name order.
func (s *Snapshot) Top(n int) []ArchetypeShare {
	out := append([]ArchetypeShare(nil), s.Archetypes...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Share != out[j].Share {
			return out[i].Share > out[j].Share
		}
		return out[i].Archetype < out[j].Archetype
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// ShareOf returns the share of an archetype, or 0 when absent.
func (s *Snapshot) ShareOf(archetype string) float64 {
	for _, a := range s.Archetypes {
		if strings.EqualFold(a.Archetype, archetype) {
			return a.Share
		}
	}
	return 0
}

// IsKeyCard reports whether a card id is listed as a key meta card.
func (s *Snapshot) IsKeyCard(cardID string) bool {
	for _, id := range s.KeyCards {
		if id == cardID {
			return true
		}
	}
	return false
}

// TierForShare maps a field share to a 1-4 tier.
func TierForShare(share float64) int {
	switch {
	case share >= 0.05:
		return 1
	case share >= 0.02:
		return 2
	case share >= 0.005:
		return 3
	default:
		return 4
	}
}

// Prepare lowercases archetype names, fills missing tiers and checks the
// shares. It is applied to every snapshot a provider serves.
func (s *Snapshot) Prepare(format string) error {
	s.normalize(format)
	return s.validate()
}

func (s *Snapshot) normalize(format string) {
	s.Format = format
	for i := range s.Archetypes {
		s.Archetypes[i].Archetype = strings.ToLower(s.Archetypes[i].Archetype)
		if s.Archetypes[i].Tier == 0 {
			s.Archetypes[i].Tier = TierForShare(s.Archetypes[i].Share)
		}
	}
}

func (s *Snapshot) validate() error {
	total := 0.0
	for _, a := range s.Archetypes {
		if a.Share < 0 || a.Share > 1 {
			return fmt.Errorf("archetype %s: share %.3f out of range", a.Archetype, a.Share)
		}
		total += a.Share
	}
	if total > 1.0001 {
		return fmt.Errorf("archetype shares sum to %.3f, exceeding 1", total)
	}
	return nil
}

// StaticProvider serves snapshots loaded from a file or built in memory.
type StaticProvider struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

type staticFile struct {
	Formats map[string]*Snapshot `yaml:"formats"`
}

// NewStatic creates a provider over in-memory snapshots keyed by format.
func NewStatic(snapshots map[string]*Snapshot) (*StaticProvider, error) {
	p := &StaticProvider{snapshots: make(map[string]*Snapshot, len(snapshots))}
	for format, snap := range snapshots {
		if err := p.Set(format, snap); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadStatic reads a YAML snapshot file of the form
// formats: {standard: {archetypes: [...], reference_decks: [...]}}.
func LoadStatic(path string) (*StaticProvider, error) {
	snapshots, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStatic(snapshots)
}

// ReadFile reads the snapshots of a YAML meta file keyed by format.
func ReadFile(path string) (map[string]*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meta file: %w", err)
	}
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse meta file %s: %w", path, err)
	}
	return f.Formats, nil
}

// Set replaces the snapshot for a format.
func (p *StaticProvider) Set(format string, snap *Snapshot) error {
	format = strings.ToLower(format)
	if snap == nil {
		return fmt.Errorf("format %s: nil snapshot", format)
	}
	if err := snap.Prepare(format); err != nil {
		return fmt.Errorf("format %s: %w", format, err)
	}
	p.mu.Lock()
	p.snapshots[format] = snap
	p.mu.Unlock()
	return nil
}

// CurrentTopArchetypes implements Provider.
func (p *StaticProvider) CurrentTopArchetypes(_ context.Context, format string) (*Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.snapshots[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, format)
	}
	return snap, nil
}
