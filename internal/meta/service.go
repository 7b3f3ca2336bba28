package meta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// NamedProvider is a meta source with a name for attribution.
type NamedProvider struct {
	Name     string
	Provider Provider
}

// ServiceConfig configures the meta service.
type ServiceConfig struct {
	Sources []NamedProvider

	// TTL is how long an aggregated snapshot is reused. Zero disables caching.
	TTL time.Duration

	Logger *slog.Logger
}

// Service aggregates meta snapshots from multiple sources into one snapshot
// per format. It implements Provider.
type Service struct {
	sources []NamedProvider
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

var _ Provider = (*Service)(nil)

// NewService creates a new meta service.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sources: config.Sources,
		ttl:     config.TTL,
		logger:  logger,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// CurrentTopArchetypes returns the aggregated snapshot for a format.
func (s *Service) CurrentTopArchetypes(ctx context.Context, format string) (*Snapshot, error) {
	format = strings.ToLower(format)

	s.mu.RLock()
	e, ok := s.cache[format]
	s.mu.RUnlock()
	if ok && s.now().Before(e.expiresAt) {
		return e.snapshot, nil
	}

	snap, err := s.aggregate(ctx, format)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.cache[format] = cacheEntry{snapshot: snap, expiresAt: s.now().Add(s.ttl)}
		s.mu.Unlock()
	}
	return snap, nil
}

// Refresh drops the cached snapshot for a format and fetches it again.
func (s *Service) Refresh(ctx context.Context, format string) (*Snapshot, error) {
	s.mu.Lock()
	delete(s.cache, strings.ToLower(format))
	s.mu.Unlock()
	return s.CurrentTopArchetypes(ctx, format)
}

// GetTopArchetypes returns the top N archetypes for a format.
func (s *Service) GetTopArchetypes(ctx context.Context, format string, limit int) ([]ArchetypeShare, error) {
	snap, err := s.CurrentTopArchetypes(ctx, format)
	if err != nil {
		return nil, err
	}
	return snap.Top(limit), nil
}

type sourceResult struct {
	name string
	snap *Snapshot
	err  error
}

// aggregate fetches every source concurrently and merges what succeeded.
func (s *Service) aggregate(ctx context.Context, format string) (*Snapshot, error) {
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("%w: %s (no sources configured)", ErrNoSnapshot, format)
	}

	results := make([]sourceResult, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src NamedProvider) {
			defer wg.Done()
			snap, err := src.Provider.CurrentTopArchetypes(ctx, format)
			results[i] = sourceResult{name: src.Name, snap: snap, err: err}
		}(i, src)
	}
	wg.Wait()

	var ok []sourceResult
	var errs []error
	for _, r := range results {
		if r.err != nil || r.snap == nil {
			s.logger.Warn("meta source failed", "source", r.name, "format", format, "error", r.err)
			errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		ok = append(ok, r)
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("fetch meta from any source: %w", errors.Join(errs...))
	}

	return mergeSnapshots(format, ok), nil
}

// mergeSnapshots averages archetype shares over the sources that report
// them, unions key cards and concatenates reference decks by name.
func mergeSnapshots(format string, results []sourceResult) *Snapshot {
	shares := make(map[string]float64)
	reports := make(map[string]int)
	var order []string
	keyCards := make(map[string]bool)
	decks := make(map[string]bool)

	out := &Snapshot{Format: format}
	for _, r := range results {
		out.Sources = append(out.Sources, r.name)
		if r.snap.UpdatedAt.After(out.UpdatedAt) {
			out.UpdatedAt = r.snap.UpdatedAt
		}
		for _, a := range r.snap.Archetypes {
			name := strings.ToLower(a.Archetype)
			if reports[name] == 0 {
				order = append(order, name)
			}
			shares[name] += a.Share
			reports[name]++
		}
		for _, id := range r.snap.KeyCards {
			if !keyCards[id] {
				keyCards[id] = true
				out.KeyCards = append(out.KeyCards, id)
			}
		}
		for _, d := range r.snap.ReferenceDecks {
			if !decks[d.Name] {
				decks[d.Name] = true
				out.ReferenceDecks = append(out.ReferenceDecks, d)
			}
		}
	}

	for _, name := range order {
		share := shares[name] / float64(reports[name])
		out.Archetypes = append(out.Archetypes, ArchetypeShare{
			Archetype: name,
			Share:     share,
			Tier:      TierForShare(share),
		})
	}
	sort.SliceStable(out.Archetypes, func(i, j int) bool {
		return out.Archetypes[i].Share > out.Archetypes[j].Share
	})
	return out
}
