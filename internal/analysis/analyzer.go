// Package analysis orchestrates a full deck analysis: it validates and
// resolves a composition once, then runs scoring, synergy, speed and
// archetype classification against the same resolved snapshot.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramonehamilton/deck-engine/internal/archetype"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/meta"
	"github.com/ramonehamilton/deck-engine/internal/metrics"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
	"github.com/ramonehamilton/deck-engine/internal/speed"
	"github.com/ramonehamilton/deck-engine/internal/synergy"
)

// Analyzer runs deck analyses. It holds no per-analysis state and is safe
// for concurrent use.
type Analyzer struct {
	catalog    cards.Catalog
	tables     *heuristics.Tables
	meta       meta.Provider
	estimator  speed.Estimator
	scorer     *scoring.Engine
	detector   *synergy.Detector
	classifier *archetype.Classifier
	cache      *Cache
	metrics    *metrics.Metrics
	logger     *slog.Logger
	margin     float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMeta sets the meta snapshot provider. Without one, meta relevance and
// innovation stay neutral.
func WithMeta(p meta.Provider) Option {
	return func(a *Analyzer) { a.meta = p }
}

// WithEstimator replaces the closed-form speed model.
func WithEstimator(e speed.Estimator) Option {
	return func(a *Analyzer) { a.estimator = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithCache memoizes results in c.
func WithCache(c *Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithArchetypeMargin sets the secondary-archetype margin in score points.
func WithArchetypeMargin(margin float64) Option {
	return func(a *Analyzer) { a.margin = margin }
}

// WithMetrics records analysis metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// NewAnalyzer creates an analyzer over a catalog and heuristic tables.
func NewAnalyzer(catalog cards.Catalog, tables *heuristics.Tables, opts ...Option) *Analyzer {
	if tables == nil {
		tables = heuristics.Default()
	}
	a := &Analyzer{
		catalog:   catalog,
		tables:    tables,
		estimator: speed.Heuristic{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.scorer = scoring.NewEngine(tables)
	a.detector = synergy.NewDetector(tables)
	a.classifier = archetype.NewClassifier(tables, a.margin)
	return a
}

// Tables returns the heuristic tables the analyzer scores with.
func (a *Analyzer) Tables() *heuristics.Tables { return a.tables }

// Catalog returns the card catalog.
func (a *Analyzer) Catalog() cards.Catalog { return a.catalog }

// Analyze validates c under format and returns its analysis. Structural
// problems, unknown cards, copy-limit and legality violations are reported
// before any scoring work starts, as *deck.ValidationError or
// *cards.ResolutionError.
func (a *Analyzer) Analyze(ctx context.Context, c deck.Composition, format string) (res *Result, err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveAnalysis(format, time.Since(start), err) }()

	rules, byID, err := a.Prepare(ctx, c, format)
	if err != nil {
		return nil, err
	}

	snap := a.Snapshot(ctx, rules.Name)
	key := CacheKey(c, rules.Name, a.tables.Version, snap)
	if cached, ok := a.cache.Get(key); ok {
		a.metrics.CacheLookup(true)
		return cached, nil
	}
	if a.cache != nil {
		a.metrics.CacheLookup(false)
	}

	res = a.Evaluate(c, rules, byID, snap)
	a.cache.Add(key, res)

	a.logger.Debug("deck analyzed",
		"format", rules.Name,
		"hash", res.CompositionHash,
		"overall", res.Scores.Overall,
		"archetype", res.Archetype.PrimaryArchetype,
		"duration", time.Since(start))
	return res, nil
}

// Prepare runs every validation step of Analyze and returns the format rules
// and the resolved cards keyed by id.
func (a *Analyzer) Prepare(ctx context.Context, c deck.Composition, format string) (heuristics.FormatRules, map[string]*cards.Card, error) {
	rules, ok := a.tables.Format(format)
	if !ok {
		return rules, nil, deck.UnknownFormat(format)
	}
	if err := deck.ValidateStructure(c, rules); err != nil {
		return rules, nil, err
	}

	ids := c.CardIDs()
	byID, err := a.catalog.ResolveCards(ctx, ids)
	if err != nil {
		var resErr *cards.ResolutionError
		if errors.As(err, &resErr) {
			return rules, nil, resErr
		}
		return rules, nil, fmt.Errorf("resolve cards: %w", err)
	}

	var legal map[string]bool
	if rules.EnforceLegality {
		legal = make(map[string]bool, len(ids))
		for _, id := range ids {
			ok, err := a.catalog.IsLegal(ctx, id, rules.Name)
			if err != nil {
				return rules, nil, fmt.Errorf("check legality of %s: %w", id, err)
			}
			legal[id] = ok
		}
	}
	if err := deck.ValidateCards(c, rules, byID, legal); err != nil {
		return rules, nil, err
	}
	return rules, byID, nil
}

// Snapshot returns the current meta snapshot for format, or nil when no
// provider is configured or the provider fails. Meta failures never fail an
// analysis.
func (a *Analyzer) Snapshot(ctx context.Context, format string) *meta.Snapshot {
	if a.meta == nil {
		return nil
	}
	snap, err := a.meta.CurrentTopArchetypes(ctx, format)
	if err != nil {
		if errors.Is(err, meta.ErrNoSnapshot) {
			a.logger.Debug("no meta snapshot", "format", format)
		} else {
			a.logger.Warn("meta snapshot unavailable, meta scores stay neutral", "format", format, "error", err)
		}
		return nil
	}
	return snap
}

// Evaluate scores an already validated composition. byID must hold every
// card of c. It performs no I/O and returns identical results for identical
// inputs.
func (a *Analyzer) Evaluate(c deck.Composition, rules heuristics.FormatRules, byID map[string]*cards.Card, snap *meta.Snapshot) *Result {
	r := deck.Resolve(c, rules, byID, a.tables)

	syn := a.detector.Detect(r)
	sp := a.estimator.Estimate(r, syn.EnergySynergy.Efficiency)
	base := a.scorer.Base(r, sp)
	class := a.classifier.Classify(r, base, syn, sp)
	scores := a.scorer.Finalize(base, r, class.PrimaryArchetype, snap)

	return &Result{
		Format:          rules.Name,
		CompositionHash: c.Hash(rules.Name),
		TablesVersion:   a.tables.Version,
		Composition:     deck.NewComposition(c.Entries()),
		Scores:          scores,
		Archetype:       class,
		Synergy:         syn,
		Speed:           sp,
		DeckInfo:        buildDeckInfo(r),
		Performance:     buildPerformance(scores),
	}
}
