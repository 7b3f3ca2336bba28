// Package recommendations improves deck compositions with a bounded greedy
// local search. Each step scores every single-card substitution from the
// candidate pool, accepts the one with the best goal improvement per unit of
// cost and repeats until nothing improves, the change cap is hit or the
// budget runs out. The search is not globally optimal; it trades optimality
// for one readable reason per change and a bounded runtime.
package recommendations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/meta"
	"github.com/ramonehamilton/deck-engine/internal/metrics"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
)

const (
	defaultMaxPool       = 24
	defaultMaxCandidates = 400
	runCacheSize         = 2048

	epsilon = 1e-9
)

// Optimizer runs optimization searches. It holds no per-run state and is
// safe for concurrent use.
type Optimizer struct {
	analyzer      *analysis.Analyzer
	ownership     cards.Ownership
	cache         *analysis.Cache
	metrics       *metrics.Metrics
	logger        *slog.Logger
	maxPool       int
	maxCandidates int
	parallelism   int
	progress      func(Progress)
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithOwnership sets the ownership collaborator used by owned-card
// constraints and collection builds.
func WithOwnership(o cards.Ownership) Option {
	return func(opt *Optimizer) { opt.ownership = o }
}

// WithCache shares a caller-owned analysis cache across runs. Without one,
// each run memoizes into its own cache.
func WithCache(c *analysis.Cache) Option {
	return func(o *Optimizer) { o.cache = c }
}

// WithMetrics records optimization metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Optimizer) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// WithMaxPool caps the number of distinct cards considered for addition.
func WithMaxPool(n int) Option {
	return func(o *Optimizer) { o.maxPool = n }
}

// WithMaxCandidates caps the substitutions scored per step.
func WithMaxCandidates(n int) Option {
	return func(o *Optimizer) { o.maxCandidates = n }
}

// WithParallelism sets how many candidates are scored concurrently.
func WithParallelism(n int) Option {
	return func(o *Optimizer) { o.parallelism = n }
}

// WithProgress calls fn when a run starts, on every accepted change and
// when the run finishes. fn runs on the searching goroutine and must not
// block.
func WithProgress(fn func(Progress)) Option {
	return func(o *Optimizer) { o.progress = fn }
}

// NewOptimizer creates an optimizer over an analyzer.
func NewOptimizer(a *analysis.Analyzer, opts ...Option) *Optimizer {
	o := &Optimizer{analyzer: a}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.maxPool <= 0 {
		o.maxPool = defaultMaxPool
	}
	if o.maxCandidates <= 0 {
		o.maxCandidates = defaultMaxCandidates
	}
	if o.parallelism <= 0 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}
	return o
}

// session is the state of one run.
type session struct {
	o      *Optimizer
	runID  string
	goal   Goal
	cons   Constraints
	rules  heuristics.FormatRules
	snap   *meta.Snapshot
	tables *heuristics.Tables
	cache  *analysis.Cache

	byID    map[string]*cards.Card
	pool    []*cards.Card
	owned   map[string]int
	include map[string]bool
	exclude map[string]bool

	spent     cards.Cents
	evaluated int
}

type candidate struct {
	remove, add *cards.Card
	comp        deck.Composition
	cost        cards.Cents
	result      *analysis.Result
	gain        float64
	efficiency  float64
}

// OptimizeExisting improves c toward goal under cons.
func (o *Optimizer) OptimizeExisting(ctx context.Context, c deck.Composition, cons Constraints, goal Goal) (*Result, error) {
	s, err := o.newSession(ctx, cons, goal)
	if err != nil {
		return nil, err
	}

	rules, byID, err := o.analyzer.Prepare(ctx, c, cons.Format)
	if err != nil {
		return nil, err
	}
	s.rules = rules
	s.snap = o.analyzer.Snapshot(ctx, rules.Name)
	for id, card := range byID {
		s.byID[id] = card
	}
	if err := s.loadPool(ctx, c, deckRelevance(byID)); err != nil {
		return nil, err
	}

	done := o.metrics.OptimizationStarted("existing")
	res, err := s.run(ctx, c, nil)
	if err != nil {
		done("error", 0)
		return nil, err
	}
	done(string(res.StopReason), len(res.Changes))
	return res, nil
}

func (o *Optimizer) newSession(ctx context.Context, cons Constraints, goal Goal) (*session, error) {
	if goal == "" {
		goal = GoalConsistency
	}
	if _, err := ParseGoal(string(goal)); err != nil {
		return nil, err
	}
	if cons.MaxBudget != nil && *cons.MaxBudget < 0 {
		return nil, infeasible(fmt.Sprintf("budget %s is negative", *cons.MaxBudget))
	}

	s := &session{
		o:       o,
		runID:   uuid.NewString(),
		goal:    goal,
		cons:    cons,
		tables:  o.analyzer.Tables(),
		cache:   o.cache,
		byID:    make(map[string]*cards.Card),
		include: make(map[string]bool),
		exclude: make(map[string]bool),
	}
	if s.cache == nil {
		c, err := analysis.NewCache(runCacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}

	var reasons []string
	for _, id := range cons.MustExclude {
		s.exclude[id] = true
	}
	for _, id := range cons.MustInclude {
		if s.exclude[id] {
			reasons = append(reasons, fmt.Sprintf("card %s is both required and excluded", id))
		}
		s.include[id] = true
	}

	if cons.OnlyOwnedCards {
		switch {
		case o.ownership == nil:
			reasons = append(reasons, "only owned cards requested but no collection is available")
		case cons.UserID == "":
			reasons = append(reasons, "only owned cards requested without a user id")
		default:
			owned, err := o.ownership.OwnedCards(ctx, cons.UserID)
			if err != nil {
				return nil, fmt.Errorf("load collection for %s: %w", cons.UserID, err)
			}
			s.owned = owned
		}
	}
	if len(reasons) > 0 {
		return nil, infeasible(reasons...)
	}
	return s, nil
}

// loadPool fills the candidate pool with legal, allowed cards ranked by
// relevance, and resolves must-include cards.
func (s *session) loadPool(ctx context.Context, current deck.Composition, relevance func(*cards.Card) float64) error {
	catalog := s.o.analyzer.Catalog()

	if len(s.cons.MustInclude) > 0 {
		required, err := catalog.ResolveCards(ctx, s.cons.MustInclude)
		if err != nil {
			return err
		}
		var reasons []string
		for _, id := range s.cons.MustInclude {
			card := required[id]
			s.byID[id] = card
			if s.rules.EnforceLegality {
				legal, err := catalog.IsLegal(ctx, id, s.rules.Name)
				if err != nil {
					return fmt.Errorf("check legality of %s: %w", id, err)
				}
				if !legal {
					reasons = append(reasons, fmt.Sprintf("%s is not legal in %s", card.Name, s.rules.Name))
				}
			}
			if s.owned != nil && !card.IsBasicResource() && s.owned[id] == 0 && current.Quantity(id) == 0 {
				reasons = append(reasons, fmt.Sprintf("%s is required but not owned", card.Name))
			}
		}
		if len(reasons) > 0 {
			return infeasible(reasons...)
		}
	}

	all, err := catalog.Candidates(ctx, s.rules.Name)
	if err != nil {
		return fmt.Errorf("list candidate cards: %w", err)
	}
	// Basic resources are always kept; the cap applies to the rest.
	var pool, basics []*cards.Card
	for _, c := range all {
		switch {
		case s.exclude[c.ID]:
		case c.IsBasicResource():
			basics = append(basics, c)
		case s.owned != nil && s.owned[c.ID] == 0:
		default:
			pool = append(pool, c)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return relevance(pool[i]) > relevance(pool[j]) })
	if len(pool) > s.o.maxPool {
		pool = pool[:s.o.maxPool]
	}
	pool = append(pool, basics...)
	for id := range s.include {
		if !slices.ContainsFunc(pool, func(c *cards.Card) bool { return c.ID == id }) {
			pool = append(pool, s.byID[id])
		}
	}

	s.pool = pool
	for _, c := range pool {
		s.byID[c.ID] = c
	}
	return nil
}

// deckRelevance ranks pool cards by how well they fit the elemental types
// already in the deck. Typeless cards fit any deck.
func deckRelevance(byID map[string]*cards.Card) func(*cards.Card) float64 {
	types := make(map[string]bool)
	for _, c := range byID {
		for _, t := range c.Types {
			types[t] = true
		}
	}
	return func(c *cards.Card) float64 {
		if len(c.Types) == 0 || slices.Contains(c.Types, "colorless") {
			return 1
		}
		for _, t := range c.Types {
			if types[t] {
				return 2
			}
		}
		return 0
	}
}

func (s *session) evaluate(c deck.Composition) *analysis.Result {
	key := analysis.CacheKey(c, s.rules.Name, s.tables.Version, s.snap)
	if r, ok := s.cache.Get(key); ok {
		return r
	}
	r := s.o.analyzer.Evaluate(c, s.rules, s.byID, s.snap)
	s.cache.Add(key, r)
	return r
}

func (s *session) remaining() (cards.Cents, bool) {
	if s.cons.MaxBudget == nil {
		return 0, false
	}
	return *s.cons.MaxBudget - s.spent, true
}

func (s *session) canAdd(c deck.Composition, card *cards.Card) bool {
	if !deck.CanAdd(c, card, s.rules) {
		return false
	}
	if s.owned != nil && !card.IsBasicResource() && c.Quantity(card.ID) >= s.owned[card.ID] {
		return false
	}
	return true
}

// candidates lists every single-copy substitution of a removable card by an
// addable one, in deterministic order.
func (s *session) candidates(current deck.Composition, removable func(id string) bool, additions []*cards.Card) []*candidate {
	var out []*candidate
	for _, oldID := range current.CardIDs() {
		if !removable(oldID) {
			continue
		}
		old := s.byID[oldID]
		for _, add := range additions {
			if add.ID == oldID || !s.canAdd(current, add) {
				continue
			}
			out = append(out, &candidate{
				remove: old,
				add:    add,
				comp:   current.Replace(oldID, add.ID, 1),
				cost:   add.Price() - old.Price(),
			})
			if len(out) >= s.o.maxCandidates {
				return out
			}
		}
	}
	return out
}

// score evaluates candidates concurrently.
func (s *session) score(ctx context.Context, cands []*candidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.o.parallelism)
	for _, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.result = s.evaluate(c.comp)
			return nil
		})
	}
	err := g.Wait()
	s.evaluated += len(cands)
	s.o.metrics.CandidatesEvaluated(len(cands))
	return err
}

func (s *session) gain(before *analysis.Result, c *candidate) (float64, bool) {
	if s.goal == GoalCost {
		if c.cost >= 0 || c.result.Scores.Overall < before.Scores.Overall {
			return 0, false
		}
		return -c.cost.Dollars(), true
	}
	g := s.goal.Value(c.result.Scores) - s.goal.Value(before.Scores)
	return g, g > epsilon
}

// improve runs one greedy step. It returns the best affordable improving
// candidate, or nil plus the number of improving candidates the budget
// ruled out.
func (s *session) improve(ctx context.Context, current deck.Composition, before *analysis.Result) (*candidate, int, error) {
	removable := func(id string) bool {
		return !s.include[id] || current.Quantity(id) > 1
	}
	cands := s.candidates(current, removable, s.pool)
	if err := s.score(ctx, cands); err != nil {
		return nil, 0, err
	}

	budget, limited := s.remaining()
	var best *candidate
	blocked := 0
	for _, c := range cands {
		g, ok := s.gain(before, c)
		if !ok {
			continue
		}
		if limited && c.cost > budget {
			blocked++
			continue
		}
		c.gain = g
		c.efficiency = g / (1 + max(0, c.cost.Dollars()))
		if best == nil || better(c, best) {
			best = c
		}
	}
	return best, blocked, nil
}

func better(a, b *candidate) bool {
	if a.efficiency != b.efficiency {
		return a.efficiency > b.efficiency
	}
	if a.gain != b.gain {
		return a.gain > b.gain
	}
	return a.cost < b.cost
}

// force picks the affordable candidate with the highest goal value,
// regardless of improvement.
func (s *session) force(ctx context.Context, current deck.Composition, removable func(id string) bool, additions []*cards.Card) (*candidate, error) {
	cands := s.candidates(current, removable, additions)
	if err := s.score(ctx, cands); err != nil {
		return nil, err
	}
	budget, limited := s.remaining()
	var best *candidate
	for _, c := range cands {
		if limited && c.cost > budget {
			continue
		}
		c.gain = s.goal.Value(c.result.Scores)
		if best == nil || c.gain > best.gain || (c.gain == best.gain && c.cost < best.cost) {
			best = c
		}
	}
	return best, nil
}

// run applies forced changes then the greedy search. prefix holds changes
// made before the search, such as seeding a new deck.
func (s *session) run(ctx context.Context, start deck.Composition, prefix []Change) (*Result, error) {
	s.o.logger.Info("optimization started",
		"run_id", s.runID, "goal", s.goal, "format", s.rules.Name, "pool", len(s.pool))

	startRes := s.evaluate(start)
	s.report(Progress{Kind: ProgressStarted, Overall: startRes.Scores.Overall})
	res := &Result{
		RunID:    s.runID,
		Goal:     s.goal,
		Format:   s.rules.Name,
		Original: start,
		Before:   startRes.Scores,
		Changes:  append([]Change{}, prefix...),
	}

	current, currentRes := start, startRes
	accept := func(c *candidate, forced bool, reason string) {
		ch := Change{
			Action:         ActionReplace,
			CardID:         c.add.ID,
			CardName:       c.add.Name,
			ReplacesCardID: c.remove.ID,
			Quantity:       1,
			Reasoning:      reason,
			ScoreImpact:    scoring.Diff(currentRes.Scores, c.result.Scores),
			CostDelta:      c.cost,
			Forced:         forced,
		}
		res.Changes = append(res.Changes, ch)
		s.spent += c.cost
		current, currentRes = c.comp, c.result
		s.o.logger.Debug("change accepted",
			"run_id", s.runID, "add", ch.CardID, "remove", ch.ReplacesCardID, "forced", forced, "cost", ch.CostDelta)
		s.report(Progress{Kind: ProgressChange, Change: &ch, Overall: currentRes.Scores.Overall})
	}

	stop, err := s.applyForced(ctx, &current, &currentRes, accept)
	if err != nil {
		return nil, err
	}

	blocked := 0
	if stop == "" {
		made := 0
		for {
			if ctx.Err() != nil {
				stop = StopCancelled
				break
			}
			if made >= s.cons.changeCap() {
				stop = StopChangeCap
				break
			}
			best, b, err := s.improve(ctx, current, currentRes)
			if err != nil {
				if ctx.Err() != nil {
					stop = StopCancelled
					break
				}
				return nil, err
			}
			if best == nil {
				blocked = b
				stop = StopNoImprovement
				if b > 0 {
					stop = StopBudgetExhausted
				}
				break
			}
			accept(best, false, substitutionReason(s.goal, best.remove, best.add, scoring.Diff(currentRes.Scores, best.result.Scores), best.cost))
			made++
		}
	}

	res.Optimized = current
	res.Analysis = currentRes
	res.After = currentRes.Scores
	res.ScoreImprovement = scoring.Diff(res.Before, res.After)
	res.StopReason = stop
	for _, ch := range res.Changes {
		res.TotalCostDelta += ch.CostDelta
	}
	if s.goal == GoalCost {
		res.GoalImprovement = -(current.Cost(s.byID) - start.Cost(s.byID)).Dollars()
	} else {
		res.GoalImprovement = s.goal.Value(res.After) - s.goal.Value(res.Before)
	}
	res.UnsatisfiedConstraints = s.notes(stop, blocked)
	res.Explanation = explain(res, s.goal)

	s.o.logger.Info("optimization finished",
		"run_id", s.runID, "stop_reason", stop, "changes", len(res.Changes),
		"evaluated", s.evaluated, "goal_improvement", res.GoalImprovement)
	s.report(Progress{Kind: ProgressFinished, StopReason: stop, Overall: res.After.Overall})
	return res, nil
}

// applyForced replaces must-exclude cards and swaps in missing must-include
// cards. A cancelled context stops early with StopCancelled.
func (s *session) applyForced(ctx context.Context, current *deck.Composition, currentRes **analysis.Result, accept func(*candidate, bool, string)) (StopReason, error) {
	cancelled := func(err error) (StopReason, error) {
		if ctx.Err() != nil {
			return StopCancelled, nil
		}
		return "", err
	}

	for _, id := range current.CardIDs() {
		if !s.exclude[id] {
			continue
		}
		removable := func(cardID string) bool { return cardID == id }
		for current.Quantity(id) > 0 {
			best, err := s.force(ctx, *current, removable, s.pool)
			if err != nil {
				return cancelled(err)
			}
			if best == nil {
				return "", infeasible(fmt.Sprintf("no affordable legal replacement for excluded card %s", s.byID[id].Name))
			}
			accept(best, true, fmt.Sprintf("Must-exclude: replace 1 %s with %s, the best available substitute; %s, %s.",
				best.remove.Name, best.add.Name, describeDelta(scoring.Diff((*currentRes).Scores, best.result.Scores)), describeCost(best.cost)))
		}
	}

	for _, id := range s.cons.MustInclude {
		if current.Quantity(id) > 0 {
			continue
		}
		add := s.byID[id]
		removable := func(cardID string) bool { return !s.include[cardID] }
		best, err := s.force(ctx, *current, removable, []*cards.Card{add})
		if err != nil {
			return cancelled(err)
		}
		if best == nil {
			return "", infeasible(fmt.Sprintf("required card %s cannot be added within the budget and copy limits", add.Name))
		}
		accept(best, true, fmt.Sprintf("Must-include: swap in %s for 1 %s, the removal that costs the least; %s, %s.",
			best.add.Name, best.remove.Name, describeDelta(scoring.Diff((*currentRes).Scores, best.result.Scores)), describeCost(best.cost)))
	}
	return "", nil
}

// notes lists the constraints that shaped or limited the search.
func (s *session) notes(stop StopReason, blocked int) []string {
	notes := []string{}
	if budget, limited := s.remaining(); limited {
		if stop == StopBudgetExhausted {
			notes = append(notes, fmt.Sprintf("budget: %d improving substitution(s) cost more than the remaining %s of %s",
				blocked, budget, *s.cons.MaxBudget))
		} else {
			notes = append(notes, fmt.Sprintf("budget: spent %s of %s", s.spent, *s.cons.MaxBudget))
		}
	}
	if stop == StopChangeCap {
		notes = append(notes, fmt.Sprintf("change cap: stopped after %d substitutions; further improvement may be possible", s.cons.changeCap()))
	}
	if s.owned != nil {
		notes = append(notes, fmt.Sprintf("only owned cards: candidate pool limited to %d owned card(s)", len(s.pool)))
	}
	if len(s.cons.MustExclude) > 0 {
		notes = append(notes, fmt.Sprintf("must exclude: %d card(s) kept out of the deck", len(s.cons.MustExclude)))
	}
	if len(s.cons.MustInclude) > 0 {
		notes = append(notes, fmt.Sprintf("must include: %d card(s) protected from removal", len(s.cons.MustInclude)))
	}
	return notes
}

// IsInfeasible reports whether err is a *ConstraintInfeasibleError.
func IsInfeasible(err error) bool {
	var ie *ConstraintInfeasibleError
	return errors.As(err, &ie)
}
