package recommendations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/archetype"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
	"github.com/ramonehamilton/deck-engine/internal/speed"
)

// ErrUnknownArchetype is returned when a build preference names an
// archetype the tables do not define.
var ErrUnknownArchetype = errors.New("unknown archetype")

// BuildFromScratch assembles a new deck for the preferred archetype from the
// legal candidate pool, then refines it with the same local search as
// OptimizeExisting. The seeded cards are reported as add changes and count
// against the budget.
func (o *Optimizer) BuildFromScratch(ctx context.Context, cons Constraints, prefs Preferences, goal Goal) (*Result, error) {
	done := o.metrics.OptimizationStarted("build")
	res, err := o.build(ctx, cons, prefs, goal)
	if err != nil {
		done("error", 0)
		return nil, err
	}
	done(string(res.StopReason), len(res.Changes))
	return res, nil
}

// OptimizeFromCollection builds a deck from the cards userID owns and
// returns a want list of unowned cards that would improve it further.
// Basic resources are treated as always available.
func (o *Optimizer) OptimizeFromCollection(ctx context.Context, cons Constraints, prefs Preferences, goal Goal) (*Result, error) {
	cons.OnlyOwnedCards = true
	done := o.metrics.OptimizationStarted("collection")
	s, res, err := o.buildSession(ctx, cons, prefs, goal)
	if err != nil {
		done("error", 0)
		return nil, err
	}
	res.WantList = s.wantList(ctx, res.Optimized)
	if len(res.WantList) > 0 {
		res.UnsatisfiedConstraints = append(res.UnsatisfiedConstraints,
			fmt.Sprintf("collection: %d unowned card(s) would improve the deck, see the want list", len(res.WantList)))
		res.Explanation = explain(res, s.goal)
	}
	done(string(res.StopReason), len(res.Changes))
	return res, nil
}

func (o *Optimizer) build(ctx context.Context, cons Constraints, prefs Preferences, goal Goal) (*Result, error) {
	_, res, err := o.buildSession(ctx, cons, prefs, goal)
	return res, err
}

func (o *Optimizer) buildSession(ctx context.Context, cons Constraints, prefs Preferences, goal Goal) (*session, *Result, error) {
	s, err := o.newSession(ctx, cons, goal)
	if err != nil {
		return nil, nil, err
	}
	rules, ok := s.tables.Format(cons.Format)
	if !ok {
		return nil, nil, deck.UnknownFormat(cons.Format)
	}
	s.rules = rules
	s.snap = o.analyzer.Snapshot(ctx, rules.Name)

	sig, err := s.seedArchetype(prefs)
	if err != nil {
		return nil, nil, err
	}
	rank := buildRelevance(s.tables, sig, prefs)
	if err := s.loadPool(ctx, deck.Composition{}, rank); err != nil {
		return nil, nil, err
	}

	a := newAssembler(s, sig, prefs, rank)
	seed, err := a.assemble()
	if err != nil {
		return nil, nil, err
	}
	prefix := s.seedChanges(seed, a.filler, sig)
	s.spent = seed.Cost(s.byID)

	res, err := s.run(ctx, seed, prefix)
	if err != nil {
		return nil, nil, err
	}
	res.Original = deck.NewComposition(nil)
	return s, res, nil
}

// seedArchetype picks the preferred archetype, else the most played one in
// the meta, else the fallback.
func (s *session) seedArchetype(prefs Preferences) (heuristics.ArchetypeSignature, error) {
	if prefs.Archetype != "" {
		sig, ok := s.tables.Signature(strings.ToLower(prefs.Archetype))
		if !ok {
			return sig, fmt.Errorf("%w: %q", ErrUnknownArchetype, prefs.Archetype)
		}
		return sig, nil
	}
	if s.snap != nil {
		for _, a := range s.snap.Top(len(s.snap.Archetypes)) {
			if sig, ok := s.tables.Signature(a.Archetype); ok {
				return sig, nil
			}
		}
	}
	sig, _ := s.tables.Signature(archetype.Fallback)
	return sig, nil
}

func cardEffects(t *heuristics.Tables, c *cards.Card) map[string]bool {
	out := make(map[string]bool)
	for _, text := range c.EffectTexts() {
		for _, e := range t.Classify(text) {
			out[e] = true
		}
	}
	return out
}

// buildRelevance scores a card for a seeded archetype: preferred effects,
// preferred types and, for creatures, damage and bulk.
func buildRelevance(t *heuristics.Tables, sig heuristics.ArchetypeSignature, prefs Preferences) func(*cards.Card) float64 {
	memo := make(map[string]float64)
	return func(c *cards.Card) float64 {
		if v, ok := memo[c.ID]; ok {
			return v
		}
		effects := cardEffects(t, c)
		score := 0.0
		for rank, e := range sig.PreferredEffects {
			if effects[e] {
				score += 3 - 0.5*float64(rank)
			}
		}
		if effects[heuristics.EffectSearch] || effects[heuristics.EffectDraw] {
			score++
		}
		for _, typ := range c.Types {
			if slices.Contains(prefs.Types, typ) {
				score += 5
				break
			}
		}
		if c.IsCreature() {
			score += float64(speed.BestEffectiveDamage(c)) / 40
			if sig.Features["high_hp"] > 0 {
				score += float64(c.HPValue()) / 60
			}
			if best, ok := c.BestAttack(); ok && sig.Features["low_cost"] > 0 {
				score += 2 / float64(max(1, len(best.Cost)))
			}
		}
		memo[c.ID] = score
		return score
	}
}

type assembler struct {
	s     *session
	rules heuristics.FormatRules
	sig   heuristics.ArchetypeSignature
	prefs Preferences
	rank  func(*cards.Card) float64

	entries []deck.Entry
	qty     map[string]int
	total   int
	spent   cards.Cents
	filler  *cards.Card
}

func newAssembler(s *session, sig heuristics.ArchetypeSignature, prefs Preferences, rank func(*cards.Card) float64) *assembler {
	a := &assembler{s: s, rules: s.rules, sig: sig, prefs: prefs, rank: rank, qty: make(map[string]int)}
	for _, c := range s.pool {
		if !c.IsBasicResource() {
			continue
		}
		if a.filler == nil || c.Price() < a.filler.Price() || (c.Price() == a.filler.Price() && c.ID < a.filler.ID) {
			a.filler = c
		}
	}
	return a
}

// add places up to n copies of card and returns how many fit the deck size,
// copy limit, ownership and budget. The budget always keeps enough in
// reserve to fill the remaining slots with the cheapest basic resource.
func (a *assembler) add(card *cards.Card, n int) int {
	n = min(n, a.rules.DeckSize-a.total)
	if !card.IsBasicResource() {
		n = min(n, a.rules.CopyLimit-a.qty[card.ID])
		if a.s.owned != nil {
			n = min(n, a.s.owned[card.ID]-a.qty[card.ID])
		}
	}
	if budget := a.s.cons.MaxBudget; budget != nil {
		for n > 0 {
			reserve := a.filler.Price() * cards.Cents(a.rules.DeckSize-a.total-n)
			if a.spent+card.Price()*cards.Cents(n)+reserve <= *budget {
				break
			}
			n--
		}
	}
	if n <= 0 {
		return 0
	}
	if _, ok := a.qty[card.ID]; !ok {
		a.entries = append(a.entries, deck.Entry{CardID: card.ID})
	}
	for i := range a.entries {
		if a.entries[i].CardID == card.ID {
			a.entries[i].Quantity += n
		}
	}
	a.qty[card.ID] += n
	a.total += n
	a.spent += card.Price() * cards.Cents(n)
	return n
}

func (a *assembler) count(pred func(*cards.Card) bool) int {
	n := 0
	for _, e := range a.entries {
		if pred(a.s.byID[e.CardID]) {
			n += e.Quantity
		}
	}
	return n
}

func (a *assembler) ranked(pred func(*cards.Card) bool) []*cards.Card {
	var out []*cards.Card
	for _, c := range a.s.pool {
		if pred(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return a.rank(out[i]) > a.rank(out[j]) })
	return out
}

// lines groups ranked basic creatures with the pool cards that evolve from
// them, best line first.
func (a *assembler) lines() [][]*cards.Card {
	var lines [][]*cards.Card
	for _, basic := range a.ranked((*cards.Card).IsBasicCreature) {
		line := []*cards.Card{basic}
		for _, stage := range []int{1, 2} {
			for _, c := range a.s.pool {
				if c.Stage() != stage {
					continue
				}
				if slices.ContainsFunc(line, func(prev *cards.Card) bool { return prev.Name == c.EvolvesFrom }) {
					line = append(line, c)
				}
			}
		}
		lines = append(lines, line)
	}
	score := func(line []*cards.Card) float64 {
		best := 0.0
		for _, c := range line {
			best = max(best, a.rank(c))
		}
		return best
	}
	sort.SliceStable(lines, func(i, j int) bool { return score(lines[i]) > score(lines[j]) })
	return lines
}

func (a *assembler) assemble() (deck.Composition, error) {
	rules := a.rules
	if a.filler == nil {
		return deck.Composition{}, infeasible(fmt.Sprintf("no basic resource card is available in %s", rules.Name))
	}
	if budget := a.s.cons.MaxBudget; budget != nil {
		if floor := a.filler.Price() * cards.Cents(rules.DeckSize); floor > *budget {
			return deck.Composition{}, infeasible(fmt.Sprintf("budget %s cannot cover a %d-card deck, the cheapest fill costs %s",
				*budget, rules.DeckSize, floor))
		}
	}

	for _, id := range a.s.cons.MustInclude {
		card := a.s.byID[id]
		if a.add(card, rules.CopyLimit) == 0 {
			return deck.Composition{}, infeasible(fmt.Sprintf("required card %s does not fit the budget", card.Name))
		}
	}

	share := a.sig.CreatureShare
	if share <= 0 {
		share = 0.4
	}
	creatureTarget := int(math.Round(share * float64(rules.DeckSize)))
	resourceTarget := rules.ResourceBand.Mid()
	supportTarget := rules.DeckSize - creatureTarget - resourceTarget

	stageCopies := []int{rules.CopyLimit, max(1, rules.CopyLimit-1), max(1, rules.CopyLimit/2)}
	creatures := func() int { return a.count((*cards.Card).IsCreature) }
	for _, line := range a.lines() {
		for _, c := range line {
			left := creatureTarget - creatures()
			if left <= 0 {
				break
			}
			if c.Stage() > 0 && !a.hasName(c.EvolvesFrom) {
				continue
			}
			a.add(c, min(left, stageCopies[min(c.Stage(), 2)]))
		}
		if creatures() >= creatureTarget {
			break
		}
	}

	for _, c := range a.ranked((*cards.Card).IsSupport) {
		left := supportTarget - a.count((*cards.Card).IsSupport)
		if left <= 0 {
			break
		}
		a.add(c, min(left, rules.CopyLimit))
	}

	specials := a.ranked(func(c *cards.Card) bool { return c.IsResource() && !c.IsBasic() })
	for _, c := range specials {
		left := resourceTarget/4 - a.count(func(c *cards.Card) bool { return c.IsResource() && !c.IsBasic() })
		if left <= 0 || a.rank(c) <= 0 {
			break
		}
		a.add(c, min(left, rules.CopyLimit))
	}

	a.addBasicResources()
	if left := rules.DeckSize - a.total; left > 0 {
		a.add(a.filler, left)
	}
	if a.total != rules.DeckSize {
		return deck.Composition{}, infeasible(fmt.Sprintf("could only assemble %d of %d cards within the constraints", a.total, rules.DeckSize))
	}
	return deck.NewComposition(a.entries), nil
}

func (a *assembler) hasName(name string) bool {
	for id, q := range a.qty {
		if q > 0 && a.s.byID[id].Name == name {
			return true
		}
	}
	return false
}

// addBasicResources splits the open slots across basic resources matching
// the creature types, by largest remainder.
func (a *assembler) addBasicResources() {
	left := a.rules.DeckSize - a.total
	if left <= 0 {
		return
	}
	weights := make(map[string]int)
	for _, e := range a.entries {
		c := a.s.byID[e.CardID]
		if !c.IsCreature() {
			continue
		}
		for _, t := range c.Types {
			weights[t] += e.Quantity
		}
	}

	type share struct {
		card   *cards.Card
		weight int
		n      int
		rem    float64
	}
	var shares []*share
	sum := 0
	for _, c := range a.ranked((*cards.Card).IsBasicResource) {
		for _, t := range c.Types {
			if w := weights[t]; w > 0 && !slices.ContainsFunc(shares, func(s *share) bool { return s.card.ID == c.ID }) {
				shares = append(shares, &share{card: c, weight: w})
				sum += w
				delete(weights, t)
			}
		}
	}
	if sum == 0 {
		return
	}
	assigned := 0
	for _, s := range shares {
		exact := float64(left) * float64(s.weight) / float64(sum)
		s.n = int(exact)
		s.rem = exact - float64(s.n)
		assigned += s.n
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].rem > shares[j].rem })
	for i := 0; assigned < left; i++ {
		shares[i%len(shares)].n++
		assigned++
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].weight > shares[j].weight })
	for _, s := range shares {
		a.add(s.card, s.n)
	}
}

// seedChanges reports the seeded deck as add changes. Each change's score
// impact compares the seed with that card's copies swapped for filler.
func (s *session) seedChanges(seed deck.Composition, filler *cards.Card, sig heuristics.ArchetypeSignature) []Change {
	seedRes := s.evaluate(seed)
	changes := make([]Change, 0, seed.Len())
	for _, e := range seed.Entries() {
		card := s.byID[e.CardID]
		ch := Change{
			Action:    ActionAdd,
			CardID:    card.ID,
			CardName:  card.Name,
			Quantity:  e.Quantity,
			CostDelta: card.Price() * cards.Cents(e.Quantity),
			Forced:    s.include[card.ID],
		}
		if card.ID != filler.ID {
			without := s.evaluate(seed.Replace(card.ID, filler.ID, e.Quantity))
			ch.ScoreImpact = scoring.Diff(without.Scores, seedRes.Scores)
		}
		ch.Reasoning = s.seedReason(card, sig, ch.ScoreImpact)
		changes = append(changes, ch)
	}
	return changes
}

func (s *session) seedReason(card *cards.Card, sig heuristics.ArchetypeSignature, impact scoring.Delta) string {
	var why string
	effects := cardEffects(s.tables, card)
	var matched []string
	for _, e := range sig.PreferredEffects {
		if effects[e] {
			matched = append(matched, strings.ReplaceAll(e, "_", " "))
		}
	}
	switch {
	case s.include[card.ID]:
		why = "required by the must-include constraint"
	case card.IsBasicResource():
		why = "basic resource powering the deck's attackers"
	case len(matched) > 0:
		why = fmt.Sprintf("provides %s for the %s plan", strings.Join(matched, " and "), sig.Name)
	case card.IsCreature():
		why = fmt.Sprintf("attacker with %d effective damage for the %s plan", speed.BestEffectiveDamage(card), sig.Name)
	default:
		why = fmt.Sprintf("support for the %s plan", sig.Name)
	}
	return fmt.Sprintf("Add %s: %s; %s.", card.Name, why, describeDelta(impact))
}

// wantList continues the search on final with ownership and budget lifted,
// and reports the unowned copies it would add.
func (s *session) wantList(ctx context.Context, final deck.Composition) []WantItem {
	ws := *s
	ws.owned = nil
	ws.cons.MaxBudget = nil
	ws.cons.OnlyOwnedCards = false
	if err := ws.loadPool(ctx, final, buildRelevanceFromDeck(&ws, final)); err != nil {
		s.o.logger.Warn("want list skipped", "run_id", s.runID, "error", err)
		return nil
	}

	current := final
	currentRes := ws.evaluate(current)
	reasons := make(map[string]string)
	for i := 0; i < ws.cons.changeCap(); i++ {
		best, _, err := ws.improve(ctx, current, currentRes)
		if err != nil || best == nil {
			break
		}
		if _, ok := reasons[best.add.ID]; !ok {
			reasons[best.add.ID] = substitutionReason(s.goal, best.remove, best.add,
				scoring.Diff(currentRes.Scores, best.result.Scores), best.cost)
		}
		current, currentRes = best.comp, best.result
	}

	var items []WantItem
	for _, id := range current.CardIDs() {
		card := ws.byID[id]
		need := current.Quantity(id) - s.owned[id]
		if card.IsBasicResource() || need <= 0 {
			continue
		}
		items = append(items, WantItem{
			CardID:    id,
			CardName:  card.Name,
			Copies:    need,
			UnitPrice: card.Price(),
			Reasoning: reasons[id],
		})
	}
	return items
}

func buildRelevanceFromDeck(s *session, c deck.Composition) func(*cards.Card) float64 {
	byID := make(map[string]*cards.Card, c.Len())
	for _, id := range c.CardIDs() {
		byID[id] = s.byID[id]
	}
	return deckRelevance(byID)
}
