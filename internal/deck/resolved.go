package deck

import (
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
)

// Slot is one resolved entry with its card data and classified effects.
type Slot struct {
	Card     *cards.Card
	Quantity int

	// Effects is the union of effect categories across all of the card's texts.
	Effects map[string]bool

	// AbilityEffects and AttackEffects are indexed like Card.Abilities and Card.Attacks.
	AbilityEffects [][]string
	AttackEffects  [][]string
}

// Has reports whether the card carries effect category.
func (s Slot) Has(category string) bool { return s.Effects[category] }

// Resolved is an immutable snapshot of a composition resolved against the
// catalog. Every analysis component reads from the same snapshot.
type Resolved struct {
	Format string
	Rules  heuristics.FormatRules
	Slots  []Slot

	Total         int
	CreatureCount int
	SupportCount  int
	ResourceCount int
}

// Resolve builds the snapshot. Every card id in c must be present in
// resolved; callers validate before resolving.
func Resolve(c Composition, rules heuristics.FormatRules, resolved map[string]*cards.Card, tables *heuristics.Tables) *Resolved {
	r := &Resolved{
		Format: rules.Name,
		Rules:  rules,
		Slots:  make([]Slot, 0, c.Len()),
	}
	for _, e := range c.entries {
		card := resolved[e.CardID]
		if card == nil {
			continue
		}
		slot := Slot{
			Card:           card,
			Quantity:       e.Quantity,
			Effects:        make(map[string]bool),
			AbilityEffects: make([][]string, len(card.Abilities)),
			AttackEffects:  make([][]string, len(card.Attacks)),
		}
		for i, ab := range card.Abilities {
			slot.AbilityEffects[i] = tables.Classify(ab.Text)
			markAll(slot.Effects, slot.AbilityEffects[i])
		}
		for i, at := range card.Attacks {
			slot.AttackEffects[i] = tables.Classify(at.Text)
			markAll(slot.Effects, slot.AttackEffects[i])
		}
		markAll(slot.Effects, tables.Classify(card.Text))
		if card.Stage() > 0 {
			slot.Effects[heuristics.EffectEvolution] = true
		}
		r.Slots = append(r.Slots, slot)

		r.Total += e.Quantity
		switch card.Supertype {
		case cards.SupertypeCreature:
			r.CreatureCount += e.Quantity
		case cards.SupertypeSupport:
			r.SupportCount += e.Quantity
		case cards.SupertypeResource:
			r.ResourceCount += e.Quantity
		}
	}
	return r
}

func markAll(set map[string]bool, categories []string) {
	for _, c := range categories {
		set[c] = true
	}
}

// CountCopies sums the quantity of slots matching pred.
func (r *Resolved) CountCopies(pred func(Slot) bool) int {
	n := 0
	for _, s := range r.Slots {
		if pred(s) {
			n += s.Quantity
		}
	}
	return n
}

// CountDistinct counts slots matching pred.
func (r *Resolved) CountDistinct(pred func(Slot) bool) int {
	n := 0
	for _, s := range r.Slots {
		if pred(s) {
			n++
		}
	}
	return n
}

// EffectCopies sums the copies of cards carrying any of the categories.
func (r *Resolved) EffectCopies(categories ...string) int {
	return r.CountCopies(func(s Slot) bool {
		for _, c := range categories {
			if s.Effects[c] {
				return true
			}
		}
		return false
	})
}

// Creatures returns the creature slots.
func (r *Resolved) Creatures() []Slot {
	out := make([]Slot, 0, len(r.Slots))
	for _, s := range r.Slots {
		if s.Card.IsCreature() {
			out = append(out, s)
		}
	}
	return out
}

// FindByName returns the slot for a card name.
func (r *Resolved) FindByName(name string) (Slot, bool) {
	for _, s := range r.Slots {
		if s.Card.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// TypeDistribution returns creature copies per elemental type.
func (r *Resolved) TypeDistribution() map[string]int {
	dist := make(map[string]int)
	for _, s := range r.Slots {
		if !s.Card.IsCreature() {
			continue
		}
		for _, t := range s.Card.Types {
			dist[t] += s.Quantity
		}
	}
	return dist
}
