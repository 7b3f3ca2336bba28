// Package cards defines the card model and the catalog collaborators the
// deck engine reads card data from.
package cards

import (
	"fmt"
	"strings"
)

// Supertype is the top-level card category.
type Supertype string

const (
	SupertypeCreature Supertype = "Creature"
	SupertypeSupport  Supertype = "Support"
	SupertypeResource Supertype = "Resource"
)

// Subtypes used by the engine.
const (
	SubtypeBasic  = "Basic"
	SubtypeStage1 = "Stage1"
	SubtypeStage2 = "Stage2"
)

// Attack is a creature attack. Cost is a multiset of element tags.
type Attack struct {
	Name   string   `json:"name" yaml:"name"`
	Cost   []string `json:"cost" yaml:"cost"`
	Damage int      `json:"damage" yaml:"damage"`
	Text   string   `json:"text,omitempty" yaml:"text,omitempty"`
}

// Ability is a creature ability.
type Ability struct {
	Name string `json:"name" yaml:"name"`
	Text string `json:"text" yaml:"text"`
}

// Card is read-only catalog data.
type Card struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Supertype Supertype `json:"supertype" yaml:"supertype"`
	Subtypes  []string  `json:"subtypes,omitempty" yaml:"subtypes,omitempty"`

	// Types are the elemental type tags of the card.
	Types []string `json:"types,omitempty" yaml:"types,omitempty"`

	HP        *int      `json:"hp,omitempty" yaml:"hp,omitempty"`
	Attacks   []Attack  `json:"attacks,omitempty" yaml:"attacks,omitempty"`
	Abilities []Ability `json:"abilities,omitempty" yaml:"abilities,omitempty"`

	// EvolvesFrom names the previous stage for Stage1/Stage2 creatures.
	EvolvesFrom string `json:"evolves_from,omitempty" yaml:"evolves_from,omitempty"`

	// Text is the effect text of Support and special Resource cards.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	Rarity      string          `json:"rarity,omitempty" yaml:"rarity,omitempty"`
	Legality    map[string]bool `json:"legality,omitempty" yaml:"legality,omitempty"`
	MarketPrice *Cents          `json:"market_price,omitempty" yaml:"market_price,omitempty"`
}

// IsCreature reports whether the card is a creature.
func (c *Card) IsCreature() bool { return c.Supertype == SupertypeCreature }

// IsSupport reports whether the card is a support card.
func (c *Card) IsSupport() bool { return c.Supertype == SupertypeSupport }

// IsResource reports whether the card is a resource card.
func (c *Card) IsResource() bool { return c.Supertype == SupertypeResource }

// HasSubtype reports whether the card carries the subtype (case-insensitive).
func (c *Card) HasSubtype(subtype string) bool {
	for _, s := range c.Subtypes {
		if strings.EqualFold(s, subtype) {
			return true
		}
	}
	return false
}

// IsBasic reports whether the card has the Basic subtype.
func (c *Card) IsBasic() bool { return c.HasSubtype(SubtypeBasic) }

// IsBasicCreature reports whether the card is a Basic creature.
func (c *Card) IsBasicCreature() bool { return c.IsCreature() && c.IsBasic() }

// IsBasicResource reports whether the card is a basic resource, which has no copy limit.
func (c *Card) IsBasicResource() bool { return c.IsResource() && c.IsBasic() }

// Stage returns 0 for basic creatures, 1 or 2 for evolutions and 0 for non-creatures.
func (c *Card) Stage() int {
	switch {
	case !c.IsCreature():
		return 0
	case c.HasSubtype(SubtypeStage2):
		return 2
	case c.HasSubtype(SubtypeStage1):
		return 1
	default:
		return 0
	}
}

// HPValue returns the card's HP or 0 when unset.
func (c *Card) HPValue() int {
	if c.HP == nil {
		return 0
	}
	return *c.HP
}

// Price returns the market price or zero when unknown.
func (c *Card) Price() Cents {
	if c.MarketPrice == nil {
		return 0
	}
	return *c.MarketPrice
}

// BestAttack returns the attack with the highest damage. Ties keep the first
// declared attack. The second return value is false when the card has no attacks.
func (c *Card) BestAttack() (Attack, bool) {
	if len(c.Attacks) == 0 {
		return Attack{}, false
	}
	best := c.Attacks[0]
	for _, a := range c.Attacks[1:] {
		if a.Damage > best.Damage {
			best = a
		}
	}
	return best, true
}

// EffectTexts returns every effect text carried by the card: abilities,
// attack texts and the card text.
func (c *Card) EffectTexts() []string {
	texts := make([]string, 0, len(c.Abilities)+len(c.Attacks)+1)
	for _, ab := range c.Abilities {
		if ab.Text != "" {
			texts = append(texts, ab.Text)
		}
	}
	for _, at := range c.Attacks {
		if at.Text != "" {
			texts = append(texts, at.Text)
		}
	}
	if c.Text != "" {
		texts = append(texts, c.Text)
	}
	return texts
}

// Cents is a monetary amount in hundredths of the currency unit.
type Cents int64

// Dollars returns the amount as a float for display and ratios.
func (c Cents) Dollars() float64 { return float64(c) / 100 }

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

// CentsPtr returns a pointer to the given amount.
func CentsPtr(c Cents) *Cents { return &c }

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }
