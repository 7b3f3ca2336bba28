// Package cardstest provides a fixture card pool and sample decks for tests.
package cardstest

import (
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
)

// Fixture card ids.
const (
	SparkMouse   = "spark-mouse"
	VoltRat      = "volt-rat"
	EmberPup     = "ember-pup"
	BlazeHound   = "blaze-hound"
	TideTurtle   = "tide-turtle"
	ScoutOwl     = "scout-owl"
	RockGolem    = "rock-golem"
	DreadMoth    = "dread-moth"
	ChargeBeetle = "charge-beetle"
	StormDrake   = "storm-drake"
	LeafSprite   = "leaf-sprite"

	FieldResearcher = "field-researcher"
	DeepSearch      = "deep-search"
	PowerGauntlet   = "power-gauntlet"
	EnergyRecycler  = "energy-recycler"
	QuickSwitch     = "quick-switch"
	Potion          = "potion"
	AncientRelic    = "ancient-relic"
	MindThief       = "mind-thief"

	LightningEnergy = "lightning-energy"
	FireEnergy      = "fire-energy"
	WaterEnergy     = "water-energy"
	GrassEnergy     = "grass-energy"
	FightingEnergy  = "fighting-energy"
	DoubleTurbo     = "double-turbo"
)

func creature(id, name, subtype, evolvesFrom, typ string, hp int, price cards.Cents) *cards.Card {
	return &cards.Card{
		ID:          id,
		Name:        name,
		Supertype:   cards.SupertypeCreature,
		Subtypes:    []string{subtype},
		Types:       []string{typ},
		HP:          cards.IntPtr(hp),
		EvolvesFrom: evolvesFrom,
		Rarity:      "common",
		Legality:    legalEverywhere(),
		MarketPrice: cards.CentsPtr(price),
	}
}

func support(id, name, text string, price cards.Cents) *cards.Card {
	return &cards.Card{
		ID:          id,
		Name:        name,
		Supertype:   cards.SupertypeSupport,
		Subtypes:    []string{"Item"},
		Text:        text,
		Rarity:      "uncommon",
		Legality:    legalEverywhere(),
		MarketPrice: cards.CentsPtr(price),
	}
}

func basicEnergy(id, name, typ string) *cards.Card {
	return &cards.Card{
		ID:          id,
		Name:        name,
		Supertype:   cards.SupertypeResource,
		Subtypes:    []string{cards.SubtypeBasic},
		Types:       []string{typ},
		Rarity:      "common",
		Legality:    legalEverywhere(),
		MarketPrice: cards.CentsPtr(5),
	}
}

func legalEverywhere() map[string]bool {
	return map[string]bool{"standard": true, "expanded": true, "unlimited": true}
}

// Cards returns a fresh copy of the fixture pool.
func Cards() []*cards.Card {
	spark := creature(SparkMouse, "Spark Mouse", cards.SubtypeBasic, "", "lightning", 60, 10)
	spark.Attacks = []cards.Attack{{Name: "Quick Zap", Cost: []string{"lightning"}, Damage: 20}}

	volt := creature(VoltRat, "Volt Rat", cards.SubtypeStage1, "Spark Mouse", "lightning", 120, 150)
	volt.Attacks = []cards.Attack{{
		Name:   "Thunder Bolt",
		Cost:   []string{"lightning", "lightning", "colorless"},
		Damage: 120,
		Text:   "This attack does 30 more damage for each Energy attached to this creature.",
	}}

	ember := creature(EmberPup, "Ember Pup", cards.SubtypeBasic, "", "fire", 70, 20)
	ember.Abilities = []cards.Ability{{
		Name: "Kindle",
		Text: "Once during your turn, you may attach a Fire Energy card from your hand to this creature.",
	}}
	ember.Attacks = []cards.Attack{{Name: "Bite", Cost: []string{"fire"}, Damage: 30}}

	blaze := creature(BlazeHound, "Blaze Hound", cards.SubtypeStage1, "Ember Pup", "fire", 130, 200)
	blaze.Attacks = []cards.Attack{{
		Name:   "Inferno",
		Cost:   []string{"fire", "fire", "colorless"},
		Damage: 150,
		Text:   "Discard an Energy from this creature.",
	}}

	tide := creature(TideTurtle, "Tide Turtle", cards.SubtypeBasic, "", "water", 110, 40)
	tide.Abilities = []cards.Ability{{
		Name: "Shell Guard",
		Text: "Once during your turn, you may heal 30 damage from 1 of your creatures.",
	}}
	tide.Attacks = []cards.Attack{{
		Name:   "Lullaby Splash",
		Cost:   []string{"water", "water"},
		Damage: 40,
		Text:   "The Defending creature is now Asleep.",
	}}

	owl := creature(ScoutOwl, "Scout Owl", cards.SubtypeBasic, "", "colorless", 70, 60)
	owl.Abilities = []cards.Ability{{
		Name: "Keen Eyes",
		Text: "Once during your turn, you may search your deck for a Basic creature and put it onto your Bench.",
	}}
	owl.Attacks = []cards.Attack{{Name: "Peck", Cost: []string{"colorless"}, Damage: 10}}

	golem := creature(RockGolem, "Rock Golem", cards.SubtypeBasic, "", "fighting", 150, 30)
	golem.Attacks = []cards.Attack{{
		Name:   "Rock Slam",
		Cost:   []string{"fighting", "fighting", "fighting", "colorless"},
		Damage: 180,
	}}

	moth := creature(DreadMoth, "Dread Moth", cards.SubtypeBasic, "", "darkness", 80, 25)
	moth.Attacks = []cards.Attack{{
		Name:   "Mind Dust",
		Cost:   []string{"darkness"},
		Damage: 10,
		Text:   "Discard the top 2 cards of your opponent's deck.",
	}}

	beetle := creature(ChargeBeetle, "Charge Beetle", cards.SubtypeBasic, "", "grass", 80, 35)
	beetle.Attacks = []cards.Attack{{
		Name:   "Set Trap",
		Cost:   []string{"grass"},
		Damage: 0,
		Text:   "Attach a Grass Energy card from your discard pile to 1 of your Benched creatures.",
	}}

	drake := creature(StormDrake, "Storm Drake", cards.SubtypeStage2, "Volt Rat", "lightning", 170, 900)
	drake.Attacks = []cards.Attack{{
		Name:   "Storm Surge",
		Cost:   []string{"lightning", "lightning", "colorless", "colorless"},
		Damage: 200,
		Text:   "This attack does 90 more damage if your opponent's Active creature is damaged.",
	}}

	sprite := creature(LeafSprite, "Leaf Sprite", cards.SubtypeBasic, "", "grass", 60, 10)
	sprite.Attacks = []cards.Attack{{Name: "Vine Tap", Cost: []string{"grass"}, Damage: 20}}

	relic := support(AncientRelic, "Ancient Relic", "Draw 4 cards. Your opponent shuffles their hand into their deck.", 500)
	relic.Legality = map[string]bool{"standard": false, "expanded": true, "unlimited": true}

	turbo := &cards.Card{
		ID:          DoubleTurbo,
		Name:        "Double Turbo Energy",
		Supertype:   cards.SupertypeResource,
		Subtypes:    []string{"Special"},
		Types:       []string{"colorless"},
		Text:        "This card provides 2 Energy. Attacks of the creature this card is attached to cost 1 less.",
		Rarity:      "uncommon",
		Legality:    legalEverywhere(),
		MarketPrice: cards.CentsPtr(120),
	}

	return []*cards.Card{
		spark, volt, ember, blaze, tide, owl, golem, moth, beetle, drake, sprite,
		support(FieldResearcher, "Field Researcher", "Draw 3 cards.", 50),
		support(DeepSearch, "Deep Search", "Search your deck for a creature, reveal it, and put it into your hand.", 80),
		support(PowerGauntlet, "Power Gauntlet", "During this turn, your creatures' attacks do 30 more damage to your opponent's Active creature.", 60),
		support(EnergyRecycler, "Energy Recycler", "Put 2 basic Energy cards from your discard pile into your hand.", 30),
		support(QuickSwitch, "Quick Switch", "Switch your Active creature with 1 of your Benched creatures.", 20),
		support(Potion, "Potion", "Heal 60 damage from 1 of your creatures.", 15),
		support(MindThief, "Mind Thief", "Your opponent discards 2 cards from their hand.", 70),
		relic,
		basicEnergy(LightningEnergy, "Lightning Energy", "lightning"),
		basicEnergy(FireEnergy, "Fire Energy", "fire"),
		basicEnergy(WaterEnergy, "Water Energy", "water"),
		basicEnergy(GrassEnergy, "Grass Energy", "grass"),
		basicEnergy(FightingEnergy, "Fighting Energy", "fighting"),
		turbo,
	}
}

// Catalog returns an in-memory catalog over the fixture pool with legality
// enforced for standard and expanded.
func Catalog() *cards.MemoryCatalog {
	cat := cards.NewMemoryCatalog(Cards()...)
	cat.EnforceLegality("standard", "expanded")
	return cat
}

// ByID indexes the fixture pool.
func ByID() map[string]*cards.Card {
	out := make(map[string]*cards.Card)
	for _, c := range Cards() {
		out[c.ID] = c
	}
	return out
}

// FloodedDeck is 20 copies of one basic creature, 30 basic resources and 10
// copies of one support card. It breaks the copy limit and is meant for
// exercising the scoring heuristics directly.
func FloodedDeck() deck.Composition {
	return deck.NewComposition([]deck.Entry{
		{CardID: SparkMouse, Quantity: 20},
		{CardID: LightningEnergy, Quantity: 30},
		{CardID: FieldResearcher, Quantity: 10},
	})
}

// FloodedLegalDeck is the legal counterpart of FloodedDeck: 20 basic
// creature copies, 30 basic resources and 10 support copies, all within the
// copy limit.
func FloodedLegalDeck() deck.Composition {
	return deck.NewComposition([]deck.Entry{
		{CardID: SparkMouse, Quantity: 4},
		{CardID: EmberPup, Quantity: 4},
		{CardID: TideTurtle, Quantity: 4},
		{CardID: RockGolem, Quantity: 4},
		{CardID: LeafSprite, Quantity: 4},
		{CardID: LightningEnergy, Quantity: 30},
		{CardID: FieldResearcher, Quantity: 4},
		{CardID: Potion, Quantity: 3},
		{CardID: QuickSwitch, Quantity: 3},
	})
}

// LightningDeck is a legal, reasonably built 60-card evolution deck.
func LightningDeck() deck.Composition {
	return deck.NewComposition([]deck.Entry{
		{CardID: SparkMouse, Quantity: 4},
		{CardID: VoltRat, Quantity: 3},
		{CardID: StormDrake, Quantity: 2},
		{CardID: ScoutOwl, Quantity: 3},
		{CardID: EmberPup, Quantity: 4},
		{CardID: BlazeHound, Quantity: 3},
		{CardID: ChargeBeetle, Quantity: 2},
		{CardID: FieldResearcher, Quantity: 4},
		{CardID: DeepSearch, Quantity: 4},
		{CardID: PowerGauntlet, Quantity: 3},
		{CardID: EnergyRecycler, Quantity: 2},
		{CardID: QuickSwitch, Quantity: 4},
		{CardID: Potion, Quantity: 4},
		{CardID: DoubleTurbo, Quantity: 4},
		{CardID: LightningEnergy, Quantity: 8},
		{CardID: FireEnergy, Quantity: 6},
	})
}

// StallDeck is a legal defensive deck built around healing and status.
func StallDeck() deck.Composition {
	return deck.NewComposition([]deck.Entry{
		{CardID: TideTurtle, Quantity: 4},
		{CardID: RockGolem, Quantity: 4},
		{CardID: DreadMoth, Quantity: 4},
		{CardID: ScoutOwl, Quantity: 4},
		{CardID: Potion, Quantity: 4},
		{CardID: QuickSwitch, Quantity: 4},
		{CardID: MindThief, Quantity: 4},
		{CardID: FieldResearcher, Quantity: 4},
		{CardID: DeepSearch, Quantity: 4},
		{CardID: EnergyRecycler, Quantity: 4},
		{CardID: WaterEnergy, Quantity: 8},
		{CardID: FightingEnergy, Quantity: 8},
		{CardID: LightningEnergy, Quantity: 4},
	})
}
