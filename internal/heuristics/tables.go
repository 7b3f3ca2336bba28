// Package heuristics holds the versioned static lookup tables that drive the
// deck engine: format rules, score weights, effect categories, archetype
// signatures, the weakness chart and the archetype matchup table.
//
// Tables are plain data loaded from YAML so they can be tuned without code
// changes. The default tables are embedded in the binary.
package heuristics

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Effect categories recognized in card texts.
const (
	EffectSearch           = "search"
	EffectDraw             = "draw"
	EffectAccelerate       = "accelerate"
	EffectDamageBoost      = "damage_boost"
	EffectMultiHit         = "multi_hit"
	EffectSpread           = "spread"
	EffectHeal             = "heal"
	EffectStatus           = "status"
	EffectRecursion        = "recursion"
	EffectMill             = "mill"
	EffectDisruption       = "disruption"
	EffectSwitch           = "switch"
	EffectSetup            = "setup"
	EffectConditionalBoost = "conditional_boost"

	// EffectEvolution is assigned to evolution creatures rather than matched from text.
	EffectEvolution = "evolution"
)

// Tables is the full set of heuristic lookup data.
type Tables struct {
	Version        string                 `yaml:"version"`
	Formats        map[string]FormatRules `yaml:"formats"`
	ScoreWeights   ScoreWeights           `yaml:"score_weights"`
	Effects        []EffectRule           `yaml:"effects"`
	Pairings       []Pairing              `yaml:"pairings"`
	TierScores     map[int]int            `yaml:"tier_scores"`
	SynergyWeights SynergyWeights         `yaml:"synergy_weights"`
	Types          TypeChart              `yaml:"types"`
	Archetypes     []ArchetypeSignature   `yaml:"archetypes"`
	Classifier     ClassifierSettings     `yaml:"classifier"`
	Matchups       []Matchup              `yaml:"matchups"`
	Comparator     ComparatorSettings     `yaml:"comparator"`

	compiled []compiledEffect
	matchups map[[2]string]float64
}

// FormatRules describe the structural rules and scoring targets of a format.
type FormatRules struct {
	Name               string `yaml:"-"`
	DeckSize           int    `yaml:"deck_size"`
	CopyLimit          int    `yaml:"copy_limit"`
	ResourceBand       Band   `yaml:"resource_band"`
	ResourceTolerance  int    `yaml:"resource_tolerance"`
	BasicCreatureFloor int    `yaml:"basic_creature_floor"`
	SearchDrawTarget   int    `yaml:"search_draw_target"`
	LargeHPThreshold   int    `yaml:"large_hp_threshold"`
	HPThresholds       []int  `yaml:"hp_thresholds"`
	EnforceLegality    bool   `yaml:"enforce_legality"`
}

// Band is an inclusive integer range.
type Band struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Distance returns how far v lies outside the band, or 0 inside it.
func (b Band) Distance(v int) int {
	switch {
	case v < b.Min:
		return b.Min - v
	case v > b.Max:
		return v - b.Max
	default:
		return 0
	}
}

// Mid returns the band midpoint rounded down.
func (b Band) Mid() int { return (b.Min + b.Max) / 2 }

// ScoreWeights weight the seven sub-scores into the overall score.
type ScoreWeights struct {
	Consistency   float64 `yaml:"consistency"`
	Power         float64 `yaml:"power"`
	Speed         float64 `yaml:"speed"`
	Versatility   float64 `yaml:"versatility"`
	MetaRelevance float64 `yaml:"meta_relevance"`
	Innovation    float64 `yaml:"innovation"`
	Difficulty    float64 `yaml:"difficulty"`
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.Consistency + w.Power + w.Speed + w.Versatility + w.MetaRelevance + w.Innovation + w.Difficulty
}

// EffectRule maps text patterns to an effect category.
type EffectRule struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

// Pairing is an effect-category pair that forms a combo when present on two distinct cards.
type Pairing struct {
	A           string `yaml:"a"`
	B           string `yaml:"b"`
	Tier        int    `yaml:"tier"`
	Description string `yaml:"description"`
}

// SynergyWeights weight the five synergy subcomponents.
type SynergyWeights struct {
	AbilityCombos float64 `yaml:"ability_combos"`
	AttackCombos  float64 `yaml:"attack_combos"`
	TypeCoverage  float64 `yaml:"type_coverage"`
	Energy        float64 `yaml:"energy"`
	Evolution     float64 `yaml:"evolution"`
}

// TypeChart is the weakness/resistance table.
type TypeChart struct {
	CommonOpposing []string              `yaml:"common_opposing"`
	Chart          map[string]TypeMatrix `yaml:"chart"`
}

// TypeMatrix lists the attacking types a defending type is weak to or resists.
type TypeMatrix struct {
	WeakTo  []string `yaml:"weak_to"`
	Resists []string `yaml:"resists"`
}

// ArchetypeSignature is the rule-based signature of one archetype.
type ArchetypeSignature struct {
	Name             string             `yaml:"name"`
	Description      string             `yaml:"description"`
	Features         map[string]float64 `yaml:"features"`
	PreferredEffects []string           `yaml:"preferred_effects"`
	CreatureShare    float64            `yaml:"creature_share"`
}

// ClassifierSettings tune the archetype classifier.
type ClassifierSettings struct {
	SecondaryMargin float64 `yaml:"secondary_margin"`
	Floor           float64 `yaml:"floor"`
	LowConfidence   float64 `yaml:"low_confidence"`
}

// Matchup is the advantage, in win-rate points, of archetype A over B.
type Matchup struct {
	A         string  `yaml:"a"`
	B         string  `yaml:"b"`
	Advantage float64 `yaml:"advantage"`
}

// ComparatorSettings tune the matchup comparator.
type ComparatorSettings struct {
	BaseWinRate      float64 `yaml:"base_win_rate"`
	SpeedTierWidth   int     `yaml:"speed_tier_width"`
	SpeedTierGap     int     `yaml:"speed_tier_gap"`
	SpeedBonus       float64 `yaml:"speed_bonus"`
	PowerThreshold   int     `yaml:"power_threshold"`
	PowerBonus       float64 `yaml:"power_bonus"`
	ConsistencyScale float64 `yaml:"consistency_scale"`
	MinWinRate       float64 `yaml:"min_win_rate"`
	MaxWinRate       float64 `yaml:"max_win_rate"`
}

type compiledEffect struct {
	category string
	patterns []*regexp.Regexp
}

// Default returns the embedded tables. It panics if the embedded data is
// invalid, which is a build defect.
func Default() *Tables {
	t, err := Parse(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("heuristics: embedded tables invalid: %v", err))
	}
	return t
}

// Load reads tables from a YAML file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse tables file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes, validates and compiles tables from YAML.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) compile() error {
	if t.Version == "" {
		return fmt.Errorf("tables version is required")
	}
	if len(t.Formats) == 0 {
		return fmt.Errorf("at least one format is required")
	}
	for name, f := range t.Formats {
		if f.DeckSize <= 0 || f.CopyLimit <= 0 {
			return fmt.Errorf("format %s: deck size and copy limit must be positive", name)
		}
		if f.ResourceBand.Min > f.ResourceBand.Max {
			return fmt.Errorf("format %s: resource band min exceeds max", name)
		}
		f.Name = name
		t.Formats[name] = f
	}
	if sum := t.ScoreWeights.Sum(); math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("score weights must sum to 1, got %.4f", sum)
	}

	t.compiled = t.compiled[:0]
	for _, rule := range t.Effects {
		ce := compiledEffect{category: rule.Category}
		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("effect %s: invalid pattern %q: %w", rule.Category, p, err)
			}
			ce.patterns = append(ce.patterns, re)
		}
		t.compiled = append(t.compiled, ce)
	}

	for _, p := range t.Pairings {
		if _, ok := t.TierScores[p.Tier]; !ok {
			return fmt.Errorf("pairing %s+%s: unknown tier %d", p.A, p.B, p.Tier)
		}
	}

	if len(t.Archetypes) == 0 {
		return fmt.Errorf("at least one archetype signature is required")
	}
	// Features are fractions, so weights summing past 1 would push
	// confidence over 100.
	for _, sig := range t.Archetypes {
		sum := 0.0
		for name, w := range sig.Features {
			if w < 0 {
				return fmt.Errorf("archetype %s: feature %s has negative weight %.4f", sig.Name, name, w)
			}
			sum += w
		}
		if sum > 1+1e-6 {
			return fmt.Errorf("archetype %s: feature weights sum to %.4f, want at most 1", sig.Name, sum)
		}
	}

	t.matchups = make(map[[2]string]float64, len(t.Matchups))
	for _, m := range t.Matchups {
		if _, dup := t.matchups[[2]string{m.B, m.A}]; dup {
			return fmt.Errorf("matchup %s vs %s declared in both directions", m.A, m.B)
		}
		t.matchups[[2]string{m.A, m.B}] = m.Advantage
	}

	if t.Comparator.MinWinRate > t.Comparator.MaxWinRate {
		return fmt.Errorf("comparator min win rate exceeds max")
	}
	if t.Comparator.SpeedTierWidth <= 0 {
		return fmt.Errorf("comparator speed tier width must be positive")
	}
	return nil
}

// Format returns the rules for a format.
func (t *Tables) Format(name string) (FormatRules, bool) {
	f, ok := t.Formats[strings.ToLower(name)]
	return f, ok
}

// FormatNames returns the known format names in sorted order.
func (t *Tables) FormatNames() []string {
	names := make([]string, 0, len(t.Formats))
	for n := range t.Formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EnforcedFormats returns the sorted names of formats that check card
// legality.
func (t *Tables) EnforcedFormats() []string {
	var names []string
	for _, n := range t.FormatNames() {
		if t.Formats[n].EnforceLegality {
			names = append(names, n)
		}
	}
	return names
}

// Classify returns the effect categories matched by text, in table order.
func (t *Tables) Classify(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, ce := range t.compiled {
		for _, re := range ce.patterns {
			if re.MatchString(text) {
				out = append(out, ce.category)
				break
			}
		}
	}
	return out
}

// Advantage returns the matchup advantage of a over b. The table is looked
// up in both directions; unlisted pairs have no advantage.
func (t *Tables) Advantage(a, b string) float64 {
	if v, ok := t.matchups[[2]string{a, b}]; ok {
		return v
	}
	if v, ok := t.matchups[[2]string{b, a}]; ok {
		return -v
	}
	return 0
}

// Signature returns the signature for an archetype name.
func (t *Tables) Signature(name string) (ArchetypeSignature, bool) {
	for _, s := range t.Archetypes {
		if s.Name == name {
			return s, true
		}
	}
	return ArchetypeSignature{}, false
}

// TierScore returns the base synergy score of a pairing tier.
func (t *Tables) TierScore(tier int) int {
	return t.TierScores[tier]
}

var boostPattern = regexp.MustCompile(`(?i)(\d+) more damage`)

// DamageBoost returns the largest "N more damage" bonus stated in text, or 0.
func DamageBoost(text string) int {
	best := 0
	for _, m := range boostPattern.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil && v > best {
			best = v
		}
	}
	return best
}
