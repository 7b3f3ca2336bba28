package recommendations

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
)

// Goal is the objective an optimization run improves.
type Goal string

const (
	GoalConsistency Goal = "consistency"
	GoalPower       Goal = "power"
	GoalCost        Goal = "cost"
	GoalMetaAdapt   Goal = "meta_adapt"
)

// Goals lists every goal.
var Goals = []Goal{GoalConsistency, GoalPower, GoalCost, GoalMetaAdapt}

// ParseGoal parses a goal name. The empty string selects GoalConsistency.
func ParseGoal(s string) (Goal, error) {
	if s == "" {
		return GoalConsistency, nil
	}
	g := Goal(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Goals {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown goal %q", s)
}

// Value is the goal-weighted score of a vector. For GoalCost it is the
// overall score, which a cost reduction must not lower.
func (g Goal) Value(v scoring.Vector) float64 {
	o := float64(v.Overall)
	switch g {
	case GoalConsistency:
		return 0.7*float64(v.Consistency) + 0.3*o
	case GoalPower:
		return 0.7*float64(v.Power) + 0.3*o
	case GoalMetaAdapt:
		return 0.6*float64(v.MetaRelevance) + 0.4*o
	default:
		return o
	}
}

func (g Goal) label() string {
	switch g {
	case GoalCost:
		return "cost"
	case GoalMetaAdapt:
		return "meta positioning"
	default:
		return string(g)
	}
}

// DefaultAcceptableChanges caps accepted substitutions when the constraint
// is left at zero.
const DefaultAcceptableChanges = 10

// Constraints bound an optimization run.
type Constraints struct {
	Format string `json:"format"`

	// MaxBudget caps the summed cost delta of all changes. Nil means no cap.
	MaxBudget *cards.Cents `json:"max_budget,omitempty"`

	OnlyOwnedCards bool   `json:"only_owned_cards,omitempty"`
	UserID         string `json:"user_id,omitempty"`

	MustInclude []string `json:"must_include,omitempty"`
	MustExclude []string `json:"must_exclude,omitempty"`

	// AcceptableChanges caps goal-driven substitutions. Forced changes from
	// must-include and must-exclude do not count against it.
	AcceptableChanges int `json:"acceptable_changes,omitempty"`
}

func (c Constraints) changeCap() int {
	if c.AcceptableChanges <= 0 {
		return DefaultAcceptableChanges
	}
	return c.AcceptableChanges
}

// Preferences steer deck building.
type Preferences struct {
	Archetype string   `json:"archetype,omitempty"`
	Types     []string `json:"types,omitempty"`
}

// Action is the kind of a change.
type Action string

const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionReplace Action = "replace"
)

// Change is one explained edit to a composition.
type Change struct {
	Action         Action        `json:"action"`
	CardID         string        `json:"card_id"`
	CardName       string        `json:"card_name"`
	ReplacesCardID string        `json:"replaces_card_id,omitempty"`
	Quantity       int           `json:"quantity"`
	Reasoning      string        `json:"reasoning"`
	ScoreImpact    scoring.Delta `json:"score_impact"`
	CostDelta      cards.Cents   `json:"cost_delta"`

	// Forced marks changes made to satisfy must-include or must-exclude
	// constraints rather than to improve the goal.
	Forced bool `json:"forced,omitempty"`
}

// StopReason says why the local search ended.
type StopReason string

const (
	StopNoImprovement   StopReason = "no_improvement"
	StopChangeCap       StopReason = "change_cap"
	StopBudgetExhausted StopReason = "budget_exhausted"
	StopCancelled       StopReason = "cancelled"
)

// WantItem is an unowned card the optimizer would add given the copies.
type WantItem struct {
	CardID    string      `json:"card_id"`
	CardName  string      `json:"card_name"`
	Copies    int         `json:"copies"`
	UnitPrice cards.Cents `json:"unit_price"`
	Reasoning string      `json:"reasoning"`
}

// Result is the outcome of an optimization run. An empty change list with
// StopNoImprovement is a successful outcome.
type Result struct {
	RunID     string           `json:"run_id"`
	Goal      Goal             `json:"goal"`
	Format    string           `json:"format"`
	Original  deck.Composition `json:"original"`
	Optimized deck.Composition `json:"optimized"`
	Changes   []Change         `json:"changes"`

	Before           scoring.Vector `json:"before"`
	After            scoring.Vector `json:"after"`
	ScoreImprovement scoring.Delta  `json:"score_improvement"`
	GoalImprovement  float64        `json:"goal_improvement"`
	TotalCostDelta   cards.Cents    `json:"total_cost_delta"`

	Analysis *analysis.Result `json:"analysis"`

	StopReason             StopReason `json:"stop_reason"`
	Explanation            string     `json:"explanation"`
	UnsatisfiedConstraints []string   `json:"unsatisfied_constraints"`
	WantList               []WantItem `json:"want_list,omitempty"`
}

// ConstraintInfeasibleError reports constraints that cannot be met even
// with zero goal-driven changes.
type ConstraintInfeasibleError struct {
	Reasons []string
}

func (e *ConstraintInfeasibleError) Error() string {
	return "constraints cannot be satisfied: " + strings.Join(e.Reasons, "; ")
}

func infeasible(reasons ...string) *ConstraintInfeasibleError {
	return &ConstraintInfeasibleError{Reasons: reasons}
}
