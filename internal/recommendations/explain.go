package recommendations

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/scoring"
)

func substitutionReason(goal Goal, remove, add *cards.Card, d scoring.Delta, cost cards.Cents) string {
	return fmt.Sprintf("Replace 1 %s with %s to improve %s: %s, %s.",
		remove.Name, add.Name, goal.label(), describeDelta(d), describeCost(cost))
}

// describeDelta renders the non-zero dimensions of d, e.g. "consistency +6, overall +2".
func describeDelta(d scoring.Delta) string {
	v := scoring.Vector(d)
	var parts []string
	for _, dim := range scoring.Dimensions[1:] {
		if n := v.Get(dim); n != 0 {
			parts = append(parts, fmt.Sprintf("%s %+d", strings.ReplaceAll(dim, "_", " "), n))
		}
	}
	if d.Overall != 0 {
		parts = append(parts, fmt.Sprintf("overall %+d", d.Overall))
	}
	if len(parts) == 0 {
		return "scores unchanged"
	}
	return strings.Join(parts, ", ")
}

func describeCost(c cards.Cents) string {
	switch {
	case c > 0:
		return "costs " + c.String()
	case c < 0:
		return "saves " + (-c).String()
	default:
		return "no cost change"
	}
}

func stopText(r StopReason) string {
	switch r {
	case StopChangeCap:
		return "the change cap was reached"
	case StopBudgetExhausted:
		return "the remaining budget cannot afford any further improvement"
	case StopCancelled:
		return "the search was cancelled; this is the best composition found so far"
	default:
		return "no remaining substitution improves the goal"
	}
}

func explain(res *Result, goal Goal) string {
	var b strings.Builder
	goalChanges := 0
	for _, ch := range res.Changes {
		if ch.Action == ActionReplace && !ch.Forced {
			goalChanges++
		}
	}

	switch {
	case len(res.Changes) == 0 && res.StopReason == StopNoImprovement:
		fmt.Fprintf(&b, "No improvement found for goal %s: no legal substitution within the constraints improves the deck, so it is returned unchanged.", goal.label())
	case len(res.Changes) == 0:
		fmt.Fprintf(&b, "No changes made for goal %s: %s.", goal.label(), stopText(res.StopReason))
	default:
		fmt.Fprintf(&b, "Made %d change(s), %d of them goal-driven, for goal %s. Overall %d -> %d",
			len(res.Changes), goalChanges, goal.label(), res.Before.Overall, res.After.Overall)
		if goal == GoalCost {
			fmt.Fprintf(&b, ", total cost delta %s", res.TotalCostDelta)
		} else {
			fmt.Fprintf(&b, ", goal score %+.1f", res.GoalImprovement)
		}
		fmt.Fprintf(&b, ". Stopped because %s.", stopText(res.StopReason))
	}

	if len(res.UnsatisfiedConstraints) > 0 {
		b.WriteString(" Constraints: ")
		b.WriteString(strings.Join(res.UnsatisfiedConstraints, "; "))
		b.WriteByte('.')
	}
	return b.String()
}
