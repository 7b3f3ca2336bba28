package deck

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
)

// Issue codes reported by validation.
const (
	IssueEmpty          = "empty"
	IssueDeckSize       = "deck_size"
	IssueQuantity       = "quantity"
	IssueCopyLimit      = "copy_limit"
	IssueDuplicateEntry = "duplicate_entry"
	IssueIllegalCard    = "illegal_card"
	IssueUnknownFormat  = "unknown_format"
)

// Issue is a single validation problem.
type Issue struct {
	Code    string `json:"code"`
	CardID  string `json:"card_id,omitempty"`
	Message string `json:"message"`
}

// ValidationError reports every problem found in a composition.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.Message
	}
	return "invalid composition: " + strings.Join(msgs, "; ")
}

// Has reports whether the error carries an issue with code.
func (e *ValidationError) Has(code string) bool {
	for _, is := range e.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// UnknownFormat returns a validation error for an unknown format name.
func UnknownFormat(format string) *ValidationError {
	return &ValidationError{Issues: []Issue{{
		Code:    IssueUnknownFormat,
		Message: fmt.Sprintf("unknown format %q", format),
	}}}
}

// ValidateStructure checks the invariants that need no card data: non-empty,
// unique entries, positive quantities and the exact deck size.
func ValidateStructure(c Composition, rules heuristics.FormatRules) error {
	var issues []Issue

	if c.Len() == 0 {
		issues = append(issues, Issue{Code: IssueEmpty, Message: "composition has no cards"})
		return &ValidationError{Issues: issues}
	}

	seen := make(map[string]bool, c.Len())
	for _, e := range c.entries {
		if seen[e.CardID] {
			issues = append(issues, Issue{
				Code:    IssueDuplicateEntry,
				CardID:  e.CardID,
				Message: fmt.Sprintf("card %s listed more than once", e.CardID),
			})
		}
		seen[e.CardID] = true
		if e.Quantity < 1 {
			issues = append(issues, Issue{
				Code:    IssueQuantity,
				CardID:  e.CardID,
				Message: fmt.Sprintf("card %s has quantity %d, must be at least 1", e.CardID, e.Quantity),
			})
		}
	}

	if total := c.Total(); total != rules.DeckSize {
		issues = append(issues, Issue{
			Code:    IssueDeckSize,
			Message: fmt.Sprintf("deck has %d cards, format %s requires %d", total, rules.Name, rules.DeckSize),
		})
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// ValidateCards checks copy limits and legality against resolved card data.
// legal reports format legality per card id; it may be nil when the format
// does not enforce legality.
func ValidateCards(c Composition, rules heuristics.FormatRules, resolved map[string]*cards.Card, legal map[string]bool) error {
	var issues []Issue
	for _, e := range c.entries {
		card, ok := resolved[e.CardID]
		if !ok {
			continue
		}
		if e.Quantity > rules.CopyLimit && !card.IsBasicResource() {
			issues = append(issues, Issue{
				Code:    IssueCopyLimit,
				CardID:  e.CardID,
				Message: fmt.Sprintf("%s has %d copies, limit is %d", card.Name, e.Quantity, rules.CopyLimit),
			})
		}
		if rules.EnforceLegality && legal != nil && !legal[e.CardID] {
			issues = append(issues, Issue{
				Code:    IssueIllegalCard,
				CardID:  e.CardID,
				Message: fmt.Sprintf("%s is not legal in %s", card.Name, rules.Name),
			})
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// CanAdd reports whether one more copy of card fits the copy limit.
func CanAdd(c Composition, card *cards.Card, rules heuristics.FormatRules) bool {
	if card.IsBasicResource() {
		return true
	}
	return c.Quantity(card.ID) < rules.CopyLimit
}
