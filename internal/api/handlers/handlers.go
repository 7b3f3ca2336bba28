// Package handlers implements the HTTP handlers of the engine API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/api/response"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/deckimport"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errBadInput marks client errors found while reading a request.
var errBadInput = errors.New("invalid request")

// DeckInput is a deck given either as an entry list or as a text or JSON
// deck list.
type DeckInput struct {
	Cards deck.Composition `json:"cards"`
	List  string           `json:"list,omitempty"`
}

// composition returns the deck and the format named by a deck list header,
// if any.
func (in DeckInput) composition() (deck.Composition, string, error) {
	if strings.TrimSpace(in.List) == "" {
		return in.Cards, "", nil
	}
	if in.Cards.Len() > 0 {
		return deck.Composition{}, "", fmt.Errorf("%w: give either cards or list, not both", errBadInput)
	}
	parsed, err := deckimport.Parse(in.List)
	if err != nil {
		return deck.Composition{}, "", fmt.Errorf("%w: %w", errBadInput, err)
	}
	return parsed.Composition, parsed.Format, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", errBadInput, err)
	}
	return nil
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// writeError maps engine errors to status codes. Validation and resolution
// failures are 422, infeasible constraints 409, bad input 400.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *deck.ValidationError
	var rerr *cards.ResolutionError
	var ierr *recommendations.ConstraintInfeasibleError

	switch {
	case errors.As(err, &verr):
		response.UnprocessableEntity(w, err, map[string]any{"issues": verr.Issues})
	case errors.As(err, &rerr):
		response.UnprocessableEntity(w, err, map[string]any{"missing_card_ids": rerr.Missing})
	case errors.As(err, &ierr):
		response.Conflict(w, err, map[string]any{"reasons": ierr.Reasons})
	case errors.Is(err, errBadInput), errors.Is(err, recommendations.ErrUnknownArchetype):
		response.BadRequest(w, err)
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, err)
	default:
		logger.Error("request failed", "error", err)
		response.InternalError(w, errors.New("internal error"))
	}
}
