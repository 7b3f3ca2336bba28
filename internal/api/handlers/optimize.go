package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ramonehamilton/deck-engine/internal/api/response"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

// Optimization modes.
const (
	ModeExisting   = "existing"
	ModeBuild      = "build"
	ModeCollection = "collection"
)

// OptimizeHandler serves optimization runs.
type OptimizeHandler struct {
	optimizer *recommendations.Optimizer
	defaults  OptimizeDefaults
	logger    *slog.Logger
}

// OptimizeDefaults fill request fields left empty.
type OptimizeDefaults struct {
	Format            string
	AcceptableChanges int

	// Timeout bounds one run. Zero means the request context alone.
	Timeout time.Duration
}

// NewOptimizeHandler creates a new OptimizeHandler.
func NewOptimizeHandler(o *recommendations.Optimizer, defaults OptimizeDefaults, logger *slog.Logger) *OptimizeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptimizeHandler{optimizer: o, defaults: defaults, logger: logger}
}

// OptimizeRequest is the body of POST /optimize. The deck is given inline
// as cards or a list, as for analyze. Mode defaults to "existing" when a
// deck is given and to "build" otherwise.
type OptimizeRequest struct {
	Mode        string                      `json:"mode,omitempty"`
	Format      string                      `json:"format,omitempty"`
	Goal        string                      `json:"goal,omitempty"`
	Constraints recommendations.Constraints `json:"constraints"`
	Preferences recommendations.Preferences `json:"preferences"`
	*DeckInput
}

// Optimize runs one optimization and returns its result.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	goal, err := recommendations.ParseGoal(req.Goal)
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %w", errBadInput, err))
		return
	}

	cons := req.Constraints
	if cons.AcceptableChanges <= 0 {
		cons.AcceptableChanges = h.defaults.AcceptableChanges
	}

	ctx := r.Context()
	if h.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.defaults.Timeout)
		defer cancel()
	}

	mode := strings.ToLower(req.Mode)
	if mode == "" {
		mode = ModeBuild
		if req.DeckInput != nil {
			mode = ModeExisting
		}
	}

	var res *recommendations.Result
	switch mode {
	case ModeExisting:
		if req.DeckInput == nil {
			writeError(w, h.logger, fmt.Errorf("%w: mode %q needs a deck", errBadInput, mode))
			return
		}
		comp, listFormat, cerr := req.DeckInput.composition()
		if cerr != nil {
			writeError(w, h.logger, cerr)
			return
		}
		cons.Format = firstNonEmpty(req.Format, cons.Format, listFormat, h.defaults.Format)
		res, err = h.optimizer.OptimizeExisting(ctx, comp, cons, goal)
	case ModeBuild:
		cons.Format = firstNonEmpty(req.Format, cons.Format, h.defaults.Format)
		res, err = h.optimizer.BuildFromScratch(ctx, cons, req.Preferences, goal)
	case ModeCollection:
		cons.Format = firstNonEmpty(req.Format, cons.Format, h.defaults.Format)
		if cons.UserID == "" {
			writeError(w, h.logger, fmt.Errorf("%w: mode %q needs constraints.user_id", errBadInput, mode))
			return
		}
		res, err = h.optimizer.OptimizeFromCollection(ctx, cons, req.Preferences, goal)
	default:
		writeError(w, h.logger, fmt.Errorf("%w: unknown mode %q", errBadInput, req.Mode))
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, res)
}
