package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/api/response"
	"github.com/ramonehamilton/deck-engine/internal/charts"
	"github.com/ramonehamilton/deck-engine/internal/matchup"
)

// AnalysisHandler serves deck analysis and comparison.
type AnalysisHandler struct {
	analyzer      *analysis.Analyzer
	comparator    *matchup.Comparator
	defaultFormat string
	logger        *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(a *analysis.Analyzer, c *matchup.Comparator, defaultFormat string, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = matchup.NewComparator(a.Tables())
	}
	return &AnalysisHandler{analyzer: a, comparator: c, defaultFormat: defaultFormat, logger: logger}
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Format string `json:"format,omitempty"`
	DeckInput
}

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	Format string    `json:"format,omitempty"`
	A      DeckInput `json:"a"`
	B      DeckInput `json:"b"`
	NameA  string    `json:"name_a,omitempty"`
	NameB  string    `json:"name_b,omitempty"`
}

// CompareResponse carries the comparison and both analyses.
type CompareResponse struct {
	Comparison matchup.Comparison `json:"comparison"`
	A          *analysis.Result   `json:"a"`
	B          *analysis.Result   `json:"b"`
}

// Analyze returns the full analysis of one deck.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	res, _, err := h.analyze(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, res)
}

// AnalyzeChart renders the deck's score radar as HTML.
func (h *AnalysisHandler) AnalyzeChart(w http.ResponseWriter, r *http.Request) {
	res, name, err := h.analyze(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	cfg := charts.DefaultChartConfig()
	cfg.Title = "Deck scores"
	cfg.Subtitle = fmt.Sprintf("%s, overall %d", res.Archetype.PrimaryArchetype, res.Scores.Overall)
	var buf bytes.Buffer
	if err := charts.RenderScoreRadar(&buf, []charts.Series{{Name: name, Scores: res.Scores}}, cfg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.HTML(w, buf.Bytes())
}

func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request) (*analysis.Result, string, error) {
	var req AnalyzeRequest
	if err := decode(w, r, &req); err != nil {
		return nil, "", err
	}
	comp, listFormat, err := req.composition()
	if err != nil {
		return nil, "", err
	}
	res, err := h.analyzer.Analyze(r.Context(), comp, firstNonEmpty(req.Format, listFormat, h.defaultFormat))
	return res, "deck", err
}

// Compare analyzes two decks and compares them.
func (h *AnalysisHandler) Compare(w http.ResponseWriter, r *http.Request) {
	out, _, err := h.compare(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, out)
}

// CompareChart renders the comparison as a grouped bar chart.
func (h *AnalysisHandler) CompareChart(w http.ResponseWriter, r *http.Request) {
	out, req, err := h.compare(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	cfg := charts.DefaultChartConfig()
	cfg.Title = "Deck comparison"
	var buf bytes.Buffer
	nameA, nameB := firstNonEmpty(req.NameA, "Deck A"), firstNonEmpty(req.NameB, "Deck B")
	if err := charts.RenderComparison(&buf, out.Comparison, nameA, nameB, cfg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.HTML(w, buf.Bytes())
}

func (h *AnalysisHandler) compare(w http.ResponseWriter, r *http.Request) (*CompareResponse, *CompareRequest, error) {
	var req CompareRequest
	if err := decode(w, r, &req); err != nil {
		return nil, nil, err
	}
	compA, formatA, err := req.A.composition()
	if err != nil {
		return nil, nil, fmt.Errorf("deck a: %w", err)
	}
	compB, _, err := req.B.composition()
	if err != nil {
		return nil, nil, fmt.Errorf("deck b: %w", err)
	}

	format := firstNonEmpty(req.Format, formatA, h.defaultFormat)
	a, err := h.analyzer.Analyze(r.Context(), compA, format)
	if err != nil {
		return nil, nil, fmt.Errorf("deck a: %w", err)
	}
	b, err := h.analyzer.Analyze(r.Context(), compB, format)
	if err != nil {
		return nil, nil, fmt.Errorf("deck b: %w", err)
	}
	return &CompareResponse{Comparison: h.comparator.Compare(a, b), A: a, B: b}, &req, nil
}
