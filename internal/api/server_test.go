package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/api/response"
	"github.com/ramonehamilton/deck-engine/internal/api/websocket"
	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/matchup"
	"github.com/ramonehamilton/deck-engine/internal/metrics"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

func newTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	a := analysis.NewAnalyzer(cardstest.Catalog(), nil, analysis.WithMetrics(m))
	hub := websocket.NewHub(nil)
	o := recommendations.NewOptimizer(a,
		recommendations.WithMaxPool(14),
		recommendations.WithParallelism(2),
		recommendations.WithMetrics(m),
		recommendations.WithProgress(websocket.ProgressForwarder(hub)))

	s := NewServer(nil, Deps{Analyzer: a, Optimizer: o, Hub: hub, Metrics: m, Gatherer: reg})
	t.Cleanup(hub.Stop)
	return s, reg
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var e response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestNewServer_Defaults(t *testing.T) {
	a := analysis.NewAnalyzer(cardstest.Catalog(), nil)
	s := NewServer(nil, Deps{Analyzer: a})
	t.Cleanup(s.WebSocketHub().Stop)

	assert.Equal(t, 8080, s.Port())
	assert.NotNil(t, s.WebSocketHub())
	assert.NotNil(t, s.optimizer)
	assert.NotNil(t, s.comparator)

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics disabled without a gatherer")
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestAnalyze(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/analyze", map[string]any{
		"format": "standard",
		"cards":  cardstest.LightningDeck(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeData[analysis.Result](t, rec)
	assert.Equal(t, "standard", res.Format)
	assert.Equal(t, 60, res.DeckInfo.TotalCards)
	assert.NotEmpty(t, res.Archetype.PrimaryArchetype)
	assert.GreaterOrEqual(t, res.Scores.Overall, 0)
	assert.LessOrEqual(t, res.Scores.Overall, 100)
}

func TestAnalyze_DeckList(t *testing.T) {
	s, _ := newTestServer(t)

	var list strings.Builder
	list.WriteString("Format: standard\n")
	for _, e := range cardstest.LightningDeck().Entries() {
		list.WriteString(strconv.Itoa(e.Quantity) + " " + e.CardID + "\n")
	}

	rec := do(t, s, http.MethodPost, "/api/v1/analyze", map[string]any{"list": list.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeData[analysis.Result](t, rec)
	assert.Equal(t, "standard", res.Format)
	assert.Equal(t, 60, res.DeckInfo.TotalCards)
}

func TestAnalyze_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	unknown := cardstest.LightningDeck().Replace(cardstest.Potion, "no-such-card", 4)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantDetail string
	}{
		{"unknown card", map[string]any{"cards": unknown}, http.StatusUnprocessableEntity, "missing_card_ids"},
		{"copy limit", map[string]any{"cards": cardstest.FloodedDeck()}, http.StatusUnprocessableEntity, "issues"},
		{"empty deck", map[string]any{"cards": []deck.Entry{}}, http.StatusUnprocessableEntity, "issues"},
		{"unknown format", map[string]any{"format": "ancient", "cards": cardstest.LightningDeck()}, http.StatusUnprocessableEntity, "issues"},
		{"unknown field", map[string]any{"deck": "x"}, http.StatusBadRequest, ""},
		{"cards and list", map[string]any{"cards": cardstest.LightningDeck(), "list": "4 potion"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/analyze", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			e := decodeError(t, rec)
			assert.Equal(t, tt.wantStatus, e.Code)
			if tt.wantDetail != "" {
				details, ok := e.Details.(map[string]any)
				require.True(t, ok, "details = %#v", e.Details)
				assert.Contains(t, details, tt.wantDetail)
			}
		})
	}

	t.Run("missing ids listed", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/v1/analyze", map[string]any{"cards": unknown})
		assert.Contains(t, rec.Body.String(), "no-such-card")
	})
}

func TestContentType(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("cards=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompare(t *testing.T) {
	s, _ := newTestServer(t)
	body := map[string]any{
		"format": "standard",
		"a":      map[string]any{"cards": cardstest.LightningDeck()},
		"b":      map[string]any{"cards": cardstest.StallDeck()},
	}

	rec := do(t, s, http.MethodPost, "/api/v1/compare", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := decodeData[struct {
		Comparison matchup.Comparison `json:"comparison"`
	}](t, rec).Comparison
	assert.Contains(t, []string{matchup.WinnerA, matchup.WinnerB, matchup.WinnerTie}, c.Winner)
	assert.GreaterOrEqual(t, c.WinRate, 0.0)
	assert.LessOrEqual(t, c.WinRate, 100.0)
	assert.Equal(t, len(c.Categories), c.WinsA+c.WinsB+c.Ties)
	assert.NotEmpty(t, c.Summary)

	rec = do(t, s, http.MethodPost, "/api/v1/compare", map[string]any{
		"a": map[string]any{"cards": cardstest.LightningDeck()},
		"b": map[string]any{"cards": cardstest.FloodedDeck()},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "deck b")
}

func TestCharts(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/compare/chart", map[string]any{
		"a":      map[string]any{"cards": cardstest.LightningDeck()},
		"b":      map[string]any{"cards": cardstest.StallDeck()},
		"name_a": "Lightning",
		"name_b": "Stall",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "Lightning")

	rec = do(t, s, http.MethodPost, "/api/v1/analyze/chart", map[string]any{"cards": cardstest.StallDeck()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Deck scores")
}

func TestOptimize(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/optimize", map[string]any{
		"format":      "standard",
		"goal":        "power",
		"cards":       cardstest.FloodedLegalDeck(),
		"constraints": map[string]any{"acceptable_changes": 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeData[recommendations.Result](t, rec)
	assert.Equal(t, recommendations.GoalPower, res.Goal)
	assert.Equal(t, "standard", res.Format)
	assert.LessOrEqual(t, len(res.Changes), 3)
	assert.NotEmpty(t, res.Explanation)
	assert.Equal(t, 60, res.Optimized.Total())
}

func TestOptimize_DeckList(t *testing.T) {
	s, _ := newTestServer(t)

	var list strings.Builder
	list.WriteString("Format: standard\n")
	for _, e := range cardstest.FloodedLegalDeck().Entries() {
		list.WriteString(strconv.Itoa(e.Quantity) + " " + e.CardID + "\n")
	}

	rec := do(t, s, http.MethodPost, "/api/v1/optimize", map[string]any{
		"list":        list.String(),
		"constraints": map[string]any{"acceptable_changes": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeData[recommendations.Result](t, rec)
	assert.Equal(t, "standard", res.Format)
	assert.True(t, res.Original.Equal(cardstest.FloodedLegalDeck()), "list was not optimized as the existing deck")
	assert.LessOrEqual(t, len(res.Changes), 2)
}

func TestOptimize_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"unknown goal", map[string]any{"goal": "fastest", "cards": cardstest.LightningDeck()}, http.StatusBadRequest},
		{"unknown mode", map[string]any{"mode": "sideways"}, http.StatusBadRequest},
		{"existing without deck", map[string]any{"mode": "existing"}, http.StatusBadRequest},
		{"nested deck", map[string]any{"deck": map[string]any{"cards": cardstest.LightningDeck()}}, http.StatusBadRequest},
		{"cards and list", map[string]any{"cards": cardstest.LightningDeck(), "list": "4 potion"}, http.StatusBadRequest},
		{"collection without user", map[string]any{"mode": "collection"}, http.StatusBadRequest},
		{"unknown archetype", map[string]any{"mode": "build", "preferences": map[string]any{"archetype": "tempo-burn"}}, http.StatusBadRequest},
		{
			"illegal required card",
			map[string]any{
				"cards":       cardstest.LightningDeck(),
				"constraints": map[string]any{"must_include": []string{cardstest.AncientRelic}},
			},
			http.StatusConflict,
		},
		{
			"invalid deck",
			map[string]any{"cards": cardstest.FloodedDeck()},
			http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/optimize", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestSystemRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/formats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeData[[]string](t, rec), "standard")

	rec = do(t, s, http.MethodGet, "/api/v1/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tables_version")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/api/v1/analyze", map[string]any{"cards": cardstest.LightningDeck()})

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "deck_engine_analysis_duration_seconds")
	assert.Contains(t, body, `route="/api/v1/analyze"`)
}
