package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/cards"
	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
	"github.com/ramonehamilton/deck-engine/internal/deckimport"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

type testRow struct {
	ID      int          `csv:"id"`
	Name    string       `csv:"name"`
	Value   float64      `csv:"value"`
	Active  bool         `csv:"active"`
	Price   cards.Cents  `csv:"price"`
	Pointer *string      `csv:"pointer"`
	Skipped string       `csv:"-"`
	Nested  *cards.Cents `csv:"nested"`
}

func TestCSV(t *testing.T) {
	s := "x"
	rows := []testRow{
		{ID: 1, Name: "One", Value: 10.5, Active: true, Price: 125, Pointer: &s},
		{ID: 2, Name: "Two, quoted", Value: 20.333, Price: 5},
	}

	var buf bytes.Buffer
	if err := CSV(&buf, rows); err != nil {
		t.Fatalf("CSV() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"id", "name", "value", "active", "price", "pointer", "nested"},
		{"1", "One", "10.50", "true", "$1.25", "x", ""},
		{"2", "Two, quoted", "20.33", "false", "$0.05", "", ""},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		if strings.Join(records[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("record %d = %v, want %v", i, records[i], want[i])
		}
	}
}

func TestCSV_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, testRow{}); err == nil {
		t.Error("expected error for a non-slice")
	}
	if err := CSV(&buf, []int{1}); err == nil {
		t.Error("expected error for a slice of non-structs")
	}
	buf.Reset()
	if err := CSV(&buf, []testRow{}); err != nil {
		t.Errorf("empty slice error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "id,name") {
		t.Errorf("empty slice should still write the header, got %q", buf.String())
	}
}

func TestToFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	write := func(data any) error {
		return ToFile(Options{FilePath: path}, func(w io.Writer) error { return JSON(w, data) })
	}

	if err := write(map[string]int{"a": 1}); err != nil {
		t.Fatalf("first export error = %v", err)
	}
	if err := write(map[string]int{"a": 2}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second export error = %v, want already exists", err)
	}
	err := ToFile(Options{FilePath: path, Overwrite: true}, func(w io.Writer) error { return JSON(w, map[string]int{"a": 3}) })
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil || got["a"] != 3 {
		t.Errorf("file = %s, err %v", data, err)
	}
}

func TestFormats(t *testing.T) {
	if f, err := ParseFormat(" CSV "); err != nil || f != FormatCSV {
		t.Errorf("ParseFormat(CSV) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	for path, want := range map[string]Format{"a.csv": FormatCSV, "a.txt": FormatText, "a.json": FormatJSON, "a": FormatJSON} {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestOptimization(t *testing.T) {
	a := analysis.NewAnalyzer(cardstest.Catalog(), nil)
	o := recommendations.NewOptimizer(a, recommendations.WithMaxPool(14), recommendations.WithParallelism(2))
	res, err := o.OptimizeExisting(context.Background(), cardstest.FloodedLegalDeck(),
		recommendations.Constraints{Format: "standard", AcceptableChanges: 3}, recommendations.GoalPower)
	if err != nil {
		t.Fatal(err)
	}

	var text bytes.Buffer
	if err := Optimization(&text, FormatText, res); err != nil {
		t.Fatal(err)
	}
	parsed, err := deckimport.Parse(text.String())
	if err != nil {
		t.Fatalf("exported deck list does not parse: %v", err)
	}
	if !parsed.Composition.Equal(res.Optimized) || parsed.Format != "standard" {
		t.Errorf("round trip mismatch: %v vs %v", parsed.Composition.Canonical(), res.Optimized.Canonical())
	}

	var rows bytes.Buffer
	if err := Optimization(&rows, FormatCSV, res); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&rows).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(res.Changes)+1 {
		t.Errorf("csv rows = %d, want %d", len(records), len(res.Changes)+1)
	}

	var js bytes.Buffer
	if err := Optimization(&js, FormatJSON, res); err != nil {
		t.Fatal(err)
	}
	if !json.Valid(js.Bytes()) {
		t.Error("invalid json")
	}

	if err := Optimization(&js, Format("xml"), res); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWantRows(t *testing.T) {
	res := &recommendations.Result{WantList: []recommendations.WantItem{
		{CardID: "a", CardName: "A", Copies: 2, UnitPrice: 150, Reasoning: "more power"},
	}}
	rows := WantRows(res)
	if len(rows) != 1 || rows[0].UnitPrice != "$1.50" || rows[0].Copies != 2 {
		t.Errorf("WantRows() = %+v", rows)
	}
}
