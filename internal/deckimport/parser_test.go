package deckimport

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ramonehamilton/deck-engine/internal/deck"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		want         []deck.Entry
		wantName     string
		wantFormat   string
		wantWarnings int
	}{
		{
			name:  "leading quantities",
			input: "4 spark-mouse\n4x volt-rat\n2 X storm-drake",
			want:  []deck.Entry{{CardID: "spark-mouse", Quantity: 4}, {CardID: "volt-rat", Quantity: 4}, {CardID: "storm-drake", Quantity: 2}},
		},
		{
			name:  "trailing quantity",
			input: "spark-mouse x4\nlightning-energy X12",
			want:  []deck.Entry{{CardID: "spark-mouse", Quantity: 4}, {CardID: "lightning-energy", Quantity: 12}},
		},
		{
			name: "comments, blanks and headers",
			input: `# my list
Name: Red Rush
Format: Standard
Deck

// creatures
4 spark-mouse
`,
			want:       []deck.Entry{{CardID: "spark-mouse", Quantity: 4}},
			wantName:   "Red Rush",
			wantFormat: "standard",
		},
		{
			name:  "duplicates merged in first-seen order",
			input: "2 potion\n4 spark-mouse\n2x potion",
			want:  []deck.Entry{{CardID: "potion", Quantity: 4}, {CardID: "spark-mouse", Quantity: 4}},
		},
		{
			name:         "bad lines become warnings",
			input:        "4 spark-mouse\nnot a card line\n0 potion",
			want:         []deck.Entry{{CardID: "spark-mouse", Quantity: 4}},
			wantWarnings: 2,
		},
		{
			name:         "sideboard ignored",
			input:        "4 spark-mouse\nSideboard:\n2 potion",
			want:         []deck.Entry{{CardID: "spark-mouse", Quantity: 4}},
			wantWarnings: 1,
		},
		{
			name:  "id starting with a digit",
			input: "3d-golem x2",
			want:  []deck.Entry{{CardID: "3d-golem", Quantity: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseText(tt.input)
			if err != nil {
				t.Fatalf("ParseText() error = %v", err)
			}
			if !reflect.DeepEqual(got.Composition.Entries(), tt.want) {
				t.Errorf("entries = %v, want %v", got.Composition.Entries(), tt.want)
			}
			if got.Name != tt.wantName || got.Format != tt.wantFormat {
				t.Errorf("name/format = %q/%q, want %q/%q", got.Name, got.Format, tt.wantName, tt.wantFormat)
			}
			if len(got.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", got.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestParse_NoCards(t *testing.T) {
	for _, input := range []string{"", "   \n", "# only a comment", "Name: empty", `{"cards": []}`} {
		if _, err := Parse(input); !errors.Is(err, ErrNoCards) {
			t.Errorf("Parse(%q) error = %v, want ErrNoCards", input, err)
		}
	}
}

func TestParseJSON(t *testing.T) {
	input := `{
		"name": "Wall",
		"format": "Expanded",
		"cards": [
			{"card_id": "tide-turtle", "quantity": 4},
			{"card_id": "", "quantity": 2},
			{"card_id": "potion", "quantity": 0},
			{"card_id": "tide-turtle", "quantity": 1}
		]
	}`
	got, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Name != "Wall" || got.Format != "expanded" {
		t.Errorf("name/format = %q/%q", got.Name, got.Format)
	}
	if want := []deck.Entry{{CardID: "tide-turtle", Quantity: 5}}; !reflect.DeepEqual(got.Composition.Entries(), want) {
		t.Errorf("entries = %v, want %v", got.Composition.Entries(), want)
	}
	if len(got.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2", got.Warnings)
	}

	if _, err := Parse(`{"cards": [`); err == nil || errors.Is(err, ErrNoCards) {
		t.Errorf("malformed json error = %v", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.txt")
	if err := os.WriteFile(path, []byte("4 spark-mouse\n56 lightning-energy\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got.Composition.Total() != 60 {
		t.Errorf("Total() = %d, want 60", got.Composition.Total())
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	got, err = ParseReader(strings.NewReader("spark-mouse x1"))
	if err != nil || got.Composition.Total() != 1 {
		t.Errorf("ParseReader() = %v, %v", got, err)
	}
}
