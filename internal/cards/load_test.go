package cards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantIDs []string
		wantErr string
	}{
		{
			name: "yaml document",
			file: "cards.yaml",
			content: `cards:
  - id: spark
    name: Spark
    supertype: Creature
    subtypes: [Basic]
    hp: 60
    market_price: 25
    legality: {standard: true}
  - id: fuel
    name: Fuel
    supertype: Resource
    subtypes: [Basic]
`,
			wantIDs: []string{"spark", "fuel"},
		},
		{
			name:    "yaml list",
			file:    "cards.yml",
			content: "- {id: a, name: A, supertype: Support}\n",
			wantIDs: []string{"a"},
		},
		{
			name:    "json list",
			file:    "cards.json",
			content: `[{"id": "a", "name": "A", "supertype": "Support"}, {"id": "b", "name": "B", "supertype": "Resource"}]`,
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "json document",
			file:    "cards.json",
			content: `{"cards": [{"id": "a", "name": "A", "supertype": "Creature"}]}`,
			wantIDs: []string{"a"},
		},
		{
			name:    "duplicate and bad supertype",
			file:    "cards.json",
			content: `[{"id": "a", "supertype": "Support"}, {"id": "a", "supertype": "Spell"}]`,
			wantErr: "duplicate id",
		},
		{
			name:    "missing id",
			file:    "cards.yaml",
			content: "- {name: A, supertype: Support}\n",
			wantErr: "missing id",
		},
		{
			name:    "unsupported extension",
			file:    "cards.csv",
			content: "id,name",
			wantErr: "unsupported extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := ReadFile(writeFile(t, tt.file, tt.content))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ReadFile() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if len(cs) != len(tt.wantIDs) {
				t.Fatalf("got %d cards, want %d", len(cs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if cs[i].ID != id {
					t.Errorf("card %d id = %q, want %q", i, cs[i].ID, id)
				}
			}
		})
	}
}

func TestReadFile_Fields(t *testing.T) {
	path := writeFile(t, "cards.yaml", `- id: spark
  name: Spark
  supertype: Creature
  subtypes: [Basic]
  hp: 60
  market_price: 25
  legality: {standard: true}
  attacks:
    - {name: Zap, cost: [lightning], damage: 30}
`)
	cs, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	c := cs[0]
	if !c.IsBasicCreature() || c.HPValue() != 60 || c.Price() != 25 || !c.Legality["standard"] {
		t.Errorf("card = %+v", c)
	}
	if best, ok := c.BestAttack(); !ok || best.Damage != 30 {
		t.Errorf("BestAttack() = %+v, %v", best, ok)
	}
}
