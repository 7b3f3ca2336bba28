package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-engine/internal/cards/cardstest"
	"github.com/ramonehamilton/deck-engine/internal/deck"
)

// workspace is a temp dir with a config, a database and a seeded catalog.
type workspace struct {
	dir    string
	config string
	db     string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		db:     filepath.Join(dir, "engine.db"),
	}
	writeFile(t, ws.config, `
[optimizer]
max_pool = 14
parallelism = 2
timeout = "20s"

[meta]
source = "db"
`)

	data, err := json.Marshal(map[string]any{"cards": cardstest.Cards()})
	require.NoError(t, err)
	cardsPath := filepath.Join(dir, "cards.json")
	writeFile(t, cardsPath, string(data))

	out, err := ws.run(t, "catalog", "import", cardsPath)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Imported %d cards", len(cardstest.Cards())))
	return ws
}

func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", ws.config, "--db", ws.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (ws *workspace) deckFile(t *testing.T, name string, c deck.Composition) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Name: " + name + "\n")
	for _, e := range c.Entries() {
		fmt.Fprintf(&b, "%d %s\n", e.Quantity, e.CardID)
	}
	path := filepath.Join(ws.dir, name+".txt")
	writeFile(t, path, b.String())
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "deck-engine "))
}

func TestAnalyzeCommand(t *testing.T) {
	ws := newWorkspace(t)
	path := ws.deckFile(t, "flooded", cardstest.FloodedLegalDeck())

	out, err := ws.run(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Consistency")

	out, err = ws.run(t, "--json", "analyze", path)
	require.NoError(t, err)
	var res struct {
		Format string         `json:"format"`
		Scores map[string]int `json:"scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "standard", res.Format)
	assert.Contains(t, res.Scores, "overall")
}

func TestAnalyzeCommand_Chart(t *testing.T) {
	ws := newWorkspace(t)
	path := ws.deckFile(t, "lightning", cardstest.LightningDeck())
	chart := filepath.Join(ws.dir, "radar.html")

	_, err := ws.run(t, "analyze", "--chart", chart, path)
	require.NoError(t, err)
	data, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lightning")
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	ws := newWorkspace(t)

	_, err := ws.run(t, "analyze", filepath.Join(ws.dir, "missing.txt"))
	assert.Error(t, err)

	flooded := ws.deckFile(t, "illegal", cardstest.FloodedDeck())
	_, err = ws.run(t, "analyze", flooded)
	assert.Error(t, err)

	_, err = ws.run(t, "--format", "nonexistent", "analyze", ws.deckFile(t, "ok", cardstest.FloodedLegalDeck()))
	assert.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	ws := newWorkspace(t)
	a := ws.deckFile(t, "lightning", cardstest.LightningDeck())
	b := ws.deckFile(t, "stall", cardstest.StallDeck())

	out, err := ws.run(t, "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "lightning")
	assert.Contains(t, out, "stall")
}

func TestOptimizeCommand(t *testing.T) {
	ws := newWorkspace(t)
	path := ws.deckFile(t, "flooded", cardstest.FloodedLegalDeck())
	exported := filepath.Join(ws.dir, "improved.txt")

	out, err := ws.run(t, "--json", "optimize", "--goal", "power", "--max-changes", "3", "--export", exported, path)
	require.NoError(t, err)

	var res struct {
		RunID   string            `json:"run_id"`
		Changes []json.RawMessage `json:"changes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.RunID)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Format: standard")

	_, err = ws.run(t, "optimize", "--goal", "fastest", path)
	assert.Error(t, err)
}

func TestCollectionBuildCommand(t *testing.T) {
	ws := newWorkspace(t)

	_, err := ws.run(t, "collection-build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user")

	owned := ws.deckFile(t, "owned", cardstest.LightningDeck())
	out, err := ws.run(t, "collection", "import", "--user", "ash", owned)
	require.NoError(t, err)
	assert.Contains(t, out, "for ash")

	_, err = ws.run(t, "collection", "import", owned)
	assert.Error(t, err)
}

func TestMetaImportCommand(t *testing.T) {
	ws := newWorkspace(t)
	path := filepath.Join(ws.dir, "meta.yaml")
	writeFile(t, path, `
formats:
  standard:
    archetypes:
      - archetype: aggro
        share: 0.2
      - archetype: control
        share: 0.1
`)
	out, err := ws.run(t, "meta", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported meta for 1 formats")
}

func TestDBBackupAndRestore(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "db", "backup", "snapshot")
	require.NoError(t, err)
	backup := strings.TrimSpace(out)
	assert.Equal(t, "snapshot.db", filepath.Base(backup))

	out, err = ws.run(t, "db", "backups")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot.db")

	out, err = ws.run(t, "db", "restore", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored")

	_, err = ws.run(t, "analyze", ws.deckFile(t, "after-restore", cardstest.LightningDeck()))
	assert.NoError(t, err)
}
