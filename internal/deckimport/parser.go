// Package deckimport parses deck lists into compositions. It reads plain
// text lists keyed by card id and a JSON document form.
package deckimport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deck-engine/internal/deck"
)

// ErrNoCards is returned when an import contains no card lines.
var ErrNoCards = errors.New("no cards found in import")

// ParsedDeck is a deck read from an import.
type ParsedDeck struct {
	Name        string
	Format      string
	Composition deck.Composition

	// Warnings lists skipped lines by line number.
	Warnings []string
}

// Text line patterns.
var (
	// "4 spark-mouse", "4x spark-mouse", "4 x spark-mouse"
	leadingQuantity = regexp.MustCompile(`^(\d+)\s*[xX]?\s+(\S.*)$`)
	// "spark-mouse x4"
	trailingQuantity = regexp.MustCompile(`^(.+?)\s+[xX](\d+)$`)
	// "Name: Red Rush", "Format: standard"
	header = regexp.MustCompile(`^(?i)(name|format|deck)\s*:\s*(.*)$`)
)

// Parse detects the input form: a document starting with '{' is JSON,
// anything else is a text list.
func Parse(input string) (*ParsedDeck, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, fmt.Errorf("empty import: %w", ErrNoCards)
	}
	if strings.HasPrefix(trimmed, "{") {
		return ParseJSON([]byte(trimmed))
	}
	return ParseText(trimmed)
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader) (*ParsedDeck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read deck list: %w", err)
	}
	return Parse(string(data))
}

// ReadFile parses the deck list at path.
func ReadFile(path string) (*ParsedDeck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck list: %w", err)
	}
	d, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseText parses a text list. Each card line is "4 id", "4x id" or
// "id x4". Blank lines and lines starting with '#' or "//" are skipped,
// "Name:" and "Format:" lines set the deck metadata, and everything after a
// "Sideboard" marker is ignored. Repeated card ids are merged.
func ParseText(input string) (*ParsedDeck, error) {
	out := &ParsedDeck{}
	var b builder

	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//"):
			continue
		case strings.EqualFold(line, "deck"):
			continue
		case strings.EqualFold(strings.TrimSuffix(line, ":"), "sideboard"):
			out.Warnings = append(out.Warnings, fmt.Sprintf("Line %d: sideboard ignored", i+1))
			out.Composition = b.composition()
			return finish(out)
		}

		if m := header.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "format":
				out.Format = strings.ToLower(strings.TrimSpace(m[2]))
			default:
				out.Name = strings.TrimSpace(m[2])
			}
			continue
		}

		id, quantity, ok := parseLine(line)
		if !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Line %d: could not parse '%s'", i+1, line))
			continue
		}
		if quantity <= 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Line %d: quantity must be positive", i+1))
			continue
		}
		b.add(id, quantity)
	}

	out.Composition = b.composition()
	return finish(out)
}

func parseLine(line string) (id string, quantity int, ok bool) {
	if m := leadingQuantity.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			return strings.TrimSpace(m[2]), q, true
		}
	}
	if m := trailingQuantity.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[2]); err == nil {
			return strings.TrimSpace(m[1]), q, true
		}
	}
	return "", 0, false
}

type jsonDeck struct {
	Name   string       `json:"name"`
	Format string       `json:"format"`
	Cards  []deck.Entry `json:"cards"`
}

// ParseJSON parses {"name": ..., "format": ..., "cards": [{"card_id", "quantity"}]}.
// Repeated card ids are merged.
func ParseJSON(data []byte) (*ParsedDeck, error) {
	var doc jsonDeck
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse deck json: %w", err)
	}

	out := &ParsedDeck{Name: doc.Name, Format: strings.ToLower(doc.Format)}
	var b builder
	for i, e := range doc.Cards {
		id := strings.TrimSpace(e.CardID)
		switch {
		case id == "":
			out.Warnings = append(out.Warnings, fmt.Sprintf("Card %d: missing card_id", i+1))
		case e.Quantity <= 0:
			out.Warnings = append(out.Warnings, fmt.Sprintf("Card %d: quantity must be positive", i+1))
		default:
			b.add(id, e.Quantity)
		}
	}
	out.Composition = b.composition()
	return finish(out)
}

func finish(d *ParsedDeck) (*ParsedDeck, error) {
	if d.Composition.Len() == 0 {
		return nil, ErrNoCards
	}
	return d, nil
}

// builder merges repeated ids, keeping first-seen order.
type builder struct {
	entries []deck.Entry
	index   map[string]int
}

func (b *builder) add(id string, quantity int) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[id]; ok {
		b.entries[i].Quantity += quantity
		return
	}
	b.index[id] = len(b.entries)
	b.entries = append(b.entries, deck.Entry{CardID: id, Quantity: quantity})
}

func (b *builder) composition() deck.Composition {
	return deck.NewComposition(b.entries)
}
