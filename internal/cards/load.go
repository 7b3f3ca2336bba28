package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// cardFile is the on-disk card list. A bare list is accepted as well.
type cardFile struct {
	Cards []*Card `json:"cards" yaml:"cards"`
}

// ReadFile loads a card list from a JSON or YAML file, chosen by extension.
func ReadFile(path string) ([]*Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("card file %s: unsupported extension", path)
	}
}

// ParseJSON decodes a card list from JSON.
func ParseJSON(data []byte) ([]*Card, error) {
	var cs []*Card
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("parse card json: %w", err)
		}
	} else {
		var f cardFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse card json: %w", err)
		}
		cs = f.Cards
	}
	return cs, checkCards(cs)
}

// ParseYAML decodes a card list from YAML.
func ParseYAML(data []byte) ([]*Card, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse card yaml: %w", err)
	}
	var cs []*Card
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&cs); err != nil {
			return nil, fmt.Errorf("parse card yaml: %w", err)
		}
	} else {
		var f cardFile
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse card yaml: %w", err)
		}
		cs = f.Cards
	}
	return cs, checkCards(cs)
}

func checkCards(cs []*Card) error {
	var errs []error
	seen := make(map[string]bool, len(cs))
	for i, c := range cs {
		switch {
		case c == nil:
			errs = append(errs, fmt.Errorf("card %d: empty entry", i))
			continue
		case c.ID == "":
			errs = append(errs, fmt.Errorf("card %d: missing id", i))
			continue
		case seen[c.ID]:
			errs = append(errs, fmt.Errorf("card %s: duplicate id", c.ID))
		}
		seen[c.ID] = true
		switch c.Supertype {
		case SupertypeCreature, SupertypeSupport, SupertypeResource:
		default:
			errs = append(errs, fmt.Errorf("card %s: unknown supertype %q", c.ID, c.Supertype))
		}
		if c.MarketPrice != nil && *c.MarketPrice < 0 {
			errs = append(errs, fmt.Errorf("card %s: negative price", c.ID))
		}
	}
	return errors.Join(errs...)
}
