package export

import (
	"fmt"
	"io"

	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

// ChangeRow is one optimization change for CSV export.
type ChangeRow struct {
	Step        int    `csv:"step"`
	Action      string `csv:"action"`
	CardID      string `csv:"card_id"`
	CardName    string `csv:"card_name"`
	Replaces    string `csv:"replaces_card_id"`
	Quantity    int    `csv:"quantity"`
	OverallGain int    `csv:"overall_gain"`
	CostDelta   string `csv:"cost_delta"`
	Forced      bool   `csv:"forced"`
	Reasoning   string `csv:"reasoning"`
}

// WantRow is one want-list entry for CSV export.
type WantRow struct {
	CardID    string `csv:"card_id"`
	CardName  string `csv:"card_name"`
	Copies    int    `csv:"copies"`
	UnitPrice string `csv:"unit_price"`
	Reasoning string `csv:"reasoning"`
}

// ChangeRows flattens the changes of a run.
func ChangeRows(res *recommendations.Result) []ChangeRow {
	rows := make([]ChangeRow, len(res.Changes))
	for i, ch := range res.Changes {
		rows[i] = ChangeRow{
			Step:        i + 1,
			Action:      string(ch.Action),
			CardID:      ch.CardID,
			CardName:    ch.CardName,
			Replaces:    ch.ReplacesCardID,
			Quantity:    ch.Quantity,
			OverallGain: ch.ScoreImpact.Overall,
			CostDelta:   ch.CostDelta.String(),
			Forced:      ch.Forced,
			Reasoning:   ch.Reasoning,
		}
	}
	return rows
}

// WantRows flattens a want list.
func WantRows(res *recommendations.Result) []WantRow {
	rows := make([]WantRow, len(res.WantList))
	for i, w := range res.WantList {
		rows[i] = WantRow{
			CardID:    w.CardID,
			CardName:  w.CardName,
			Copies:    w.Copies,
			UnitPrice: w.UnitPrice.String(),
			Reasoning: w.Reasoning,
		}
	}
	return rows
}

// DeckList writes c as a text deck list with optional name and format
// headers.
func DeckList(w io.Writer, c deck.Composition, name, format string) error {
	if name != "" {
		if _, err := fmt.Fprintf(w, "Name: %s\n", name); err != nil {
			return err
		}
	}
	if format != "" {
		if _, err := fmt.Fprintf(w, "Format: %s\n", format); err != nil {
			return err
		}
	}
	for _, e := range c.Entries() {
		if _, err := fmt.Fprintf(w, "%d %s\n", e.Quantity, e.CardID); err != nil {
			return err
		}
	}
	return nil
}

// Optimization writes a run in format: the full result as JSON, the change
// list as CSV or the optimized deck as a text list.
func Optimization(w io.Writer, format Format, res *recommendations.Result) error {
	switch format {
	case FormatJSON:
		return JSON(w, res)
	case FormatCSV:
		return CSV(w, ChangeRows(res))
	case FormatText:
		return DeckList(w, res.Optimized, "", res.Format)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}
