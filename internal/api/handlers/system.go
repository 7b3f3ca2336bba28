package handlers

import (
	"net/http"

	"github.com/ramonehamilton/deck-engine/internal/api/response"
	"github.com/ramonehamilton/deck-engine/internal/heuristics"
	"github.com/ramonehamilton/deck-engine/internal/version"
)

// SystemHandler serves engine metadata.
type SystemHandler struct {
	tables *heuristics.Tables
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(tables *heuristics.Tables) *SystemHandler {
	return &SystemHandler{tables: tables}
}

// GetVersion returns the build version and the heuristic tables version.
func (h *SystemHandler) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"version":        version.GetVersion(),
		"commit":         version.Commit,
		"tables_version": h.tables.Version,
		"service":        "deck-engine-api",
	})
}

// GetFormats lists the formats the engine knows.
func (h *SystemHandler) GetFormats(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.tables.FormatNames())
}
