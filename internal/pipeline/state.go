package pipeline

import (
	"github.com/matextract/thermo-cli/internal/model"
)

// State is the record threaded through the stage graph for one document
// unit. Stages receive it by value and return a replacement, so a failure
// inside a stage never leaves partially-mutated state visible downstream.
type State struct {
	// Dir and ID identify the document folder being processed.
	Dir string
	ID  string

	// Unit is the loaded document. Immutable once the read stage sets it.
	Unit *model.DocumentUnit

	// MaxTokens is the document-level budget for the thermo and
	// structural stages.
	MaxTokens int

	// Hints is the entity hint-list: ordered, deduplicated material
	// names. Populated by the candidate filter; later stages may only
	// add names, never remove them.
	Hints []string

	// Per-stage results.
	Thermo      model.Result
	Structure   model.Result
	TableBudget int
	TableOutput model.Result

	// Skip marks an early exit: once set, no further extraction stage
	// runs for this unit.
	Skip bool

	// Retries is reserved for a per-unit retry policy. No stage
	// increments or reads it today.
	Retries int
}

// unionHints merges two name lists preserving first-seen order and
// dropping duplicates. The result is a superset of base.
func unionHints(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, lists := range [][]string{base, extra} {
		for _, name := range lists {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
