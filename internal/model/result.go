package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Result is a per-stage extraction output. The service's field-level
// schema is intentionally loose (values, units, and temperature contexts
// are all nullable and vary by property), so the result stays a generic
// mapping; only the top-level "materials" sequence is a hard contract.
type Result map[string]any

// EmptyResult returns the canonical empty-result shape.
func EmptyResult() Result {
	return Result{"materials": []any{}}
}

// resultSchema enforces the one structural requirement on service output:
// a top-level object whose "materials" key is an array.
const resultSchema = `{
	"type": "object",
	"required": ["materials"],
	"properties": {
		"materials": {"type": "array"}
	}
}`

var compiledResultSchema = jsonschema.MustCompileString("result.json", resultSchema)

// Validate checks that the result carries a "materials" array. A violation
// is stage-fatal for the document being processed.
func (r Result) Validate() error {
	// Round-trip through JSON so the schema sees plain types regardless
	// of how the repair parser built the map.
	b, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "model: marshal result")
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return eris.Wrap(err, "model: decode result")
	}
	if err := compiledResultSchema.Validate(v); err != nil {
		return eris.Wrap(err, "model: result missing materials array")
	}
	return nil
}

// Materials returns the material records, skipping entries that are not
// objects. Returns nil when the key is absent or not a sequence.
func (r Result) Materials() []map[string]any {
	seq, ok := r["materials"].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, m := range seq {
		if rec, ok := m.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

// MaterialNames returns the non-empty "name" values of the material
// records, deduplicated in first-seen order.
func (r Result) MaterialNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range r.Materials() {
		name, _ := m["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// HasMaterials reports whether the result carries at least one material
// record.
func (r Result) HasMaterials() bool {
	seq, ok := r["materials"].([]any)
	return ok && len(seq) > 0
}
