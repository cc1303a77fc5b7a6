// Package repair recovers structured results from unreliable service
// output. The generation service may wrap JSON in prose or code fences,
// emit trailing commas, single quotes, or Python literals. Parse applies
// an ordered sequence of repair strategies and never returns an error.
package repair

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tailscale/hujson"

	"github.com/matextract/thermo-cli/internal/model"
)

var (
	// jsonRegion greedily captures the first {...} or [...] looking
	// substring, discarding any surrounding commentary.
	jsonRegion = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
	// trailingComma matches a comma immediately preceding a closing
	// brace or bracket.
	trailingComma = regexp.MustCompile(`,\s*([\]}])`)
)

// Parser turns a possibly-malformed text blob into a best-effort Result.
type Parser struct {
	// DebugPath receives the original offending text when every strategy
	// fails. Last failure wins. Empty disables the side file.
	DebugPath string
}

// Parse applies the repair strategies in order and returns the first
// successful mapping. On total failure it persists the raw text to the
// debug side file and returns the canonical empty shape. Never errors.
func (p *Parser) Parse(raw string) model.Result {
	text := stripFences(raw)

	if m := jsonRegion.FindString(text); m != "" {
		text = m
	}

	text = trailingComma.ReplaceAllString(text, "$1")

	// Normalize foreign literals. The blanket quote replacement is lossy:
	// a legitimate apostrophe inside a string value gets rewritten too.
	// Known imprecision, kept to match observed recovery behavior.
	text = strings.ReplaceAll(text, "None", "null")
	text = strings.ReplaceAll(text, "'", `"`)

	if out, err := strictParse(text); err == nil {
		return out
	}
	if out, err := relaxedParse(text); err == nil {
		zap.L().Debug("repair: recovered via relaxed parse")
		return out
	}
	if out, err := yamlParse(text); err == nil {
		zap.L().Debug("repair: recovered via yaml parse")
		return out
	}

	zap.L().Warn("repair: all parse strategies failed",
		zap.Int("raw_len", len(raw)),
	)
	p.dump(raw)
	return model.EmptyResult()
}

// stripFences removes a leading/trailing markdown code fence and
// surrounding whitespace.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// strictParse attempts a standard JSON object parse.
func strictParse(text string) (model.Result, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	if out == nil {
		// "null" decodes without error but is not a mapping.
		return nil, eris.New("repair: not a mapping")
	}
	return model.Result(out), nil
}

// relaxedParse standardizes "human JSON" (trailing commas, comments) and
// retries the strict parse.
func relaxedParse(text string) (model.Result, error) {
	b, err := hujson.Standardize([]byte(text))
	if err != nil {
		return nil, err
	}
	return strictParse(string(b))
}

// yamlParse is the last resort: YAML is a superset of JSON that tolerates
// single quotes and unquoted tokens, which covers dictionary-literal
// dialects that resemble but are not valid JSON.
func yamlParse(text string) (model.Result, error) {
	var out map[string]any
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, eris.New("repair: not a mapping")
	}
	return model.Result(out), nil
}

// dump persists the offending raw text for offline inspection.
func (p *Parser) dump(raw string) {
	if p.DebugPath == "" {
		return
	}
	if err := os.WriteFile(p.DebugPath, []byte(raw), 0o644); err != nil {
		zap.L().Warn("repair: write debug file",
			zap.String("path", p.DebugPath),
			zap.Error(err),
		)
	}
}
