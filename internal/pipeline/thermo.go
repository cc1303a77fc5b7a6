package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// extractThermo pulls per-material thermoelectric observations from the
// fulltext, scoped by the candidate hint-list and the document budget.
// A result without a materials list is stage-fatal for the unit.
func (p *Pipeline) extractThermo(ctx context.Context, s State) (State, error) {
	prompt := fmt.Sprintf(thermoPrompt, thermoHint(s.Hints), s.Unit.Fulltext)

	text, err := p.invoke(ctx, stageExtractThermo, p.cfg.Anthropic.Model, s.MaxTokens, prompt)
	if err != nil {
		return s, err
	}

	out := p.parser.Parse(text)
	if err := out.Validate(); err != nil {
		return s, err
	}
	if !out.HasMaterials() {
		return s, eris.New("pipeline: thermo extraction returned no valid materials")
	}

	s.Thermo = out
	return s, nil
}
