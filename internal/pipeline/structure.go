package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// extractStructure pulls structural properties. Its hint-list is the
// union of the candidate list and the names the thermo stage actually
// found. The union propagates forward as the state's hint-list, so the
// hint-list only ever grows.
func (p *Pipeline) extractStructure(ctx context.Context, s State) (State, error) {
	merged := unionHints(s.Hints, s.Thermo.MaterialNames())

	prompt := fmt.Sprintf(structurePrompt, structureHint(merged), s.Unit.Fulltext)

	text, err := p.invoke(ctx, stageExtractStructure, p.cfg.Anthropic.Model, s.MaxTokens, prompt)
	if err != nil {
		return s, err
	}

	out := p.parser.Parse(text)
	if err := out.Validate(); err != nil {
		return s, err
	}
	if !out.HasMaterials() {
		return s, eris.New("pipeline: structure extraction returned no materials")
	}

	s.Structure = out
	s.Hints = merged
	return s, nil
}
