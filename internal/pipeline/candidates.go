package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// findCandidates is the cheap first pass: a small fixed-budget call on
// the mini model producing the entity hint-list for the downstream
// stages. Zero candidates routes the unit to an early exit.
func (p *Pipeline) findCandidates(ctx context.Context, s State) (State, error) {
	prompt := fmt.Sprintf(candidatePrompt, p.cfg.Pipeline.MaxMaterials, s.Unit.Fulltext)

	text, err := p.invoke(ctx, stageFindCandidates, p.cfg.Anthropic.MiniModel, p.cfg.Budget.CandidateTokens, prompt)
	if err != nil {
		return s, err
	}

	data := p.parser.Parse(text)
	names := normalizeCandidates(data["materials"], p.cfg.Pipeline.MaxMaterials)

	if len(names) == 0 {
		zap.L().Info("pipeline: no candidate materials found, skipping downstream extraction",
			zap.String("unit", s.ID),
		)
		s.Hints = nil
		s.Skip = true
		return s, nil
	}

	zap.L().Info("pipeline: candidate materials found",
		zap.String("unit", s.ID),
		zap.Int("count", len(names)),
		zap.Strings("sample", sample(names, 8)),
	)
	s.Hints = names
	return s, nil
}

// normalizeCandidates keeps non-empty strings, deduplicated in first-seen
// order, capped at maxMaterials. No semantic validation is performed.
func normalizeCandidates(raw any, maxMaterials int) []string {
	seq, ok := raw.([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]bool, len(seq))
	var names []string
	for _, item := range seq {
		name, ok := item.(string)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if maxMaterials > 0 && len(names) >= maxMaterials {
			break
		}
	}
	return names
}

func sample(names []string, n int) []string {
	if len(names) <= n {
		return names
	}
	return names[:n]
}
