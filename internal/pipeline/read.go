package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/corpus"
)

// read loads the document unit: fulltext (required), the token-count
// signal, and all table fragments. The unit is immutable from here on.
func (p *Pipeline) read(ctx context.Context, s State) (State, error) {
	unit, err := corpus.LoadUnit(s.Dir)
	if err != nil {
		return s, err
	}
	unit.Tables = corpus.DiscoverTables(s.Dir)

	s.Unit = unit
	s.Retries = 0
	return s, nil
}

// planBudget sizes the document-level generation budget from the token
// count. A zero signal routes the unit to an early exit.
func (p *Pipeline) planBudget(ctx context.Context, s State) (State, error) {
	maxTokens, skip := p.planner.ForDocument(s.Unit.TokenCount)
	if skip {
		zap.L().Info("pipeline: zero token count, skipping document",
			zap.String("unit", s.ID),
		)
		s.Skip = true
		return s, nil
	}

	zap.L().Info("pipeline: document budget planned",
		zap.String("unit", s.ID),
		zap.Int("token_count", s.Unit.TokenCount),
		zap.Int("max_tokens", maxTokens),
	)
	s.MaxTokens = maxTokens
	return s, nil
}
