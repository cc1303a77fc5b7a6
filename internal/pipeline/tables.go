package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/model"
)

// planTableBudget sizes the table-stage budget from the total row count
// across the unit's table fragments.
func (p *Pipeline) planTableBudget(ctx context.Context, s State) (State, error) {
	rows := s.Unit.TotalTableRows()
	s.TableBudget = p.planner.ForTables(rows)

	zap.L().Info("pipeline: table budget planned",
		zap.String("unit", s.ID),
		zap.Int("tables", len(s.Unit.Tables)),
		zap.Int("total_rows", rows),
		zap.Int("max_tokens", s.TableBudget),
	)
	return s, nil
}

// extractTables runs the table stage on the mini model. Unlike the
// document stages, a low-quality result here is absorbed: the stage never
// fails the unit, worst case it yields the empty shape.
func (p *Pipeline) extractTables(ctx context.Context, s State) (State, error) {
	if len(s.Unit.Tables) == 0 {
		s.TableOutput = model.EmptyResult()
		return s, nil
	}

	prompt := fmt.Sprintf(tablePrompt, tableHint(s.Hints), combineTableBlock(s.Unit.Tables))

	text, err := p.invoke(ctx, stageExtractTables, p.cfg.Anthropic.MiniModel, s.TableBudget, prompt)
	if err != nil {
		zap.L().Warn("pipeline: table extraction call failed, using empty result",
			zap.String("unit", s.ID),
			zap.Error(err),
		)
		s.TableOutput = model.EmptyResult()
		return s, nil
	}

	out := p.parser.Parse(text)
	if err := out.Validate(); err != nil {
		zap.L().Warn("pipeline: table extraction produced invalid shape, using empty result",
			zap.String("unit", s.ID),
			zap.Error(err),
		)
		out = model.EmptyResult()
	}

	s.TableOutput = out
	return s, nil
}

// combineTableBlock concatenates every fragment's caption and row data
// into one prompt block.
func combineTableBlock(tables []model.TableFragment) string {
	var b strings.Builder
	for i, table := range tables {
		fmt.Fprintf(&b, "### Table %d Caption:\n%s\n\n", i+1, table.Caption)
		rows, err := json.MarshalIndent(table.Rows, "", "  ")
		if err != nil {
			// Rows are string maps; this cannot realistically fail.
			rows = []byte("[]")
		}
		fmt.Fprintf(&b, "### Table %d CSV Data:\n%s\n\n", i+1, rows)
	}
	return b.String()
}
