// Package pipeline drives the per-document extraction state machine: a
// fixed acyclic stage graph with data-dependent skip branches, sized
// generation budgets, and recovery parsing of unreliable service output.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/budget"
	"github.com/matextract/thermo-cli/internal/config"
	"github.com/matextract/thermo-cli/internal/repair"
	"github.com/matextract/thermo-cli/pkg/anthropic"
)

// Stage node names. Terminal is the implicit end state.
const (
	stageRead             = "read"
	stagePlanBudget       = "plan_budget"
	stageFindCandidates   = "find_candidates"
	stageExtractThermo    = "extract_thermo"
	stageExtractStructure = "extract_structure"
	stagePlanTableBudget  = "plan_table_budget"
	stageExtractTables    = "extract_tables"
	stagePersist          = "persist"
	stageTerminal         = ""
)

// stageFunc transforms the state. It must treat its argument as
// immutable input and return the replacement.
type stageFunc func(ctx context.Context, s State) (State, error)

// node couples a stage with its routing predicate.
type node struct {
	run  stageFunc
	next func(State) string
}

// Pipeline owns the stage graph and the injected collaborators. One
// Pipeline serves many sequential Run calls.
type Pipeline struct {
	cfg     *config.Config
	ai      anthropic.Client
	planner *budget.Planner
	parser  *repair.Parser

	nodes map[string]node
}

// New creates a Pipeline with all dependencies wired from config.
func New(cfg *config.Config, aiClient anthropic.Client) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		ai:      aiClient,
		planner: budget.NewPlanner(cfg.Budget.Ceiling),
		parser:  &repair.Parser{DebugPath: cfg.Pipeline.ParseFailurePath},
	}

	p.nodes = map[string]node{
		stageRead: {
			run:  p.read,
			next: func(State) string { return stagePlanBudget },
		},
		stagePlanBudget: {
			run: p.planBudget,
			next: func(s State) string {
				if s.Skip {
					return stageTerminal
				}
				return stageFindCandidates
			},
		},
		stageFindCandidates: {
			run: p.findCandidates,
			next: func(s State) string {
				if s.Skip {
					return stageTerminal
				}
				return stageExtractThermo
			},
		},
		stageExtractThermo: {
			run:  p.extractThermo,
			next: func(State) string { return stageExtractStructure },
		},
		stageExtractStructure: {
			run:  p.extractStructure,
			next: func(State) string { return stagePlanTableBudget },
		},
		stagePlanTableBudget: {
			run: p.planTableBudget,
			next: func(s State) string {
				if len(s.Unit.Tables) > 0 {
					return stageExtractTables
				}
				return stagePersist
			},
		},
		stageExtractTables: {
			run:  p.extractTables,
			next: func(State) string { return stagePersist },
		},
		stagePersist: {
			run:  p.persist,
			next: func(State) string { return stageTerminal },
		},
	}

	return p
}

// Run processes one document folder to completion or early exit. An error
// from any stage aborts the unit; there is no partial output and no
// retry. The returned State reflects the terminal state on success.
func (p *Pipeline) Run(ctx context.Context, dir string) (State, error) {
	log := zap.L().With(zap.String("unit", filepath.Base(dir)))
	log.Info("pipeline: starting document")

	state := State{
		Dir: dir,
		ID:  filepath.Base(dir),
	}

	current := stageRead
	for current != stageTerminal {
		n, ok := p.nodes[current]
		if !ok {
			return state, eris.Errorf("pipeline: unknown stage %q", current)
		}

		start := time.Now()
		nextState, err := n.run(ctx, state)
		duration := time.Since(start).Milliseconds()

		if err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", current),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
			return state, eris.Wrap(err, "pipeline: stage "+current)
		}

		log.Info("pipeline: stage complete",
			zap.String("stage", current),
			zap.Int64("duration_ms", duration),
		)

		state = nextState
		current = n.next(state)
	}

	if state.Skip {
		log.Info("pipeline: document skipped")
	} else {
		log.Info("pipeline: document complete")
	}
	return state, nil
}

// invoke performs one blocking call to the generation service with the
// stage's budget and logs cost attribution.
func (p *Pipeline) invoke(ctx context.Context, stageName, modelID string, maxTokens int, prompt string) (string, error) {
	temp := p.cfg.Anthropic.Temperature
	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: "+stageName+" service call")
	}
	resp.Usage.LogCost(modelID, stageName)
	return resp.Text(), nil
}
