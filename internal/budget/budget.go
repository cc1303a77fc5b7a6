// Package budget sizes per-call max-token budgets from input-size signals.
// The policies are step/linear heuristics tuned empirically: too small a
// budget truncates structured output mid-record, too large wastes cost.
package budget

const (
	// Document-level policy bands.
	lowBandMax = 1000
	midBandMax = 3000
	lowBudget  = 786
	midBudget  = 1024
	stepTokens = 1000
	stepBudget = 512

	// Table-level policy.
	tableBase  = 512
	perRowCost = 325

	// DefaultCeiling caps any computed budget when no ceiling is
	// configured.
	DefaultCeiling = 5120
)

// Planner computes capacity limits for the generation service.
type Planner struct {
	// Ceiling is the hard cap on any computed budget.
	Ceiling int
}

// NewPlanner returns a Planner with the given ceiling, falling back to
// DefaultCeiling when non-positive.
func NewPlanner(ceiling int) *Planner {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Planner{Ceiling: ceiling}
}

// ForDocument returns the max-token budget for the document-level
// extraction stages given the token-count signal. The second return is
// true when the document should be skipped entirely (zero signal).
// Monotonically non-decreasing in tokenCount, clamped to the ceiling.
func (p *Planner) ForDocument(tokenCount int) (int, bool) {
	if tokenCount == 0 {
		return 0, true
	}
	switch {
	case tokenCount <= lowBandMax:
		return p.clamp(lowBudget), false
	case tokenCount <= midBandMax:
		return p.clamp(midBudget), false
	default:
		extra := (tokenCount - midBandMax) / stepTokens
		return p.clamp(midBudget + stepBudget*(extra+1)), false
	}
}

// ForTables returns the max-token budget for the table extraction stage:
// base plus a per-row cost, clamped to the ceiling. Zero rows yields the
// base alone.
func (p *Planner) ForTables(totalRows int) int {
	if totalRows <= 0 {
		return tableBase
	}
	return p.clamp(tableBase + totalRows*perRowCost)
}

func (p *Planner) clamp(n int) int {
	if n > p.Ceiling {
		return p.Ceiling
	}
	return n
}
