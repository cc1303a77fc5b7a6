package pipeline

import (
	"context"
	"strings"

	"github.com/matextract/thermo-cli/pkg/anthropic"
)

// Compile-time interface check.
var _ anthropic.Client = (*StubClient)(nil)

// StubClient implements anthropic.Client with deterministic canned
// responses, routed by stage-specific prompt markers. Zero values fall
// back to small valid payloads. Requests are recorded in call order so
// tests can assert budgets and prompt contents. Not safe for concurrent
// use; the pipeline is strictly sequential.
type StubClient struct {
	CandidatesJSON string
	ThermoJSON     string
	StructureJSON  string
	TablesJSON     string

	Requests []anthropic.MessageRequest
}

// Default canned payloads.
const (
	stubCandidates = `{"materials": ["Bi2Te3"]}`
	stubThermo     = `{"materials": [{"name": "Bi2Te3", "zt_values": [{"value": 1.2, "ZT_temperature": 300, "ZT_temperature_unit": "K"}]}]}`
	stubStructure  = `{"materials": [{"name": "Bi2Te3", "crystal_structure": "rhombohedral", "space_group": "R-3m"}]}`
	stubTables     = `{"materials": [{"name": "Bi2Te3", "zt_values": [{"value": 1.1, "ZT_temperature": 320, "ZT_temperature_unit": "K"}]}]}`
)

// CreateMessage implements anthropic.Client.
func (c *StubClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.Requests = append(c.Requests, req)

	prompt := ""
	for _, m := range req.Messages {
		prompt += m.Content
	}

	var text string
	switch {
	case strings.Contains(prompt, "scientific reading assistant"):
		text = pick(c.CandidatesJSON, stubCandidates)
	case strings.Contains(prompt, "research extraction agent"):
		text = pick(c.ThermoJSON, stubThermo)
	case strings.Contains(prompt, "structural extraction agent"):
		text = pick(c.StructureJSON, stubStructure)
	case strings.Contains(prompt, "table extraction agent"):
		text = pick(c.TablesJSON, stubTables)
	default:
		text = `{"materials": []}`
	}

	return &anthropic.MessageResponse{
		ID:         "stub-msg-001",
		Model:      req.Model,
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage: anthropic.TokenUsage{
			InputTokens:  150,
			OutputTokens: 50,
		},
	}, nil
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
