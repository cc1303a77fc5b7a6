package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matextract/thermo-cli/internal/config"
	"github.com/matextract/thermo-cli/pkg/anthropic"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Key:         "test-key",
			Model:       "claude-sonnet-4-5-20250929",
			MiniModel:   "claude-haiku-4-5-20251001",
			Temperature: 0.001,
		},
		Budget: config.BudgetConfig{
			Ceiling:         5120,
			CandidateTokens: 256,
		},
		Pipeline: config.PipelineConfig{
			MaxMaterials:     20,
			ParseFailurePath: filepath.Join(t.TempDir(), "broken.txt"),
		},
	}
}

// writeUnit creates a document folder with fulltext and a token count.
func writeUnit(t *testing.T, fulltext, tokenCount string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fulltext.txt"), []byte(fulltext), 0o644))
	if tokenCount != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "token_count.txt"), []byte(tokenCount), 0o644))
	}
	return dir
}

func writeTable(t *testing.T, dir string, idx int, caption, csv string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("table%d.csv", idx)), []byte(csv), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("table%d_caption.txt", idx)), []byte(caption), 0o644))
}

// requestFor returns the recorded request whose prompt contains marker.
func requestFor(t *testing.T, stub *StubClient, marker string) (prompt string, maxTokens int64) {
	t.Helper()
	for _, req := range stub.Requests {
		content := ""
		for _, m := range req.Messages {
			content += m.Content
		}
		if strings.Contains(content, marker) {
			return content, req.MaxTokens
		}
	}
	t.Fatalf("no recorded request contains %q", marker)
	return "", 0
}

func TestRun_ScenarioA(t *testing.T) {
	// Token signal 500 → low budget 786; one candidate; no tables.
	dir := writeUnit(t, "Bi2Te3 shows ZT = 1.2 at 300 K.", "500")
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, state.Skip)
	assert.Equal(t, 786, state.MaxTokens)
	assert.Equal(t, []string{"Bi2Te3"}, state.Hints)

	// Candidate filter runs on the mini model with the fixed small budget.
	_, candTokens := requestFor(t, stub, "scientific reading assistant")
	assert.Equal(t, int64(256), candTokens)

	// Thermo stage carries the single-entry hint and the document budget.
	thermoPromptSent, thermoTokens := requestFor(t, stub, "research extraction agent")
	assert.Contains(t, thermoPromptSent, `"Bi2Te3"`)
	assert.Equal(t, int64(786), thermoTokens)

	// No tables: the table stage never ran.
	for _, req := range stub.Requests {
		for _, m := range req.Messages {
			assert.NotContains(t, m.Content, "table extraction agent")
		}
	}

	// Artifacts: thermo + structure written, no table artifact.
	assert.FileExists(t, filepath.Join(dir, ThermoArtifact))
	assert.FileExists(t, filepath.Join(dir, StructureArtifact))
	assert.NoFileExists(t, filepath.Join(dir, TablesArtifact))
}

func TestRun_ScenarioB_BudgetIncrements(t *testing.T) {
	// 4500 tokens → 1024 + 2×512 = 2048, well under the ceiling.
	dir := writeUnit(t, "PbTe data.", "4500")
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2048, state.MaxTokens)

	_, thermoTokens := requestFor(t, stub, "research extraction agent")
	assert.Equal(t, int64(2048), thermoTokens)
}

func TestRun_ScenarioC_MalformedThermoOutputRecovered(t *testing.T) {
	dir := writeUnit(t, "PbTe shows ZT = 0.8.", "500")
	stub := &StubClient{
		ThermoJSON: "```json\n{\"materials\": [{\"name\": \"PbTe\",}]}\n```",
	}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"PbTe"}, state.Thermo.MaterialNames())

	b, err := os.ReadFile(filepath.Join(dir, ThermoArtifact))
	require.NoError(t, err)
	assert.JSONEq(t, `{"materials":[{"name":"PbTe"}]}`, string(b))
}

func TestRun_ScenarioD_NoCandidates(t *testing.T) {
	dir := writeUnit(t, "This paper discusses polymer chemistry only.", "500")
	stub := &StubClient{CandidatesJSON: `{"materials": []}`}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, state.Skip)
	assert.Empty(t, state.Hints)

	// Only the candidate call happened; no extraction artifacts exist.
	assert.Len(t, stub.Requests, 1)
	assert.NoFileExists(t, filepath.Join(dir, ThermoArtifact))
	assert.NoFileExists(t, filepath.Join(dir, StructureArtifact))
}

func TestRun_ZeroTokenCountSkips(t *testing.T) {
	dir := writeUnit(t, "some text", "0")
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, state.Skip)

	// Early exit before any service call or artifact.
	assert.Empty(t, stub.Requests)
	assert.NoFileExists(t, filepath.Join(dir, ThermoArtifact))
	assert.NoFileExists(t, filepath.Join(dir, StructureArtifact))
	assert.NoFileExists(t, filepath.Join(dir, TablesArtifact))
}

func TestRun_HintListUnion(t *testing.T) {
	dir := writeUnit(t, "Bi2Te3 and SnSe and PbTe.", "500")
	stub := &StubClient{
		CandidatesJSON: `{"materials": ["Bi2Te3", "SnSe"]}`,
		ThermoJSON:     `{"materials": [{"name": "Bi2Te3"}, {"name": "PbTe"}]}`,
	}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	// Union preserves first-seen order and is a superset of the
	// candidate filter output.
	assert.Equal(t, []string{"Bi2Te3", "SnSe", "PbTe"}, state.Hints)

	structPromptSent, _ := requestFor(t, stub, "structural extraction agent")
	assert.Contains(t, structPromptSent, `"Bi2Te3", "SnSe", "PbTe"`)
}

func TestRun_ThermoFailureAbortsUnit(t *testing.T) {
	dir := writeUnit(t, "no data here", "500")
	stub := &StubClient{ThermoJSON: "total garbage, not json at all"}
	p := New(testConfig(t), stub)

	_, err := p.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract_thermo")

	// No partial output.
	assert.NoFileExists(t, filepath.Join(dir, ThermoArtifact))
	assert.NoFileExists(t, filepath.Join(dir, StructureArtifact))
}

func TestRun_StructureEmptyAbortsUnit(t *testing.T) {
	dir := writeUnit(t, "sparse text", "500")
	stub := &StubClient{StructureJSON: `{"materials": []}`}
	p := New(testConfig(t), stub)

	_, err := p.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract_structure")
	assert.NoFileExists(t, filepath.Join(dir, ThermoArtifact))
}

func TestRun_MissingFulltextFails(t *testing.T) {
	dir := t.TempDir()
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	_, err := p.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
	assert.Empty(t, stub.Requests)
}

func TestRun_WithTables(t *testing.T) {
	dir := writeUnit(t, "Bi2Te3 with tables.", "500")
	writeTable(t, dir, 1, "Table 1. ZT values.", "Material,ZT\nBi2Te3,1.2\nPbTe,0.8\n")
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	// 2 rows → 512 + 2×325 = 1162 on the mini model.
	assert.Equal(t, 1162, state.TableBudget)
	tablePromptSent, tableTokens := requestFor(t, stub, "table extraction agent")
	assert.Equal(t, int64(1162), tableTokens)
	assert.Contains(t, tablePromptSent, "Table 1. ZT values.")
	assert.Contains(t, tablePromptSent, `"Material": "Bi2Te3"`)

	assert.FileExists(t, filepath.Join(dir, TablesArtifact))
}

func TestRun_EmptyTableResultWritesNoArtifact(t *testing.T) {
	dir := writeUnit(t, "Bi2Te3 with one table.", "500")
	writeTable(t, dir, 1, "Table 1.", "a,b\n1,2\n")
	stub := &StubClient{TablesJSON: `{"materials": []}`}
	p := New(testConfig(t), stub)

	_, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, ThermoArtifact))
	assert.FileExists(t, filepath.Join(dir, StructureArtifact))
	assert.NoFileExists(t, filepath.Join(dir, TablesArtifact))
}

// flakyTableClient fails only the table-stage call; every other stage
// answers from the stub.
type flakyTableClient struct {
	StubClient
}

func (c *flakyTableClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	for _, m := range req.Messages {
		if strings.Contains(m.Content, "table extraction agent") {
			return nil, eris.New("503 service overloaded")
		}
	}
	return c.StubClient.CreateMessage(ctx, req)
}

func TestRun_TableServiceErrorIsAbsorbed(t *testing.T) {
	// A failed table-stage call degrades to the empty result; the unit
	// still completes and writes the document-level artifacts.
	dir := writeUnit(t, "Bi2Te3 with one table.", "500")
	writeTable(t, dir, 1, "Table 1.", "a,b\n1,2\n")
	p := New(testConfig(t), &flakyTableClient{})

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, state.TableOutput.HasMaterials())

	assert.FileExists(t, filepath.Join(dir, ThermoArtifact))
	assert.FileExists(t, filepath.Join(dir, StructureArtifact))
	assert.NoFileExists(t, filepath.Join(dir, TablesArtifact))
}

func TestRun_InvalidTableShapeIsAbsorbed(t *testing.T) {
	// The table stage never fails the unit; a result without a materials
	// array collapses to the empty shape.
	dir := writeUnit(t, "Bi2Te3 with one table.", "500")
	writeTable(t, dir, 1, "Table 1.", "a,b\n1,2\n")
	stub := &StubClient{TablesJSON: `{"summary": "no table data"}`}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, state.TableOutput.HasMaterials())
	assert.NoFileExists(t, filepath.Join(dir, TablesArtifact))
}

func TestRun_Idempotent(t *testing.T) {
	dir := writeUnit(t, "Bi2Te3 again.", "500")
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	_, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, ThermoArtifact))
	require.NoError(t, err)
	firstStruct, err := os.ReadFile(filepath.Join(dir, StructureArtifact))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), dir)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, ThermoArtifact))
	require.NoError(t, err)
	secondStruct, err := os.ReadFile(filepath.Join(dir, StructureArtifact))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStruct, secondStruct)
}

func TestRun_DefaultTokenCountAvoidsSkip(t *testing.T) {
	// Absent token_count.txt defaults high enough to process the
	// document in the low-budget band.
	dir := writeUnit(t, "Bi2Te3 text.", "")
	stub := &StubClient{}
	p := New(testConfig(t), stub)

	state, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, state.Skip)
	assert.Equal(t, 786, state.MaxTokens)
}
