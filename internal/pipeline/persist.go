package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/matextract/thermo-cli/internal/model"
)

// Output artifact names inside each document folder.
const (
	ThermoArtifact    = "t.json"
	StructureArtifact = "s.json"
	TablesArtifact    = "tables_output.json"
)

// persist writes the result artifacts into the document folder. The
// table artifact is only written when it carries at least one material.
// Reprocessing silently overwrites prior artifacts.
func (p *Pipeline) persist(ctx context.Context, s State) (State, error) {
	if err := writeResult(filepath.Join(s.Dir, ThermoArtifact), s.Thermo); err != nil {
		return s, err
	}
	if err := writeResult(filepath.Join(s.Dir, StructureArtifact), s.Structure); err != nil {
		return s, err
	}
	if s.TableOutput.HasMaterials() {
		if err := writeResult(filepath.Join(s.Dir, TablesArtifact), s.TableOutput); err != nil {
			return s, err
		}
	}
	return s, nil
}

func writeResult(path string, result model.Result) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal result")
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return eris.Wrap(err, "pipeline: write "+filepath.Base(path))
	}
	return nil
}
