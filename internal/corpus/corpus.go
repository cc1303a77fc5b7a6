// Package corpus reads document unit folders produced by the upstream
// article pre-processor: fulltext.txt, token_count.txt, and numbered
// table fragment pairs (tableN.csv + tableN_caption.txt).
package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/model"
)

// defaultTokenCount stands in when token_count.txt is absent or
// unparseable. It lands in the low-budget band but never triggers the
// zero-signal skip.
const defaultTokenCount = 999

var tableFilePattern = regexp.MustCompile(`^table(\d+)\.csv$`)

// LoadUnit reads one document folder. Fulltext is required; everything
// else degrades gracefully.
func LoadUnit(dir string) (*model.DocumentUnit, error) {
	fulltext, err := ReadFulltext(dir)
	if err != nil {
		return nil, err
	}

	unit := &model.DocumentUnit{
		ID:         filepath.Base(dir),
		Dir:        dir,
		Fulltext:   fulltext,
		TokenCount: ReadTokenCount(dir),
	}
	return unit, nil
}

// ReadFulltext reads the required full document text.
func ReadFulltext(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, "fulltext.txt"))
	if err != nil {
		return "", eris.Wrap(err, "corpus: read fulltext")
	}
	return string(b), nil
}

// ReadTokenCount reads the input-size signal. Absent or unparseable files
// yield defaultTokenCount so the document is still budgeted and processed.
func ReadTokenCount(dir string) int {
	b, err := os.ReadFile(filepath.Join(dir, "token_count.txt"))
	if err != nil {
		zap.L().Warn("corpus: token_count.txt unreadable, using default",
			zap.String("dir", dir),
			zap.Int("default", defaultTokenCount),
		)
		return defaultTokenCount
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || n < 0 {
		zap.L().Warn("corpus: token_count.txt unparseable, using default",
			zap.String("dir", dir),
			zap.Int("default", defaultTokenCount),
		)
		return defaultTokenCount
	}
	return n
}

// DiscoverTables lists the folder once and returns all complete table
// fragment pairs sorted by index. Numbering gaps are tolerated; a CSV
// without its caption file is ignored. A fragment that fails to read is
// logged and skipped; it never aborts the document.
func DiscoverTables(dir string) []model.TableFragment {
	entries, err := os.ReadDir(dir)
	if err != nil {
		zap.L().Warn("corpus: list folder for tables", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	var indexes []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := tableFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		captionPath := filepath.Join(dir, fmt.Sprintf("table%d_caption.txt", idx))
		if _, err := os.Stat(captionPath); err != nil {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var fragments []model.TableFragment
	for _, idx := range indexes {
		frag, err := readFragment(dir, idx)
		if err != nil {
			zap.L().Warn("corpus: failed reading table fragment, skipping",
				zap.String("dir", dir),
				zap.Int("index", idx),
				zap.Error(err),
			)
			continue
		}
		fragments = append(fragments, frag)
	}
	return fragments
}

// readFragment reads one tableN.csv + caption pair. The first CSV row is
// the header; data rows become header-keyed records.
func readFragment(dir string, idx int) (model.TableFragment, error) {
	filename := fmt.Sprintf("table%d.csv", idx)

	captionBytes, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("table%d_caption.txt", idx)))
	if err != nil {
		return model.TableFragment{}, eris.Wrap(err, "corpus: read caption")
	}

	f, err := os.Open(filepath.Join(dir, filename))
	if err != nil {
		return model.TableFragment{}, eris.Wrap(err, "corpus: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return model.TableFragment{}, eris.Wrap(err, "corpus: read csv")
	}
	if len(records) == 0 {
		return model.TableFragment{}, eris.New("corpus: empty csv")
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return model.TableFragment{
		Filename: filename,
		Index:    idx,
		Caption:  strings.TrimSpace(string(captionBytes)),
		Rows:     rows,
		RowCount: len(rows),
	}, nil
}
