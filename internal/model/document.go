// Package model defines the domain types shared across the pipeline.
package model

// DocumentUnit is one source article folder and the input files read from
// it. Units are immutable once loaded; the pipeline never writes back into
// the fields here.
type DocumentUnit struct {
	// ID is the folder name, used as the checkpoint identifier.
	ID string
	// Dir is the absolute or driver-relative folder path.
	Dir string
	// Fulltext is the resolved full document text.
	Fulltext string
	// TokenCount is the input-size signal from token_count.txt. Zero
	// means "skip this document"; absent or unparseable files default
	// high enough to avoid the skip branch.
	TokenCount int
	// Tables holds the discovered table fragments, ordered by index.
	Tables []TableFragment
}

// TotalTableRows sums the row counts across all table fragments.
func (u *DocumentUnit) TotalTableRows() int {
	total := 0
	for _, t := range u.Tables {
		total += t.RowCount
	}
	return total
}

// TableFragment is one tableN.csv plus its caption file.
type TableFragment struct {
	Filename string
	Index    int
	Caption  string
	// Rows maps header name to cell value, one map per data row, in file
	// order.
	Rows     []map[string]string
	RowCount int
}
