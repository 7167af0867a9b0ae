// Package importer loads order export CSV files into the relational schema.
package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Table is one CSV file loaded fully into memory with header-name access.
// Export batches are bounded by one file, so no streaming is needed.
type Table struct {
	path    string
	columns map[string]int
	records [][]string
}

// ReadCSV loads a CSV file and indexes its header row.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		columns[strings.TrimSpace(col)] = i
	}

	return &Table{path: path, columns: columns, records: rows[1:]}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.records)
}

// HasColumn reports whether the header contains the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the first of the candidate names present in the header.
// Export files spell column names inconsistently across versions.
func (t *Table) Column(candidates ...string) (string, bool) {
	for _, name := range candidates {
		if t.HasColumn(name) {
			return name, true
		}
	}
	return "", false
}

// Value returns the cell at (row, column), or "" when the column is absent
// or the record is short.
func (t *Table) Value(row int, column string) string {
	idx, ok := t.columns[column]
	if !ok {
		return ""
	}
	record := t.records[row]
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
