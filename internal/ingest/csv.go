// Package ingest loads delimited log files and produces the bounded samples,
// metrics and evidence rows that feed report generation.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cyberflux/internal/logging"
)

// ErrNotFound is returned when the requested dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// DefaultSampleRows caps how many data rows are re-emitted into a prompt.
const DefaultSampleRows = 60

// Row maps column name to raw string value for one parsed record.
type Row map[string]string

// Table is a parsed CSV: ordered header plus rows keyed by header name.
type Table struct {
	Columns []string
	Rows    []Row
}

// Parse reads delimited text with a header row. Blank lines are skipped and
// do not count as data rows. Malformed input returns an error; the caller
// decides how to surface it.
func Parse(r io.Reader, nrows int) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	columns := make([]string, len(header))
	for i, c := range header {
		columns[i] = strings.TrimSpace(c)
	}

	t := &Table{Columns: columns}
	for {
		if nrows > 0 && len(t.Rows) >= nrows {
			break
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse row %d: %w", len(t.Rows)+2, err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}

	logging.IngestDebug("parsed table: %d columns, %d rows", len(t.Columns), len(t.Rows))
	return t, nil
}

// Load resolves filename against dataDir (absolute paths pass through) and
// parses it. A missing file returns ErrNotFound so handlers can map it to 404.
func Load(dataDir, filename string, nrows int) (*Table, error) {
	path := filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataDir, filename)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (place the CSV in %s or pass a full path)", ErrNotFound, filename, dataDir)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	timer := logging.StartTimer(logging.CategoryIngest, "load "+filename)
	defer timer.Stop()

	return Parse(f, nrows)
}

// Sample returns the first min(n, len(Rows)) rows.
func (t *Table) Sample(n int) []Row {
	if n <= 0 {
		n = DefaultSampleRows
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// SampleText re-emits the header plus the first min(n, row count) rows as
// newline-joined comma-separated text in header order. A 3-row table yields
// exactly 4 lines; row counts beyond n never add lines.
func (t *Table) SampleText(n int) string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, ","))

	for _, row := range t.Sample(n) {
		vals := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			vals[i] = row[col]
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
