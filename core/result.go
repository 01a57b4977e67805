package core

import (
	"fmt"
	"strings"
)

var ErrInvalidRange = func(from, to int) error { return fmt.Errorf("invalid selection range: %d ... %d", from, to) }

// Result is the drained form of the ResultStream iterator - an
// immutable in-memory table. It is built from a stream exactly once
// and never modified afterwards; derived tables are new Results.
type Result struct {
	header Header
	rows   []Row
}

// NewResult drains the stream into a Result. The stream is closed on
// return, on the error path included.
func NewResult(iter ResultStream) (*Result, error) {
	defer iter.Close()

	r := &Result{
		header: iter.Header(),
		rows:   make([]Row, 0),
	}

	for iter.HasNext() {
		row, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iter.Next: %w", err)
		}
		r.rows = append(r.rows, row)
	}

	return r, nil
}

// NewResultFromRows builds a Result directly. Used by derived-table
// operations and tests.
func NewResultFromRows(header Header, rows []Row) *Result {
	return &Result{
		header: header,
		rows:   rows,
	}
}

func (r *Result) Header() Header {
	return r.header
}

func (r *Result) Len() int {
	return len(r.rows)
}

// Rows returns the selected row range. Negative indices select from
// the back of the table: Rows(0, -1) returns everything,
// Rows(-3, -1) the last two rows.
func (r *Result) Rows(from, to int) ([]Row, error) {
	// validation
	if (from < 0 && to < 0) || (from >= 0 && to >= 0) {
		if from > to {
			return nil, ErrInvalidRange(from, to)
		}
	}
	// undefined -> error
	if from < 0 && to >= 0 {
		return nil, ErrInvalidRange(from, to)
	}

	length := len(r.rows)
	if from < 0 {
		from += length + 1
		if from < 0 {
			from = 0
		}
	}
	if to < 0 {
		to += length + 1
		if to < 0 {
			to = 0
		}
	}

	if from > length {
		from = length
	}
	if to > length {
		to = length
	}

	return r.rows[from:to], nil
}

// columnIndex returns the position of the named column, or -1.
func (r *Result) columnIndex(name string) int {
	for i, h := range r.header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column in row order.
func (r *Result) Column(name string) ([]any, error) {
	idx := r.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("no column named %q", name)
	}

	values := make([]any, len(r.rows))
	for i, row := range r.rows {
		values[i] = row[idx]
	}
	return values, nil
}

// WithoutColumns returns a new Result with the named columns removed.
// Names not present in the header are ignored.
func (r *Result) WithoutColumns(names ...string) *Result {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	var keep []int
	header := Header{}
	for i, h := range r.header {
		if drop[h] {
			continue
		}
		keep = append(keep, i)
		header = append(header, h)
	}

	rows := make([]Row, len(r.rows))
	for i, row := range r.rows {
		out := make(Row, 0, len(keep))
		for _, idx := range keep {
			out = append(out, row[idx])
		}
		rows[i] = out
	}

	return &Result{header: header, rows: rows}
}

// MapColumn returns a new Result with fn applied to every value of
// the named column. The first conversion error aborts the mapping.
func (r *Result) MapColumn(name string, fn func(any) (any, error)) (*Result, error) {
	idx := r.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("no column named %q", name)
	}

	rows := make([]Row, len(r.rows))
	for i, row := range r.rows {
		out := make(Row, len(row))
		copy(out, row)

		mapped, err := fn(row[idx])
		if err != nil {
			return nil, fmt.Errorf("column %q, row %d: %w", name, i, err)
		}
		out[idx] = mapped
		rows[i] = out
	}

	return &Result{header: r.header, rows: rows}, nil
}

// ColumnsMatching returns the names of all columns whose name
// contains the given substring, case-insensitively.
func (r *Result) ColumnsMatching(substr string) []string {
	substr = strings.ToLower(substr)

	var out []string
	for _, h := range r.header {
		if strings.Contains(strings.ToLower(h), substr) {
			out = append(out, h)
		}
	}
	return out
}

func (r *Result) Format(formatter Formatter) ([]byte, error) {
	f, err := formatter.Format(r.header, r.rows, &FormatterOptions{})
	if err != nil {
		return nil, fmt.Errorf("formatter.Format: %w", err)
	}
	return f, nil
}
