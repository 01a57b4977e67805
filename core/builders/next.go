package builders

import (
	"errors"

	"github.com/msbentley/boa-utils/core"
)

// NextSingle creates next and hasNext functions from a provided single value.
func NextSingle(value any) (func() (core.Row, error), func() bool) {
	has := true

	// iterator functions
	next := func() (core.Row, error) {
		if !has {
			return nil, errors.New("no next row")
		}
		has = false
		return core.Row{value}, nil
	}

	hasNext := func() bool {
		return has
	}

	return next, hasNext
}

// NextSlice creates next and hasNext functions from provided values.
// preprocess is a function which parses a single value from the slice
// before adding it to a row.
func NextSlice[T any](values []T, preprocess func(T) any) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(values)
	}

	// iterator functions
	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, errors.New("no next row")
		}

		row := core.Row{preprocess(values[index])}
		index++
		return row, nil
	}

	return next, hasNext
}

// NextRows creates next and hasNext functions over fully-decoded rows.
func NextRows(rows []core.Row) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(rows)
	}

	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, errors.New("no next row")
		}

		row := rows[index]
		index++
		return row, nil
	}

	return next, hasNext
}

// NextNil creates next and hasNext functions that don't return anything (no rows).
func NextNil() (func() (core.Row, error), func() bool) {
	hasNext := func() bool {
		return false
	}

	// iterator functions
	next := func() (core.Row, error) {
		return nil, errors.New("no next row")
	}

	return next, hasNext
}
