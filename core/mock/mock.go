// Package mock provides in-memory stand-ins for result streams and
// the query surface of the archive client, for tests.
package mock

import (
	"context"
	"fmt"

	"github.com/msbentley/boa-utils/core"
	"github.com/msbentley/boa-utils/core/builders"
)

// NewResultStream builds a slice-backed stream over pre-decoded rows.
func NewResultStream(header core.Header, rows []core.Row) core.ResultStream {
	next, hasNext := builders.NextRows(rows)

	return builders.NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(header).
		Build()
}

// Querier satisfies the query surface of the archive client with
// canned outcomes keyed by query text. Every received query is
// recorded for assertions.
type Querier struct {
	outcomes map[string]*core.Outcome
	// Queries holds every query text received, in call order.
	Queries []string
}

func NewQuerier() *Querier {
	return &Querier{
		outcomes: make(map[string]*core.Outcome),
	}
}

// Register maps a query text to its outcome.
func (q *Querier) Register(query string, outcome *core.Outcome) *Querier {
	q.outcomes[query] = outcome
	return q
}

// RegisterTable is a convenience wrapper registering a table outcome.
func (q *Querier) RegisterTable(query string, header core.Header, rows []core.Row) *Querier {
	return q.Register(query, core.NewTableOutcome(core.NewResultFromRows(header, rows)))
}

func (q *Querier) Query(_ context.Context, adql string, _ int) (*core.Outcome, error) {
	q.Queries = append(q.Queries, adql)

	outcome, ok := q.outcomes[adql]
	if !ok {
		return nil, fmt.Errorf("no canned outcome for query: %s", adql)
	}
	return outcome, nil
}
