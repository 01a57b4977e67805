package core

// OutcomeKind discriminates the two shapes a query can produce.
type OutcomeKind int

const (
	OutcomeTable OutcomeKind = iota
	OutcomeScalar
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTable:
		return "table"
	case OutcomeScalar:
		return "scalar"
	default:
		return ""
	}
}

// Outcome is a tagged union over the two result shapes of a query: a
// full table, or the single value of a one-row one-column result.
// Callers interrogate Kind before picking a case, so the two can
// never be mistaken for one another.
type Outcome struct {
	kind   OutcomeKind
	scalar any
	table  *Result
}

func NewTableOutcome(table *Result) *Outcome {
	return &Outcome{kind: OutcomeTable, table: table}
}

func NewScalarOutcome(value any) *Outcome {
	return &Outcome{kind: OutcomeScalar, scalar: value}
}

// CollapseResult applies the archive's scalar-collapse rule: a result
// with exactly one row and one column becomes a scalar outcome,
// anything else (an empty table included) stays a table outcome.
func CollapseResult(result *Result) *Outcome {
	if result.Len() == 1 && len(result.Header()) == 1 {
		rows, _ := result.Rows(0, 1)
		return NewScalarOutcome(rows[0][0])
	}
	return NewTableOutcome(result)
}

func (o *Outcome) Kind() OutcomeKind {
	return o.kind
}

// Scalar returns the scalar value. The second return is false for a
// table outcome.
func (o *Outcome) Scalar() (any, bool) {
	if o.kind != OutcomeScalar {
		return nil, false
	}
	return o.scalar, true
}

// Table returns the result table. The second return is false for a
// scalar outcome.
func (o *Outcome) Table() (*Result, bool) {
	if o.kind != OutcomeTable {
		return nil, false
	}
	return o.table, true
}

// Values flattens the outcome into a single list of values: the
// scalar itself, or the first column of the table. Convenient for
// single-column enumeration queries that may collapse.
func (o *Outcome) Values() []any {
	if o.kind == OutcomeScalar {
		return []any{o.scalar}
	}

	if len(o.table.Header()) == 0 {
		return nil
	}
	values, err := o.table.Column(o.table.Header()[0])
	if err != nil {
		return nil
	}
	return values
}
