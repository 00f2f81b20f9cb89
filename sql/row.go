package sql

import (
	"sort"
	"strings"
)

// Row maps column names to values; a missing column and a nil value both mean NULL.
type Row map[string]Value

func (r Row) Copy() Row {
	cpy := make(Row, len(r))
	for k, v := range r {
		cpy[k] = v
	}
	return cpy
}

// Equal reports whether two rows hold the same values, treating a missing column as NULL.
func (r Row) Equal(r2 Row) bool {
	for k, v := range r {
		if !Equal(v, r2[k]) {
			return false
		}
	}
	for k, v := range r2 {
		if !Equal(v, r[k]) {
			return false
		}
	}
	return true
}

// String formats the row with its columns in sorted order.
func (r Row) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteRune('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteRune(':')
		b.WriteString(Format(r[k]))
	}
	b.WriteRune('}')
	return b.String()
}

type Condition struct {
	Column string
	Value  Value
}

func (c Condition) String() string {
	return c.Column + "=" + Format(c.Value)
}

// Conditions is an AND of equality tests; no conditions match every row.
type Conditions []Condition

func (conds Conditions) Match(row Row) bool {
	for _, c := range conds {
		v, ok := row[c.Column]
		if !ok || !Equal(v, c.Value) {
			return false
		}
	}
	return true
}

func (conds Conditions) String() string {
	var b strings.Builder
	for i, c := range conds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}
	return b.String()
}
