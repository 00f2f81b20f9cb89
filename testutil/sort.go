package testutil

import (
	"sort"

	"github.com/leftmike/heapsql/sql"
)

type sortRows struct {
	rows []sql.Row
	cols []string
}

func (sr sortRows) Len() int {
	return len(sr.rows)
}

func (sr sortRows) Swap(i, j int) {
	sr.rows[i], sr.rows[j] = sr.rows[j], sr.rows[i]
}

func (sr sortRows) Less(i, j int) bool {
	for _, col := range sr.cols {
		cmp := sql.Compare(sr.rows[i][col], sr.rows[j][col])
		if cmp < 0 {
			return true
		} else if cmp > 0 {
			return false
		}
	}
	return false
}

// SortRows orders rows by the values of cols, compared left to right.
func SortRows(rows []sql.Row, cols ...string) {
	sort.Stable(sortRows{rows: rows, cols: cols})
}

// SameRows reports whether two sets of rows hold the same rows, ignoring order.
func SameRows(rows1, rows2 []sql.Row) bool {
	if len(rows1) != len(rows2) {
		return false
	}

	used := make([]bool, len(rows2))
	for _, r1 := range rows1 {
		found := false
		for j, r2 := range rows2 {
			if !used[j] && r1.Equal(r2) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
