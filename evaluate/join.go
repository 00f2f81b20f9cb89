package evaluate

import (
	"github.com/leftmike/heapsql/engine"
	"github.com/leftmike/heapsql/flags"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/stmt"
)

type joinState struct {
	typ      stmt.JoinType
	left     engine.Table
	right    engine.Table
	leftCol  string
	rightCol string
	conds    sql.Conditions
	rows     []sql.Row
}

func qualify(tbl engine.Table, col string) string {
	return tbl.Name() + "." + col
}

// whereConditions qualifies the conditions of a join; an unqualified column belongs to
// whichever of the two tables has it.
func (js *joinState) whereConditions(where []stmt.Condition) (sql.Conditions, error) {
	var conds sql.Conditions
	for _, c := range where {
		var tbl engine.Table
		switch c.Column.Table {
		case js.left.Name():
			tbl = js.left
		case js.right.Name():
			tbl = js.right
		case "":
			inLeft := hasColumn(js.left, c.Column.Column)
			inRight := hasColumn(js.right, c.Column.Column)
			if inLeft && inRight {
				return nil, sql.Errorf(sql.ErrSchema, "evaluate: column %s is ambiguous",
					c.Column.Column)
			} else if inLeft {
				tbl = js.left
			} else if inRight {
				tbl = js.right
			} else {
				return nil, sql.Errorf(sql.ErrSchema, "evaluate: unknown column %s",
					c.Column.Column)
			}
		default:
			return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s not in query: %s",
				c.Column.Table, c.Column)
		}

		if !hasColumn(tbl, c.Column.Column) {
			return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s: unknown column %s",
				tbl.Name(), c.Column.Column)
		}
		conds = append(conds, sql.Condition{Column: qualify(tbl, c.Column.Column),
			Value: c.Value})
	}
	return conds, nil
}

// emit adds the joined row if it matches the conditions; a nil lrow or rrow is padded with
// nulls.
func (js *joinState) emit(lrow, rrow sql.Row) {
	row := sql.Row{}
	for _, col := range js.left.Columns() {
		var val sql.Value
		if lrow != nil {
			val = lrow[col.Name]
		}
		row[qualify(js.left, col.Name)] = val
	}
	for _, col := range js.right.Columns() {
		var val sql.Value
		if rrow != nil {
			val = rrow[col.Name]
		}
		row[qualify(js.right, col.Name)] = val
	}

	if js.conds.Match(row) {
		js.rows = append(js.rows, row)
	}
}

func (ex *Executor) join(st *stmt.Join) (*Result, error) {
	if st.Left == st.Right {
		return nil, sql.Errorf(sql.ErrSchema, "evaluate: can't join table %s to itself", st.Left)
	}

	left, err := ex.lookupTable(st.Left)
	if err != nil {
		return nil, err
	}
	right, err := ex.lookupTable(st.Right)
	if err != nil {
		return nil, err
	}
	if !hasColumn(left, st.LeftColumn) {
		return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s: unknown column %s", st.Left,
			st.LeftColumn)
	}
	if !hasColumn(right, st.RightColumn) {
		return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s: unknown column %s",
			st.Right, st.RightColumn)
	}

	js := &joinState{
		typ:      st.Type,
		left:     left,
		right:    right,
		leftCol:  st.LeftColumn,
		rightCol: st.RightColumn,
	}
	js.conds, err = js.whereConditions(st.Where)
	if err != nil {
		return nil, err
	}

	var indexed bool
	if ex.flags.GetFlag(flags.IndexJoin) {
		_, indexed = right.LookupByColumn(st.RightColumn, nil)
	}
	if indexed {
		js.indexJoin()
	} else {
		js.hashJoin()
	}

	res := &Result{
		Kind: RowsResult,
		Rows: js.rows,
	}
	for _, col := range left.Columns() {
		res.Columns = append(res.Columns, qualify(left, col.Name))
	}
	for _, col := range right.Columns() {
		res.Columns = append(res.Columns, qualify(right, col.Name))
	}
	return res, nil
}

// indexJoin looks up the matching right rows for each left row using the index on the
// right join column.
func (js *joinState) indexJoin() {
	leftVals := map[sql.Value]struct{}{}
	for _, lrow := range js.left.Rows() {
		val := lrow[js.leftCol]
		leftVals[val] = struct{}{}

		rrows, _ := js.right.LookupByColumn(js.rightCol, val)
		for _, rrow := range rrows {
			js.emit(lrow, rrow)
		}
		if len(rrows) == 0 && js.typ == stmt.LeftJoin {
			js.emit(lrow, nil)
		}
	}

	if js.typ == stmt.RightJoin {
		for _, rrow := range js.right.Rows() {
			if _, ok := leftVals[rrow[js.rightCol]]; !ok {
				js.emit(nil, rrow)
			}
		}
	}
}

// hashJoin builds a hash table from the smaller table and probes it with the rows of the
// other table. Rows of the preserved side of an outer join which match nothing are emitted
// padded with nulls.
func (js *joinState) hashJoin() {
	lrows := js.left.Rows()
	rrows := js.right.Rows()

	buildLeft := len(lrows) <= len(rrows)
	build, probe := rrows, lrows
	buildCol, probeCol := js.rightCol, js.leftCol
	if buildLeft {
		build, probe = lrows, rrows
		buildCol, probeCol = js.leftCol, js.rightCol
	}

	hashed := map[sql.Value][]int{}
	for bdx, row := range build {
		val := row[buildCol]
		hashed[val] = append(hashed[val], bdx)
	}

	preserveBuild := (buildLeft && js.typ == stmt.LeftJoin) ||
		(!buildLeft && js.typ == stmt.RightJoin)
	preserveProbe := (buildLeft && js.typ == stmt.RightJoin) ||
		(!buildLeft && js.typ == stmt.LeftJoin)

	matched := make([]bool, len(build))
	emit := func(brow, prow sql.Row) {
		if buildLeft {
			js.emit(brow, prow)
		} else {
			js.emit(prow, brow)
		}
	}

	for _, prow := range probe {
		bdxs := hashed[prow[probeCol]]
		for _, bdx := range bdxs {
			matched[bdx] = true
			emit(build[bdx], prow)
		}
		if len(bdxs) == 0 && preserveProbe {
			emit(nil, prow)
		}
	}

	if preserveBuild {
		for bdx, brow := range build {
			if !matched[bdx] {
				emit(brow, nil)
			}
		}
	}
}
