package evaluate

import (
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/engine"
	"github.com/leftmike/heapsql/flags"
	"github.com/leftmike/heapsql/parser"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/stmt"
)

type ResultKind int

const (
	RowsResult ResultKind = iota + 1
	CountResult
	StatusResult
)

// Result is what a statement returns: rows for SELECT, the number of rows changed for INSERT,
// UPDATE, and DELETE, and a status for CREATE TABLE and DROP TABLE.
type Result struct {
	Kind    ResultKind
	Columns []string
	Rows    []sql.Row
	Count   int
	Status  string
}

type Executor struct {
	catalog *engine.Catalog
	flags   flags.Flags
	txm     engine.TxManager
}

// NewExecutor returns an executor over a catalog which has been started.
func NewExecutor(cat *engine.Catalog, flgs flags.Flags) *Executor {
	return &Executor{
		catalog: cat,
		flags:   flgs,
	}
}

func (ex *Executor) Execute(s string) (*Result, error) {
	st, err := parser.Parse(s)
	if err != nil {
		return nil, err
	}
	return ex.ExecuteStmt(st)
}

func (ex *Executor) ExecuteStmt(st stmt.Stmt) (*Result, error) {
	log.WithField("stmt", st).Debug("evaluate: executing")

	switch st := st.(type) {
	case *stmt.CreateTable:
		err := ex.catalog.CreateTable(st.Table, st.Columns)
		if err != nil {
			return nil, err
		}
		return statusResult(), nil
	case *stmt.DropTable:
		err := ex.catalog.DropTable(st.Table)
		if err != nil {
			return nil, err
		}
		return statusResult(), nil
	case *stmt.Insert:
		return ex.insert(st)
	case *stmt.Select:
		return ex.selectRows(st)
	case *stmt.Join:
		return ex.join(st)
	case *stmt.Update:
		return ex.update(st)
	case *stmt.Delete:
		return ex.delete(st)
	}

	return nil, sql.Errorf(sql.ErrParse, "evaluate: unexpected statement: %s", st)
}

func statusResult() *Result {
	return &Result{
		Kind:   StatusResult,
		Status: "OK",
	}
}

func countResult(cnt int) *Result {
	return &Result{
		Kind:  CountResult,
		Count: cnt,
	}
}

func (ex *Executor) lookupTable(nam string) (engine.Table, error) {
	tbl, ok := ex.catalog.LookupTable(nam)
	if !ok {
		return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s not found", nam)
	}
	return tbl, nil
}

// writableTable returns the table to be changed by INSERT, UPDATE, or DELETE; only
// persistent tables other than the catalog table can be changed with SQL.
func (ex *Executor) writableTable(nam string) (*engine.PersistentTable, error) {
	if nam == engine.CatalogTable {
		return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s can't be modified", nam)
	}
	tbl, err := ex.lookupTable(nam)
	if err != nil {
		return nil, err
	}
	pt, ok := tbl.(*engine.PersistentTable)
	if !ok {
		return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s is not persistent", nam)
	}
	return pt, nil
}

func hasColumn(tbl engine.Table, col string) bool {
	_, ok := sql.FindColumn(tbl.Columns(), col)
	return ok
}

// tableConditions converts conditions which may be qualified by tbl into conditions on the
// columns of tbl.
func tableConditions(tbl engine.Table, where []stmt.Condition) (sql.Conditions, error) {
	var conds sql.Conditions
	for _, c := range where {
		if c.Column.Table != "" && c.Column.Table != tbl.Name() {
			return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s not in query: %s",
				c.Column.Table, c.Column)
		}
		if !hasColumn(tbl, c.Column.Column) {
			return nil, sql.Errorf(sql.ErrSchema, "evaluate: table %s: unknown column %s",
				tbl.Name(), c.Column.Column)
		}
		conds = append(conds, sql.Condition{Column: c.Column.Column, Value: c.Value})
	}
	return conds, nil
}

func (ex *Executor) insert(st *stmt.Insert) (*Result, error) {
	pt, err := ex.writableTable(st.Table)
	if err != nil {
		return nil, err
	}

	row := sql.Row{}
	for i, col := range st.Columns {
		row[col] = st.Values[i]
	}

	tx := ex.txm.Begin()
	err = pt.Insert(tx, row)
	if err != nil {
		return nil, err
	}
	ex.txm.Commit(tx)
	return countResult(1), nil
}

func (ex *Executor) selectRows(st *stmt.Select) (*Result, error) {
	tbl, err := ex.lookupTable(st.Table)
	if err != nil {
		return nil, err
	}
	conds, err := tableConditions(tbl, st.Where)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Kind:    RowsResult,
		Columns: sql.ColumnNames(tbl.Columns()),
	}
	for _, row := range tbl.Rows() {
		if conds.Match(row) {
			res.Rows = append(res.Rows, row.Copy())
		}
	}
	return res, nil
}

func (ex *Executor) update(st *stmt.Update) (*Result, error) {
	pt, err := ex.writableTable(st.Table)
	if err != nil {
		return nil, err
	}
	conds, err := tableConditions(pt, st.Where)
	if err != nil {
		return nil, err
	}

	set := sql.Row{}
	for _, cu := range st.Set {
		set[cu.Column] = cu.Value
	}

	tx := ex.txm.Begin()
	cnt, err := pt.Update(tx, conds, set)
	if err != nil {
		return nil, err
	}
	ex.txm.Commit(tx)
	return countResult(cnt), nil
}

func (ex *Executor) delete(st *stmt.Delete) (*Result, error) {
	pt, err := ex.writableTable(st.Table)
	if err != nil {
		return nil, err
	}
	conds, err := tableConditions(pt, st.Where)
	if err != nil {
		return nil, err
	}

	tx := ex.txm.Begin()
	cnt, err := pt.Delete(conds)
	if err != nil {
		return nil, err
	}
	ex.txm.Commit(tx)
	return countResult(cnt), nil
}
