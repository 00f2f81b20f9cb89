package engine

import (
	"sync"

	"github.com/google/btree"

	"github.com/leftmike/heapsql/sql"
)

// Table is the set of operations shared by every kind of table.
type Table interface {
	Name() string
	Columns() []sql.Column
	Insert(tx *Transaction, row sql.Row) error

	// Rows returns the rows in insertion order. The rows must not be modified.
	Rows() []sql.Row

	DeleteWhere(col string, val sql.Value) (int, error)
	Delete(conds sql.Conditions) (int, error)

	// LookupByColumn returns the rows holding val in col, and whether col is indexed. When col
	// is not indexed, the caller must scan the rows instead.
	LookupByColumn(col string, val sql.Value) ([]sql.Row, bool)
}

// TransientTable is an in memory table which is never written to disk. It can not be inserted
// into; its rows are given when it is made.
type TransientTable struct {
	mutex sync.Mutex
	name  string
	cols  []sql.Column
	cache *rowCache
}

func NewTransientTable(name string, cols []sql.Column, rows []sql.Row) *TransientTable {
	tt := &TransientTable{
		name:  name,
		cols:  cols,
		cache: newRowCache(),
	}
	for _, row := range rows {
		tt.cache.tree.ReplaceOrInsert(rowItem{seq: tt.cache.nextSeq(), row: row.Copy()})
	}
	return tt
}

func (tt *TransientTable) Name() string {
	return tt.name
}

func (tt *TransientTable) Columns() []sql.Column {
	return tt.cols
}

func (tt *TransientTable) Insert(tx *Transaction, row sql.Row) error {
	return sql.Errorf(sql.ErrSchema, "engine: table %s: not persistent", tt.name)
}

func (tt *TransientTable) Rows() []sql.Row {
	return tt.cache.rows()
}

func (tt *TransientTable) DeleteWhere(col string, val sql.Value) (int, error) {
	return tt.Delete(sql.Conditions{{Column: col, Value: val}})
}

func (tt *TransientTable) Delete(conds sql.Conditions) (int, error) {
	tt.mutex.Lock()
	defer tt.mutex.Unlock()

	tree := tt.cache.snapshot()

	var items []btree.Item
	scanTree(tree,
		func(ri rowItem) bool {
			if conds.Match(ri.row) {
				items = append(items, ri)
			}
			return true
		})
	for _, item := range items {
		tree.Delete(item)
	}
	if len(items) > 0 {
		tt.cache.publish(tree)
	}
	return len(items), nil
}

func (_ *TransientTable) LookupByColumn(col string, val sql.Value) ([]sql.Row, bool) {
	return nil, false
}
