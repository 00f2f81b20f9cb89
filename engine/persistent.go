package engine

import (
	"math"
	"sync"

	"github.com/google/btree"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/storage/encode"
	"github.com/leftmike/heapsql/storage/heap"
	"github.com/leftmike/heapsql/storage/wal"
)

type tableResolver interface {
	LookupTable(name string) (Table, bool)
}

// index maps each value of a unique column to the sequence number of the row holding it.
type index map[sql.Value]uint64

// PersistentTable keeps its rows in memory and in a heap file. The mutex guards the cache,
// the indexes, and the heap file as a unit; all changes are serialized by it. Rows are read
// from a snapshot of the cache without taking the mutex.
type PersistentTable struct {
	mutex    sync.Mutex
	name     string
	cols     []sql.Column
	colNames []string
	fkCols   []sql.Column
	heap     *heap.File
	wal      wal.Log
	tables   tableResolver
	cache    *rowCache
	indexes  map[string]index
	lastID   int32
	loaded   bool
}

// withIDColumn returns cols with the id column first, unless cols already has one.
func withIDColumn(cols []sql.Column) ([]sql.Column, error) {
	if col, ok := sql.FindColumn(cols, sql.IDColumn); ok {
		if col.Type != sql.IntegerType {
			return nil, sql.Errorf(sql.ErrSchema, "engine: column %s must be %s, not %s",
				sql.IDColumn, sql.IntegerType, col.Type)
		}
		return cols, nil
	}

	return append([]sql.Column{{Name: sql.IDColumn, Type: sql.IntegerType}}, cols...), nil
}

func newPersistentTable(name string, cols []sql.Column, hf *heap.File, wl wal.Log,
	tables tableResolver) (*PersistentTable, error) {

	cols, err := withIDColumn(cols)
	if err != nil {
		return nil, err
	}

	pt := &PersistentTable{
		name:     name,
		cols:     cols,
		colNames: sql.ColumnNames(cols),
		heap:     hf,
		wal:      wl,
		tables:   tables,
		cache:    newRowCache(),
	}
	for _, col := range cols {
		if col.IsForeignKey() {
			pt.fkCols = append(pt.fkCols, col)
		}
	}
	pt.indexes = pt.makeIndexes()
	return pt, nil
}

// The id column is always indexed, whether or not it was declared unique.
func (pt *PersistentTable) makeIndexes() map[string]index {
	indexes := map[string]index{}
	for _, col := range pt.cols {
		if col.IsIndexed() || col.Name == sql.IDColumn {
			indexes[col.Name] = index{}
		}
	}
	return indexes
}

func (pt *PersistentTable) Name() string {
	return pt.name
}

func (pt *PersistentTable) Columns() []sql.Column {
	return pt.cols
}

func (pt *PersistentTable) Rows() []sql.Row {
	return pt.cache.rows()
}

func (pt *PersistentTable) column(name string) (sql.Column, error) {
	col, ok := sql.FindColumn(pt.cols, name)
	if !ok {
		return sql.Column{}, sql.Errorf(sql.ErrSchema, "engine: table %s: unknown column %s",
			pt.name, name)
	}
	return col, nil
}

// checkValues verifies that every value in row belongs to a column of the table and has the
// column's type.
func (pt *PersistentTable) checkValues(row sql.Row) (sql.Row, error) {
	ret := make(sql.Row, len(pt.cols))
	for name, val := range row {
		col, err := pt.column(name)
		if err != nil {
			return nil, err
		}
		val, err = col.ConvertValue(val)
		if err != nil {
			return nil, sql.Errorf(sql.ErrSchema, "engine: table %s: %s", pt.name, err)
		}
		ret[name] = val
	}
	return ret, nil
}

func (pt *PersistentTable) checkConditions(conds sql.Conditions) error {
	for _, cond := range conds {
		_, err := pt.column(cond.Column)
		if err != nil {
			return err
		}
	}
	return nil
}

func (pt *PersistentTable) uniqueViolation(col string, val sql.Value) error {
	return sql.Errorf(sql.ErrConstraint, "engine: unique constraint violation on %s.%s = %s",
		pt.name, col, sql.Format(val))
}

// checkForeignKey scans a snapshot of the referenced table; the referenced table's mutex is
// never taken.
func (pt *PersistentTable) checkForeignKey(col sql.Column, val sql.Value) error {
	if val == nil {
		return sql.Errorf(sql.ErrConstraint, "engine: foreign key %s.%s cannot be null",
			pt.name, col.Name)
	}

	ref, ok := pt.tables.LookupTable(col.RefTable)
	if !ok {
		return sql.Errorf(sql.ErrConstraint,
			"engine: foreign key %s.%s: referenced table %s does not exist", pt.name, col.Name,
			col.RefTable)
	}
	for _, row := range ref.Rows() {
		if sql.Equal(row[col.RefColumn], val) {
			return nil
		}
	}
	return sql.Errorf(sql.ErrConstraint, "engine: foreign key violation: %s.%s = %s not in %s(%s)",
		pt.name, col.Name, sql.Format(val), col.RefTable, col.RefColumn)
}

func (pt *PersistentTable) encodeRow(row sql.Row) ([]byte, error) {
	buf, err := encode.EncodeRow(row, pt.colNames)
	if err != nil {
		return nil, sql.WrapError(sql.ErrSchema, err, "engine: table %s", pt.name)
	}
	return buf, nil
}

func (pt *PersistentTable) logRecord(tx *Transaction, typ wal.RecordType, row sql.Row) error {
	if tx == nil || pt.wal == nil {
		return nil
	}
	return pt.wal.Append(wal.Record{Type: typ, TxID: tx.ID, Table: pt.name, Row: row})
}

func (pt *PersistentTable) Insert(tx *Transaction, row sql.Row) error {
	row, err := pt.checkValues(row)
	if err != nil {
		return err
	}
	for _, col := range pt.colNames {
		if _, ok := row[col]; !ok {
			row[col] = nil
		}
	}

	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	for _, col := range pt.cols {
		if idx, ok := pt.indexes[col.Name]; ok {
			val := row[col.Name]
			if _, ok := idx[val]; ok {
				return pt.uniqueViolation(col.Name, val)
			}
		}
	}

	lastID := pt.lastID
	if id, ok := row[sql.IDColumn].(sql.IntValue); ok {
		if int32(id) > lastID {
			lastID = int32(id)
		}
	} else {
		if lastID == math.MaxInt32 {
			return sql.Errorf(sql.ErrConstraint, "engine: table %s: out of ids", pt.name)
		}
		lastID += 1
		row[sql.IDColumn] = sql.IntValue(lastID)
	}

	for _, col := range pt.fkCols {
		err = pt.checkForeignKey(col, row[col.Name])
		if err != nil {
			return err
		}
	}

	payload, err := pt.encodeRow(row)
	if err != nil {
		return err
	}
	err = pt.logRecord(tx, wal.InsertRecord, row)
	if err != nil {
		return err
	}
	err = pt.heap.Append(payload)
	if err != nil {
		return err
	}

	seq := pt.cache.nextSeq()
	tree := pt.cache.snapshot()
	tree.ReplaceOrInsert(rowItem{seq: seq, row: row})
	pt.cache.publish(tree)
	for col, idx := range pt.indexes {
		idx[row[col]] = seq
	}
	pt.lastID = lastID
	return nil
}

// UpdateWhere sets the values in set for every row where col equals val.
func (pt *PersistentTable) UpdateWhere(tx *Transaction, col string, val sql.Value,
	set sql.Row) (int, error) {

	return pt.Update(tx, sql.Conditions{{Column: col, Value: val}}, set)
}

type rowUpdate struct {
	seq uint64
	old sql.Row
	row sql.Row
}

// Update sets the values in set for every row matching conds and returns the number of
// matching rows. Every changed row is checked before anything is changed: if any check fails,
// no row is changed.
func (pt *PersistentTable) Update(tx *Transaction, conds sql.Conditions,
	set sql.Row) (int, error) {

	err := pt.checkConditions(conds)
	if err != nil {
		return 0, err
	}
	set, err = pt.checkValues(set)
	if err != nil {
		return 0, err
	}
	if val, ok := set[sql.IDColumn]; ok && val == nil {
		return 0, sql.Errorf(sql.ErrConstraint, "engine: table %s: %s cannot be null", pt.name,
			sql.IDColumn)
	}

	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	tree := pt.cache.snapshot()
	var cnt int
	var updates []rowUpdate
	scanTree(tree,
		func(ri rowItem) bool {
			if !conds.Match(ri.row) {
				return true
			}
			cnt += 1

			row := ri.row.Copy()
			for col, val := range set {
				row[col] = val
			}
			if !row.Equal(ri.row) {
				updates = append(updates, rowUpdate{seq: ri.seq, old: ri.row, row: row})
			}
			return true
		})
	if len(updates) == 0 {
		return cnt, nil
	}

	indexes := map[string]index{}
	for col, idx := range pt.indexes {
		val, ok := set[col]
		if !ok {
			indexes[col] = idx
			continue
		}

		work := make(index, len(idx))
		for v, seq := range idx {
			work[v] = seq
		}
		for _, u := range updates {
			if !sql.Equal(u.old[col], val) {
				delete(work, u.old[col])
			}
		}
		for _, u := range updates {
			if sql.Equal(u.old[col], val) {
				continue
			}
			if _, ok := work[val]; ok {
				return 0, pt.uniqueViolation(col, val)
			}
			work[val] = u.seq
		}
		indexes[col] = work
	}

	for _, col := range pt.fkCols {
		val, ok := set[col.Name]
		if !ok {
			continue
		}
		for _, u := range updates {
			if !sql.Equal(u.old[col.Name], val) {
				err = pt.checkForeignKey(col, val)
				if err != nil {
					return 0, err
				}
				break
			}
		}
	}

	lastID := pt.lastID
	if id, ok := set[sql.IDColumn].(sql.IntValue); ok && int32(id) > lastID {
		lastID = int32(id)
	}

	for _, u := range updates {
		tree.ReplaceOrInsert(rowItem{seq: u.seq, row: u.row})
	}
	payloads, err := pt.encodeTree(tree)
	if err != nil {
		return 0, err
	}

	for _, u := range updates {
		err = pt.logRecord(tx, wal.UpdateRecord, u.row)
		if err != nil {
			return 0, err
		}
	}
	err = pt.rewriteHeap(payloads)
	if err != nil {
		return 0, err
	}

	pt.cache.publish(tree)
	pt.indexes = indexes
	pt.lastID = lastID
	return cnt, nil
}

func (pt *PersistentTable) encodeTree(tree *btree.BTree) ([][]byte, error) {
	payloads := make([][]byte, 0, tree.Len())
	var err error
	scanTree(tree,
		func(ri rowItem) bool {
			var payload []byte
			payload, err = pt.encodeRow(ri.row)
			if err != nil {
				return false
			}
			payloads = append(payloads, payload)
			return true
		})
	if err != nil {
		return nil, err
	}
	return payloads, nil
}

func (pt *PersistentTable) rewriteHeap(payloads [][]byte) error {
	err := pt.heap.Rewrite(payloads)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"table": pt.name, "rows": len(payloads)}).Debug(
		"engine: heap rewritten")
	return nil
}

func (pt *PersistentTable) DeleteWhere(col string, val sql.Value) (int, error) {
	return pt.Delete(sql.Conditions{{Column: col, Value: val}})
}

// Delete removes every row matching conds, rewrites the heap file from the remaining rows, and
// then rebuilds the indexes from them.
func (pt *PersistentTable) Delete(conds sql.Conditions) (int, error) {
	err := pt.checkConditions(conds)
	if err != nil {
		return 0, err
	}

	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	tree := pt.cache.snapshot()
	var items []btree.Item
	scanTree(tree,
		func(ri rowItem) bool {
			if conds.Match(ri.row) {
				items = append(items, ri)
			}
			return true
		})
	if len(items) == 0 {
		return 0, nil
	}

	for _, item := range items {
		tree.Delete(item)
	}
	payloads, err := pt.encodeTree(tree)
	if err != nil {
		return 0, err
	}
	err = pt.rewriteHeap(payloads)
	if err != nil {
		return 0, err
	}

	pt.cache.publish(tree)
	pt.indexes = pt.makeIndexes()
	scanTree(tree,
		func(ri rowItem) bool {
			for col, idx := range pt.indexes {
				idx[ri.row[col]] = ri.seq
			}
			return true
		})
	return len(items), nil
}

func (pt *PersistentTable) LookupByColumn(col string, val sql.Value) ([]sql.Row, bool) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	idx, ok := pt.indexes[col]
	if !ok {
		return nil, false
	}
	seq, ok := idx[val]
	if !ok {
		return []sql.Row{}, true
	}

	item := pt.cache.snapshot().Get(rowItem{seq: seq})
	if item == nil {
		return []sql.Row{}, true
	}
	return []sql.Row{item.(rowItem).row}, true
}

func (pt *PersistentTable) loadRow(row sql.Row) (sql.Row, error) {
	for name, val := range row {
		col, ok := sql.FindColumn(pt.cols, name)
		if !ok {
			return nil, sql.Errorf(sql.ErrCorrupt, "engine: table %s: unknown column %s on disk",
				pt.name, name)
		}
		if val != nil && val.DataType() != col.Type {
			return nil, sql.Errorf(sql.ErrCorrupt,
				"engine: table %s: column %s: want %s, got %s on disk", pt.name, name, col.Type,
				val)
		}
	}
	for _, col := range pt.colNames {
		if _, ok := row[col]; !ok {
			row[col] = nil
		}
	}
	if _, ok := row[sql.IDColumn].(sql.IntValue); !ok {
		return nil, sql.Errorf(sql.ErrCorrupt, "engine: table %s: row without an %s on disk",
			pt.name, sql.IDColumn)
	}
	return row, nil
}

// LoadFromDisk reads every row from the heap file into memory. It may only be called once.
func (pt *PersistentTable) LoadFromDisk() error {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	if pt.loaded {
		return sql.Errorf(sql.ErrCorrupt, "engine: table %s loaded twice", pt.name)
	}

	tree := btree.New(16)
	indexes := pt.makeIndexes()
	var lastID int32
	err := pt.heap.ReadAll(
		func(payload []byte) error {
			row, err := encode.DecodeRow(payload)
			if err != nil {
				return sql.WrapError(sql.ErrCorrupt, err, "engine: table %s", pt.name)
			}
			row, err = pt.loadRow(row)
			if err != nil {
				return err
			}

			seq := pt.cache.nextSeq()
			for col, idx := range indexes {
				val := row[col]
				if _, ok := idx[val]; ok {
					return sql.Errorf(sql.ErrCorrupt, "engine: table %s: duplicate %s = %s",
						pt.name, col, sql.Format(val))
				}
				idx[val] = seq
			}
			if id := int32(row[sql.IDColumn].(sql.IntValue)); id > lastID {
				lastID = id
			}
			tree.ReplaceOrInsert(rowItem{seq: seq, row: row})
			return nil
		})
	if err != nil {
		return err
	}

	pt.cache.publish(tree)
	pt.indexes = indexes
	pt.lastID = lastID
	pt.loaded = true

	log.WithFields(log.Fields{"table": pt.name, "rows": tree.Len()}).Info("engine: table loaded")
	return nil
}

// Truncate discards every row in memory and on disk.
func (pt *PersistentTable) Truncate() error {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	err := pt.heap.Truncate()
	if err != nil {
		return err
	}
	pt.cache.publish(btree.New(16))
	pt.indexes = pt.makeIndexes()
	return nil
}

func (pt *PersistentTable) deleteFiles() error {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	return pt.heap.Delete()
}

func (pt *PersistentTable) close() error {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	return pt.heap.Close()
}
