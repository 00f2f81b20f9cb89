package engine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/storage/heap"
	"github.com/leftmike/heapsql/storage/wal"
)

const (
	// CatalogTable holds one row per column of every other persistent table.
	CatalogTable = "__tables__"

	heapSuffix = ".tbl"
)

var (
	catalogColumns = []sql.Column{
		{Name: "table_name", Type: sql.TextType},
		{Name: "column_name", Type: sql.TextType},
		{Name: "data_type", Type: sql.TextType},
		{Name: "primary_key", Type: sql.IntegerType},
		{Name: "unique_key", Type: sql.IntegerType},
		{Name: "ref_table", Type: sql.TextType},
		{Name: "ref_column", Type: sql.TextType},
	}
)

// Phase is a step of starting a catalog; the steps must run in order.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseBootstrapped
	PhaseCatalogLoaded
	PhaseSchemasRebuilt
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseBootstrapped:
		return "bootstrapped"
	case PhaseCatalogLoaded:
		return "catalog-loaded"
	case PhaseSchemasRebuilt:
		return "schemas-rebuilt"
	case PhaseReady:
		return "ready"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Catalog is the registry of tables by name. The schema of every persistent table, other than
// the catalog table itself, is kept in the catalog table.
type Catalog struct {
	mutex   sync.RWMutex
	dataDir string
	wal     wal.Log
	tables  map[string]Table
	phase   Phase
}

func NewCatalog(dataDir string, wl wal.Log) *Catalog {
	return &Catalog{
		dataDir: dataDir,
		wal:     wl,
		tables:  map[string]Table{},
	}
}

func (cat *Catalog) Phase() Phase {
	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	return cat.phase
}

func (cat *Catalog) advance(from, to Phase) error {
	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	if cat.phase != from {
		return sql.Errorf(sql.ErrSchema, "engine: catalog is %s; can't move to %s", cat.phase, to)
	}
	cat.phase = to
	log.WithField("phase", to).Debug("engine: catalog startup")
	return nil
}

func (cat *Catalog) requireReady() error {
	if p := cat.Phase(); p != PhaseReady {
		return sql.Errorf(sql.ErrSchema, "engine: catalog is %s, not ready", p)
	}
	return nil
}

func (cat *Catalog) LookupTable(name string) (Table, bool) {
	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	tbl, ok := cat.tables[name]
	return tbl, ok
}

// Tables returns the names of all registered tables in sorted order.
func (cat *Catalog) Tables() []string {
	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	names := make([]string, 0, len(cat.tables))
	for name := range cat.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cat *Catalog) catalogTable() (*PersistentTable, bool) {
	tbl, ok := cat.LookupTable(CatalogTable)
	if !ok {
		return nil, false
	}
	pt, ok := tbl.(*PersistentTable)
	return pt, ok
}

func (cat *Catalog) heapPath(name string) string {
	return filepath.Join(cat.dataDir, name+heapSuffix)
}

func checkTableName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return sql.Errorf(sql.ErrSchema, "engine: bad table name: %q", name)
	}
	return nil
}

// CreatePersistentTable makes and registers a table without touching the catalog table. It
// does nothing if the name is already registered.
func (cat *Catalog) CreatePersistentTable(name string, cols []sql.Column) (*PersistentTable,
	error) {

	pt, _, err := cat.registerPersistentTable(name, cols, false)
	return pt, err
}

// registerPersistentTable checks for an existing table and registers a new one as a single
// step under the catalog mutex. When fresh is set, the new table's heap file is truncated and
// the table is loaded before it is registered. created is false if name was already
// registered; the existing table, if persistent, is returned.
func (cat *Catalog) registerPersistentTable(name string, cols []sql.Column,
	fresh bool) (pt *PersistentTable, created bool, err error) {

	err = checkTableName(name)
	if err != nil {
		return nil, false, err
	}

	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	if tbl, ok := cat.tables[name]; ok {
		pt, _ = tbl.(*PersistentTable)
		return pt, false, nil
	}

	hf, err := heap.Open(cat.heapPath(name))
	if err != nil {
		return nil, false, err
	}
	pt, err = newPersistentTable(name, cols, hf, cat.wal, cat)
	if err != nil {
		hf.Close()
		return nil, false, err
	}
	if fresh {
		err = pt.Truncate()
		if err == nil {
			err = pt.LoadFromDisk()
		}
		if err != nil {
			hf.Close()
			return nil, false, err
		}
	}
	cat.tables[name] = pt
	return pt, true, nil
}

func boolValue(b bool) sql.Value {
	if b {
		return sql.IntValue(1)
	}
	return sql.IntValue(0)
}

func textValue(s string) sql.Value {
	if s == "" {
		return nil
	}
	return sql.StringValue(s)
}

// PersistSchema writes one catalog row for each of cols. Nothing is written for the catalog
// table itself.
func (cat *Catalog) PersistSchema(name string, cols []sql.Column) error {
	if name == CatalogTable {
		return nil
	}

	ct, ok := cat.catalogTable()
	if !ok {
		return sql.Errorf(sql.ErrSchema, "engine: catalog not initialized")
	}
	for _, col := range cols {
		err := ct.Insert(nil,
			sql.Row{
				"table_name":  sql.StringValue(name),
				"column_name": sql.StringValue(col.Name),
				"data_type":   sql.StringValue(col.Type.String()),
				"primary_key": boolValue(col.Primary),
				"unique_key":  boolValue(col.Unique),
				"ref_table":   textValue(col.RefTable),
				"ref_column":  textValue(col.RefColumn),
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func checkColumns(name string, cols []sql.Column) error {
	if len(cols) == 0 {
		return sql.Errorf(sql.ErrSchema, "engine: table %s: no columns", name)
	}

	seen := map[string]struct{}{}
	for _, col := range cols {
		if _, ok := seen[col.Name]; ok {
			return sql.Errorf(sql.ErrSchema, "engine: table %s: duplicate column %s", name,
				col.Name)
		}
		seen[col.Name] = struct{}{}

		if col.Type != sql.IntegerType && col.Type != sql.TextType {
			return sql.Errorf(sql.ErrSchema, "engine: table %s: column %s: bad type", name,
				col.Name)
		}
		if col.IsForeignKey() && col.RefColumn == "" {
			return sql.Errorf(sql.ErrSchema,
				"engine: table %s: column %s: foreign key needs a column", name, col.Name)
		}
	}
	return nil
}

// CreateTable makes a new persistent table and records its schema in the catalog table.
func (cat *Catalog) CreateTable(name string, cols []sql.Column) error {
	err := cat.requireReady()
	if err != nil {
		return err
	}
	err = checkColumns(name, cols)
	if err != nil {
		return err
	}
	_, err = withIDColumn(cols)
	if err != nil {
		return err
	}

	pt, created, err := cat.registerPersistentTable(name, cols, true)
	if err != nil {
		return err
	} else if !created {
		return sql.Errorf(sql.ErrSchema, "engine: table %s already exists", name)
	}

	err = cat.PersistSchema(name, cols)
	if err != nil {
		cat.unregisterTable(name, pt)
		pt.deleteFiles()
		if ct, ok := cat.catalogTable(); ok {
			ct.DeleteWhere("table_name", sql.StringValue(name))
		}
		return err
	}

	log.WithFields(log.Fields{"table": name, "columns": len(cols)}).Info(
		"engine: table created")
	return nil
}

// unregisterTable removes name only if it is still registered as tbl.
func (cat *Catalog) unregisterTable(name string, tbl Table) {
	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	if cat.tables[name] == tbl {
		delete(cat.tables, name)
	}
}

func (cat *Catalog) unregister(name string) Table {
	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	tbl := cat.tables[name]
	delete(cat.tables, name)
	return tbl
}

// RegisterTransient adds an in memory table to the catalog; it is never written to the
// catalog table.
func (cat *Catalog) RegisterTransient(tt *TransientTable) error {
	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	if _, ok := cat.tables[tt.Name()]; ok {
		return sql.Errorf(sql.ErrSchema, "engine: table %s already exists", tt.Name())
	}
	cat.tables[tt.Name()] = tt
	return nil
}

// DropTable removes a table, its heap file, and its rows in the catalog table. The write
// ahead log is shared by every table and is left alone.
func (cat *Catalog) DropTable(name string) error {
	if name == CatalogTable {
		return sql.Errorf(sql.ErrSchema, "engine: can't drop the catalog table %s", name)
	}
	err := cat.requireReady()
	if err != nil {
		return err
	}

	tbl := cat.unregister(name)
	if tbl == nil {
		return sql.Errorf(sql.ErrSchema, "engine: table %s not found", name)
	}
	pt, ok := tbl.(*PersistentTable)
	if !ok {
		return nil
	}

	err = pt.deleteFiles()
	if err != nil {
		return err
	}
	ct, ok := cat.catalogTable()
	if ok {
		_, err = ct.DeleteWhere("table_name", sql.StringValue(name))
		if err != nil {
			return err
		}
	}

	log.WithField("table", name).Info("engine: table dropped")
	return nil
}

// Bootstrap creates the catalog table if it does not already exist.
func (cat *Catalog) Bootstrap() error {
	err := cat.advance(PhaseNew, PhaseBootstrapped)
	if err != nil {
		return err
	}
	_, err = cat.CreatePersistentTable(CatalogTable, catalogColumns)
	return err
}

// LoadCatalog loads the rows of the catalog table, and only the catalog table.
func (cat *Catalog) LoadCatalog() error {
	err := cat.advance(PhaseBootstrapped, PhaseCatalogLoaded)
	if err != nil {
		return err
	}
	ct, ok := cat.catalogTable()
	if !ok {
		return sql.Errorf(sql.ErrSchema, "engine: catalog not initialized")
	}
	return ct.LoadFromDisk()
}

func stringColumn(row sql.Row, col string) string {
	if s, ok := row[col].(sql.StringValue); ok {
		return string(s)
	}
	return ""
}

func columnFromRow(row sql.Row) (string, sql.Column, error) {
	tn := stringColumn(row, "table_name")
	cn := stringColumn(row, "column_name")
	dt, ok := sql.ParseDataType(stringColumn(row, "data_type"))
	if tn == "" || cn == "" || !ok {
		return "", sql.Column{}, sql.Errorf(sql.ErrCorrupt, "engine: bad catalog row: %s", row)
	}

	return tn, sql.Column{
		Name:      cn,
		Type:      dt,
		Primary:   sql.Equal(row["primary_key"], sql.IntValue(1)),
		Unique:    sql.Equal(row["unique_key"], sql.IntValue(1)),
		RefTable:  stringColumn(row, "ref_table"),
		RefColumn: stringColumn(row, "ref_column"),
	}, nil
}

// RebuildSchemas registers an empty table for each table in the catalog table; no table rows
// are loaded.
func (cat *Catalog) RebuildSchemas() error {
	err := cat.advance(PhaseCatalogLoaded, PhaseSchemasRebuilt)
	if err != nil {
		return err
	}
	ct, ok := cat.catalogTable()
	if !ok {
		return sql.Errorf(sql.ErrSchema, "engine: catalog not initialized")
	}

	var names []string
	schemas := map[string][]sql.Column{}
	for _, row := range ct.Rows() {
		tn, col, err := columnFromRow(row)
		if err != nil {
			return err
		}
		if _, ok := schemas[tn]; !ok {
			names = append(names, tn)
		}
		schemas[tn] = append(schemas[tn], col)
	}

	for _, tn := range names {
		_, err = cat.CreatePersistentTable(tn, schemas[tn])
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadTables loads the rows of every table other than the catalog table.
func (cat *Catalog) LoadTables() error {
	err := cat.advance(PhaseSchemasRebuilt, PhaseReady)
	if err != nil {
		return err
	}

	for _, name := range cat.Tables() {
		if name == CatalogTable {
			continue
		}
		tbl, ok := cat.LookupTable(name)
		if !ok {
			continue
		}
		if pt, ok := tbl.(*PersistentTable); ok {
			err = pt.LoadFromDisk()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Startup runs every phase of starting the catalog, in order.
func (cat *Catalog) Startup() error {
	for _, step := range []func() error{
		cat.Bootstrap, cat.LoadCatalog, cat.RebuildSchemas, cat.LoadTables,
	} {
		err := step()
		if err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{"dir": cat.dataDir, "tables": len(cat.Tables())}).Info(
		"engine: catalog ready")
	return nil
}

// Close closes the heap file of every persistent table.
func (cat *Catalog) Close() error {
	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	var err error
	for _, tbl := range cat.tables {
		if pt, ok := tbl.(*PersistentTable); ok {
			cerr := pt.close()
			if err == nil {
				err = cerr
			}
		}
	}
	cat.tables = map[string]Table{}
	return err
}
