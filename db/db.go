package db

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/engine"
	"github.com/leftmike/heapsql/evaluate"
	"github.com/leftmike/heapsql/flags"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/stmt"
	"github.com/leftmike/heapsql/storage/wal"
)

type Options struct {
	// WALStore is one of wal.Stores(); wal.DefaultStore if empty.
	WALStore string

	// Flags defaults to flags.Default().
	Flags flags.Flags
}

// DB is an open data directory: its write ahead log, its catalog of tables, and an executor
// for statements.
type DB struct {
	mutex    sync.Mutex
	dir      string
	wal      wal.Log
	catalog  *engine.Catalog
	executor *evaluate.Executor
	closed   bool
}

// Open starts the catalog in dir: the catalog table is created or loaded, the schemas of the
// other tables rebuilt from it, and then their rows loaded.
func Open(dir string, opts Options) (*DB, error) {
	store := opts.WALStore
	if store == "" {
		store = wal.DefaultStore
	}
	flgs := opts.Flags
	if flgs == nil {
		flgs = flags.Default()
	}

	wl, err := wal.Open(store, dir, flgs.GetFlag(flags.WALSync))
	if err != nil {
		return nil, err
	}
	cat := engine.NewCatalog(dir, wl)
	err = cat.Startup()
	if err != nil {
		cat.Close()
		wl.Close()
		return nil, err
	}

	log.WithFields(log.Fields{"dir": dir, "wal": store}).Info("db: opened")
	return &DB{
		dir:      dir,
		wal:      wl,
		catalog:  cat,
		executor: evaluate.NewExecutor(cat, flgs),
	}, nil
}

func (db *DB) Dir() string {
	return db.dir
}

func (db *DB) Catalog() *engine.Catalog {
	return db.catalog
}

func (db *DB) WAL() wal.Log {
	return db.wal
}

func (db *DB) Exec(s string) (*evaluate.Result, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return db.executor.Execute(s)
}

func (db *DB) ExecStmt(st stmt.Stmt) (*evaluate.Result, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return db.executor.ExecuteStmt(st)
}

// RegisterTransient makes a read only in memory table available to queries.
func (db *DB) RegisterTransient(nam string, cols []sql.Column, rows []sql.Row) error {
	return db.catalog.RegisterTransient(engine.NewTransientTable(nam, cols, rows))
}

func (db *DB) checkOpen() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.closed {
		return sql.Errorf(sql.ErrIO, "db: %s is closed", db.dir)
	}
	return nil
}

func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	err := db.catalog.Close()
	werr := db.wal.Close()
	if err == nil {
		err = werr
	}
	log.WithField("dir", db.dir).Info("db: closed")
	return err
}
