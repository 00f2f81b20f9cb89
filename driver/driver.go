// Package driver registers heapsql with database/sql under the name "heapsql". The data source
// name is the data directory; every connection to the same directory shares one database.
//
//	import _ "github.com/leftmike/heapsql/driver"
//
//	db, err := sql.Open("heapsql", "testdata")
package driver

import (
	gosql "database/sql"
	"database/sql/driver"
	"io"
	"path/filepath"
	"sync"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/evaluate"
	"github.com/leftmike/heapsql/sql"
)

const DriverName = "heapsql"

func init() {
	gosql.Register(DriverName, &Driver{})
}

type openDB struct {
	db    *db.DB
	conns int
}

type Driver struct {
	mutex sync.Mutex
	dbs   map[string]*openDB

	// Options are used when a data directory is first opened.
	Options db.Options
}

var _ driver.Driver = &Driver{}

func (d *Driver) Open(name string) (driver.Conn, error) {
	dir := filepath.Clean(name)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.dbs == nil {
		d.dbs = map[string]*openDB{}
	}
	odb, ok := d.dbs[dir]
	if !ok {
		hdb, err := db.Open(dir, d.Options)
		if err != nil {
			return nil, err
		}
		odb = &openDB{db: hdb}
		d.dbs[dir] = odb
	}
	odb.conns += 1
	return &conn{driver: d, dir: dir, db: odb.db}, nil
}

func (d *Driver) release(dir string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	odb, ok := d.dbs[dir]
	if !ok {
		return nil
	}
	odb.conns -= 1
	if odb.conns > 0 {
		return nil
	}
	delete(d.dbs, dir)
	return odb.db.Close()
}

type conn struct {
	driver *Driver
	dir    string
	db     *db.DB
	closed bool
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.driver.release(c.dir)
}

// Begin fails: every statement is its own transaction.
func (c *conn) Begin() (driver.Tx, error) {
	return nil, sql.Errorf(sql.ErrParse, "driver: transactions are not supported")
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error {
	return nil
}

// NumInput is zero: statements do not take arguments.
func (s *stmt) NumInput() int {
	return 0
}

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	res, err := s.conn.db.Exec(s.query)
	if err != nil {
		return nil, err
	}
	return result{res}, nil
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	res, err := s.conn.db.Exec(s.query)
	if err != nil {
		return nil, err
	}
	return &rows{res: res}, nil
}

type result struct {
	res *evaluate.Result
}

func (_ result) LastInsertId() (int64, error) {
	return 0, sql.Errorf(sql.ErrSchema, "driver: LastInsertId is not supported")
}

func (r result) RowsAffected() (int64, error) {
	return int64(r.res.Count), nil
}

type rows struct {
	res *evaluate.Result
	idx int
}

func (r *rows) Columns() []string {
	return r.res.Columns
}

func (r *rows) Close() error {
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	if r.idx >= len(r.res.Rows) {
		return io.EOF
	}
	row := r.res.Rows[r.idx]
	r.idx += 1

	for cdx, col := range r.res.Columns {
		dest[cdx] = driverValue(row[col])
	}
	return nil
}

func driverValue(v sql.Value) driver.Value {
	switch v := v.(type) {
	case sql.IntValue:
		return int64(v)
	case sql.StringValue:
		return string(v)
	}
	return nil
}
