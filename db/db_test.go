package db_test

import (
	"errors"
	"os"
	"testing"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/evaluate"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/storage/wal"
	"github.com/leftmike/heapsql/testutil"
)

func TestMain(m *testing.M) {
	testutil.SetupLogger("db_test.log")
	os.Exit(m.Run())
}

func mustExec(t *testing.T, d *db.DB, s string) *evaluate.Result {
	t.Helper()

	res, err := d.Exec(s)
	if err != nil {
		t.Fatalf("Exec(%q) failed with %s", s, err)
	}
	return res
}

func TestRecovery(t *testing.T) {
	for _, store := range wal.Stores() {
		dir := testutil.DataDir(t, "recovery-"+store)

		d, err := db.Open(dir, db.Options{WALStore: store})
		if err != nil {
			t.Fatalf("Open(%s) failed with %s", dir, err)
		}
		mustExec(t, d, "create table users (id int primary key, name text unique)")
		mustExec(t, d,
			"create table orders (user_id int references users(id), item text)")
		mustExec(t, d, "insert into users (id, name) values (10, 'alice')")
		mustExec(t, d, "insert into users (name) values ('bob')")
		mustExec(t, d, "insert into orders (user_id, item) values (11, 'pen')")
		mustExec(t, d, "update users set name = 'robert' where id = 11")

		var cnt int
		err = d.WAL().Records(
			func(rec wal.Record) error {
				cnt += 1
				return nil
			})
		if err != nil {
			t.Errorf("Records(%s) failed with %s", store, err)
		} else if cnt != 4 {
			t.Errorf("Records(%s) got %d records want 4", store, cnt)
		}

		err = d.Close()
		if err != nil {
			t.Fatalf("Close(%s) failed with %s", dir, err)
		}
		if _, err := d.Exec("select * from users"); !errors.Is(err, sql.ErrIO) {
			t.Errorf("Exec() after Close got %v want io failure", err)
		}

		d, err = db.Open(dir, db.Options{WALStore: store})
		if err != nil {
			t.Fatalf("Open(%s) failed with %s", dir, err)
		}

		res := mustExec(t, d, "select * from users")
		want := []sql.Row{
			{"id": sql.IntValue(10), "name": sql.StringValue("alice")},
			{"id": sql.IntValue(11), "name": sql.StringValue("robert")},
		}
		if !testutil.SameRows(res.Rows, want) {
			t.Errorf("Exec(select) after reopen got %v want %v", res.Rows, want)
		}

		res = mustExec(t, d, "select * from orders")
		want = []sql.Row{
			{"id": sql.IntValue(1), "user_id": sql.IntValue(11), "item": sql.StringValue("pen")},
		}
		if !testutil.SameRows(res.Rows, want) {
			t.Errorf("Exec(select) after reopen got %v want %v", res.Rows, want)
		}

		_, err = d.Exec("insert into users (id, name) values (12, 'alice')")
		if !errors.Is(err, sql.ErrConstraint) {
			t.Errorf("Exec(insert) after reopen got %v want constraint violation", err)
		}
		_, err = d.Exec("insert into orders (user_id, item) values (99, 'ink')")
		if !errors.Is(err, sql.ErrConstraint) {
			t.Errorf("Exec(insert) after reopen got %v want constraint violation", err)
		}

		mustExec(t, d, "insert into users (name) values ('carol')")
		res = mustExec(t, d, "select * from users where name = 'carol'")
		if len(res.Rows) != 1 || res.Rows[0]["id"] != sql.IntValue(12) {
			t.Errorf("Exec(select) got %v want id 12", res.Rows)
		}

		err = d.Close()
		if err != nil {
			t.Fatalf("Close(%s) failed with %s", dir, err)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	dir := testutil.DataDir(t, "open-errors")

	_, err := db.Open(dir, db.Options{WALStore: "nosuch"})
	if err == nil {
		t.Errorf("Open(%s) with a bad store did not fail", dir)
	}
}

func TestTransient(t *testing.T) {
	dir := testutil.DataDir(t, "transient")

	d, err := db.Open(dir, db.Options{})
	if err != nil {
		t.Fatalf("Open(%s) failed with %s", dir, err)
	}
	defer d.Close()

	err = d.RegisterTransient("__config__",
		[]sql.Column{{Name: "name", Type: sql.TextType}},
		[]sql.Row{{"name": sql.StringValue("data")}})
	if err != nil {
		t.Fatalf("RegisterTransient() failed with %s", err)
	}

	res := mustExec(t, d, "select * from __config__")
	if len(res.Rows) != 1 {
		t.Errorf("Exec(select) got %v want one row", res.Rows)
	}

	err = d.RegisterTransient("__config__", nil, nil)
	if !errors.Is(err, sql.ErrSchema) {
		t.Errorf("RegisterTransient() twice got %v want schema error", err)
	}
}
