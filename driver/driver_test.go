package driver_test

import (
	gosql "database/sql"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/leftmike/heapsql/driver"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/testutil"
)

func TestMain(m *testing.M) {
	testutil.SetupLogger("driver_test.log")
	os.Exit(m.Run())
}

type user struct {
	ID   int64           `db:"id"`
	Name string          `db:"name"`
	Age  gosql.NullInt64 `db:"age"`
}

func mustExec(t *testing.T, db *sqlx.DB, s string) {
	t.Helper()

	_, err := db.Exec(s)
	if err != nil {
		t.Fatalf("Exec(%q) failed with %s", s, err)
	}
}

func TestDriver(t *testing.T) {
	dir := testutil.DataDir(t, "driver")

	db, err := sqlx.Open(driver.DriverName, dir)
	if err != nil {
		t.Fatalf("Open(%s) failed with %s", dir, err)
	}

	mustExec(t, db, "create table users (id int primary key, name text unique, age int)")
	mustExec(t, db, "insert into users (id, name, age) values (1, 'alice', 30)")
	mustExec(t, db, "insert into users (id, name) values (2, 'bob')")

	res, err := db.Exec("update users set age = 31 where name = 'alice'")
	if err != nil {
		t.Fatalf("Exec(update) failed with %s", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		t.Errorf("RowsAffected() got %d, %v want 1", n, err)
	}

	var users []user
	err = db.Select(&users, "select * from users")
	if err != nil {
		t.Fatalf("Select() failed with %s", err)
	}
	want := []user{
		{ID: 1, Name: "alice", Age: gosql.NullInt64{Int64: 31, Valid: true}},
		{ID: 2, Name: "bob"},
	}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("Select() got %v want %v", users, want)
	}

	var u user
	err = db.Get(&u, "select * from users where id = 2")
	if err != nil {
		t.Fatalf("Get() failed with %s", err)
	}
	if !reflect.DeepEqual(u, want[1]) {
		t.Errorf("Get() got %v want %v", u, want[1])
	}

	_, err = db.Exec("insert into users (id, name) values (3, 'bob')")
	if !errors.Is(err, sql.ErrConstraint) {
		t.Errorf("Exec(insert) got %v want constraint violation", err)
	}
	_, err = db.Exec("select * from users where id = ?", 1)
	if err == nil {
		t.Errorf("Exec() with an argument did not fail")
	}
	_, err = db.Begin()
	if err == nil {
		t.Errorf("Begin() did not fail")
	}

	err = db.Close()
	if err != nil {
		t.Fatalf("Close() failed with %s", err)
	}

	db, err = sqlx.Open(driver.DriverName, dir)
	if err != nil {
		t.Fatalf("Open(%s) failed with %s", dir, err)
	}
	defer db.Close()

	users = nil
	err = db.Select(&users, "select * from users")
	if err != nil {
		t.Fatalf("Select() after reopen failed with %s", err)
	}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("Select() after reopen got %v want %v", users, want)
	}
}

func TestSharedDB(t *testing.T) {
	dir := testutil.DataDir(t, "shared")

	db1, err := sqlx.Open(driver.DriverName, dir)
	if err != nil {
		t.Fatalf("Open(%s) failed with %s", dir, err)
	}
	defer db1.Close()
	db2, err := sqlx.Open(driver.DriverName, dir)
	if err != nil {
		t.Fatalf("Open(%s) failed with %s", dir, err)
	}
	defer db2.Close()

	mustExec(t, db1, "create table t (c text)")
	mustExec(t, db2, "insert into t (c) values ('x')")

	var cs []string
	err = db1.Select(&cs, "select * from t where c = 'x'")
	if err == nil {
		t.Errorf("Select() into strings of two columns did not fail")
	}

	var n int
	err = db1.Get(&n, "select * from __tables__ where column_name = 'c'")
	if err == nil {
		t.Errorf("Get() into an int of many columns did not fail")
	}

	rows, err := db1.Queryx("select * from t")
	if err != nil {
		t.Fatalf("Queryx() failed with %s", err)
	}
	var got []map[string]interface{}
	for rows.Next() {
		m := map[string]interface{}{}
		err = rows.MapScan(m)
		if err != nil {
			t.Fatalf("MapScan() failed with %s", err)
		}
		got = append(got, m)
	}
	rows.Close()

	want := []map[string]interface{}{{"id": int64(1), "c": "x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Queryx() got %v want %v", got, want)
	}
}
