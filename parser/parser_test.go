package parser_test

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/leftmike/heapsql/parser"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/stmt"
)

func TestParse(t *testing.T) {
	failed := []string{
		"",
		";",
		"-- nothing here",
		"create foobar",
		"create index t",
		"create table",
		"select",
		"truncate t",
		"42",
		"'select'",
		"select * from t; select * from u",
		"select * from t select * from u",
		"drop table t u",
		"drop t",
		"drop table select",
	}

	for _, f := range failed {
		s, err := parser.Parse(f)
		if s != nil {
			t.Errorf("Parse(%q) got %s want error", f, s)
		} else if err == nil {
			t.Errorf("Parse(%q) did not fail", f)
		} else if !errors.Is(err, sql.ErrParse) {
			t.Errorf("Parse(%q) failed with %s; want parse error", f, err)
		}
	}

	cases := []struct {
		sql  string
		stmt stmt.Stmt
	}{
		{"drop table t", &stmt.DropTable{Table: "t"}},
		{"DROP TABLE t;", &stmt.DropTable{Table: "t"}},
		{"drop table \"select\"", &stmt.DropTable{Table: "select"}},
		{"  /* leading */ drop table Tbl -- trailing", &stmt.DropTable{Table: "Tbl"}},
	}

	for _, c := range cases {
		s, err := parser.Parse(c.sql)
		if err != nil {
			t.Errorf("Parse(%q) failed with %s", c.sql, err)
		} else if !reflect.DeepEqual(s, c.stmt) {
			t.Errorf("Parse(%q) got %s want %s", c.sql, s, c.stmt)
		}
	}
}

func testParse(t *testing.T, sql string, want stmt.Stmt, fail bool) {
	t.Helper()

	s, err := parser.Parse(sql)
	if fail {
		if err == nil {
			t.Errorf("Parse(%q) did not fail", sql)
		}
	} else if err != nil {
		t.Errorf("Parse(%q) failed with %s", sql, err)
	} else if !reflect.DeepEqual(s, want) {
		t.Errorf("Parse(%q) got %s want %s", sql, s, want)
	}
}

func TestCreateTable(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.CreateTable
		fail bool
	}{
		{sql: "create table t ()", fail: true},
		{sql: "create table t (c)", fail: true},
		{sql: "create table (c int)", fail: true},
		{sql: "create table t (c int, c text)", fail: true},
		{sql: "create table t (c int, )", fail: true},
		{sql: "create table t (c int", fail: true},
		{sql: "create table t (c bool)", fail: true},
		{sql: "create table t (c int(10))", fail: true},
		{sql: "create table t (c int primary)", fail: true},
		{sql: "create table t (c int primary key primary key)", fail: true},
		{sql: "create table t (c int unique unique)", fail: true},
		{sql: "create table t (c int references u)", fail: true},
		{sql: "create table t (c int references u(a) references v(b))", fail: true},
		{sql: "create table t (c int references u(a.b))", fail: true},
		{sql: "create table t (c int) extra", fail: true},
		{sql: "create table t (select int)", fail: true},
		{
			sql: "create table t (c int)",
			stmt: stmt.CreateTable{
				Table:   "t",
				Columns: []sql.Column{{Name: "c", Type: sql.IntegerType}},
			},
		},
		{
			sql: "CREATE TABLE Users (Name TEXT, age Integer, \"select\" int);",
			stmt: stmt.CreateTable{
				Table: "Users",
				Columns: []sql.Column{
					{Name: "Name", Type: sql.TextType},
					{Name: "age", Type: sql.IntegerType},
					{Name: "select", Type: sql.IntegerType},
				},
			},
		},
		{
			sql: "create table orders (id int primary key, user_id int references users(id), " +
				"item text unique references items(name) primary key)",
			stmt: stmt.CreateTable{
				Table: "orders",
				Columns: []sql.Column{
					{Name: "id", Type: sql.IntegerType, Primary: true},
					{
						Name:      "user_id",
						Type:      sql.IntegerType,
						RefTable:  "users",
						RefColumn: "id",
					},
					{
						Name:      "item",
						Type:      sql.TextType,
						Primary:   true,
						Unique:    true,
						RefTable:  "items",
						RefColumn: "name",
					},
				},
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, &c.stmt, c.fail)
	}
}

func TestInsert(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.Insert
		fail bool
	}{
		{sql: "insert t (c) values (1)", fail: true},
		{sql: "insert into t values (1)", fail: true},
		{sql: "insert into t () values ()", fail: true},
		{sql: "insert into t (c) values ()", fail: true},
		{sql: "insert into t (c, d) values (1)", fail: true},
		{sql: "insert into t (c) values (1, 2)", fail: true},
		{sql: "insert into t (c, c) values (1, 2)", fail: true},
		{sql: "insert into t (c) values (abc)", fail: true},
		{sql: "insert into t (c) values (1.5)", fail: true},
		{sql: "insert into t (c) values (2147483648)", fail: true},
		{sql: "insert into t (c) values (-2147483649)", fail: true},
		{sql: "insert into t (c) values (null)", fail: true},
		{sql: "insert into t (c) values ('abc)", fail: true},
		{sql: "insert into t (c) values (1) (2)", fail: true},
		{
			sql: "insert into t (c) values (1)",
			stmt: stmt.Insert{
				Table:   "t",
				Columns: []string{"c"},
				Values:  []sql.Value{sql.IntValue(1)},
			},
		},
		{
			sql: "INSERT INTO users (name, age, note) VALUES ('O''Neil', -2147483648, '');",
			stmt: stmt.Insert{
				Table:   "users",
				Columns: []string{"name", "age", "note"},
				Values: []sql.Value{
					sql.StringValue("O'Neil"),
					sql.IntValue(-2147483648),
					sql.StringValue(""),
				},
			},
		},
		{
			sql: "insert into t (a, b) values (+2147483647, '1')",
			stmt: stmt.Insert{
				Table:   "t",
				Columns: []string{"a", "b"},
				Values:  []sql.Value{sql.IntValue(2147483647), sql.StringValue("1")},
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, &c.stmt, c.fail)
	}
}

func TestSelect(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.Stmt
		fail bool
	}{
		{sql: "select c from t", fail: true},
		{sql: "select * t", fail: true},
		{sql: "select * from", fail: true},
		{sql: "select * from t where", fail: true},
		{sql: "select * from t where c", fail: true},
		{sql: "select * from t where c = ", fail: true},
		{sql: "select * from t where c = 1 and", fail: true},
		{sql: "select * from t where c = 1 or d = 2", fail: true},
		{sql: "select * from t where c > 1", fail: true},
		{sql: "select * from t where 1 = c", fail: true},
		{
			sql:  "select * from t",
			stmt: &stmt.Select{Table: "t"},
		},
		{
			sql: "SELECT * FROM t WHERE c = 'x' AND t.d = 2;",
			stmt: &stmt.Select{
				Table: "t",
				Where: []stmt.Condition{
					{Column: stmt.ColumnRef{Column: "c"}, Value: sql.StringValue("x")},
					{Column: stmt.ColumnRef{Table: "t", Column: "d"}, Value: sql.IntValue(2)},
				},
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, c.stmt, c.fail)
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.Join
		fail bool
	}{
		{sql: "select * from a join b", fail: true},
		{sql: "select * from a join b on", fail: true},
		{sql: "select * from a join b on x = y", fail: true},
		{sql: "select * from a join b on a.x = y", fail: true},
		{sql: "select * from a join b on a.x = a.y", fail: true},
		{sql: "select * from a join b on a.x = c.y", fail: true},
		{sql: "select * from a join b on a.x = 1", fail: true},
		{sql: "select * from a outer join b on a.x = b.y", fail: true},
		{sql: "select * from a left b on a.x = b.y", fail: true},
		{sql: "select * from a inner inner join b on a.x = b.y", fail: true},
		{
			sql: "select * from a join b on a.x = b.y",
			stmt: stmt.Join{
				Type:        stmt.InnerJoin,
				Left:        "a",
				Right:       "b",
				LeftColumn:  "x",
				RightColumn: "y",
			},
		},
		{
			sql: "select * from a inner join b on b.y = a.x",
			stmt: stmt.Join{
				Type:        stmt.InnerJoin,
				Left:        "a",
				Right:       "b",
				LeftColumn:  "x",
				RightColumn: "y",
			},
		},
		{
			sql: "SELECT * FROM users LEFT JOIN orders ON users.id = orders.user_id " +
				"WHERE orders.item = 'pen' AND name = 'bob'",
			stmt: stmt.Join{
				Type:        stmt.LeftJoin,
				Left:        "users",
				Right:       "orders",
				LeftColumn:  "id",
				RightColumn: "user_id",
				Where: []stmt.Condition{
					{
						Column: stmt.ColumnRef{Table: "orders", Column: "item"},
						Value:  sql.StringValue("pen"),
					},
					{
						Column: stmt.ColumnRef{Column: "name"},
						Value:  sql.StringValue("bob"),
					},
				},
			},
		},
		{
			sql: "select * from a right join b on a.x = b.x",
			stmt: stmt.Join{
				Type:        stmt.RightJoin,
				Left:        "a",
				Right:       "b",
				LeftColumn:  "x",
				RightColumn: "x",
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, &c.stmt, c.fail)
	}
}

func TestUnreservedNames(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.Stmt
		fail bool
	}{
		{sql: "select * from where", fail: true},
		{sql: "create table t (select int)", fail: true},
		{sql: "select * from left left right on left.x = right.y", fail: true},
		{
			sql: "create table set (key int primary key, on text)",
			stmt: &stmt.CreateTable{
				Table: "set",
				Columns: []sql.Column{
					{Name: "key", Type: sql.IntegerType, Primary: true},
					{Name: "on", Type: sql.TextType},
				},
			},
		},
		{
			sql: "insert into key (left, right) values (1, 'r')",
			stmt: &stmt.Insert{
				Table:   "key",
				Columns: []string{"left", "right"},
				Values:  []sql.Value{sql.IntValue(1), sql.StringValue("r")},
			},
		},
		{
			sql: "update set set key = 2 where inner = 'x'",
			stmt: &stmt.Update{
				Table: "set",
				Set:   []stmt.ColumnUpdate{{Column: "key", Value: sql.IntValue(2)}},
				Where: []stmt.Condition{
					{Column: stmt.ColumnRef{Column: "inner"}, Value: sql.StringValue("x")},
				},
			},
		},
		{
			sql: "select * from left left join right on right.on = left.key",
			stmt: &stmt.Join{
				Type:        stmt.LeftJoin,
				Left:        "left",
				Right:       "right",
				LeftColumn:  "key",
				RightColumn: "on",
			},
		},
		{
			sql: "delete from inner where set.key = 1",
			stmt: &stmt.Delete{
				Table: "inner",
				Where: []stmt.Condition{
					{Column: stmt.ColumnRef{Table: "set", Column: "key"}, Value: sql.IntValue(1)},
				},
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, c.stmt, c.fail)
	}
}

func TestUpdate(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.Update
		fail bool
	}{
		{sql: "update t", fail: true},
		{sql: "update t set", fail: true},
		{sql: "update t set c", fail: true},
		{sql: "update t set c = ", fail: true},
		{sql: "update t set c = 1,", fail: true},
		{sql: "update t set c = 1, c = 2", fail: true},
		{sql: "update t set t.c = 1", fail: true},
		{sql: "update t set c = 1 where", fail: true},
		{
			sql: "update t set c = 1",
			stmt: stmt.Update{
				Table: "t",
				Set:   []stmt.ColumnUpdate{{Column: "c", Value: sql.IntValue(1)}},
			},
		},
		{
			sql: "UPDATE t SET c = 1, d = 'two' WHERE id = 3;",
			stmt: stmt.Update{
				Table: "t",
				Set: []stmt.ColumnUpdate{
					{Column: "c", Value: sql.IntValue(1)},
					{Column: "d", Value: sql.StringValue("two")},
				},
				Where: []stmt.Condition{
					{Column: stmt.ColumnRef{Column: "id"}, Value: sql.IntValue(3)},
				},
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, &c.stmt, c.fail)
	}
}

func TestDelete(t *testing.T) {
	cases := []struct {
		sql  string
		stmt stmt.Delete
		fail bool
	}{
		{sql: "delete t", fail: true},
		{sql: "delete from", fail: true},
		{sql: "delete from t where", fail: true},
		{sql: "delete from t where c = 1 and", fail: true},
		{
			sql:  "delete from t",
			stmt: stmt.Delete{Table: "t"},
		},
		{
			sql: "delete from t where t.c = 'x'",
			stmt: stmt.Delete{
				Table: "t",
				Where: []stmt.Condition{
					{Column: stmt.ColumnRef{Table: "t", Column: "c"}, Value: sql.StringValue("x")},
				},
			},
		},
	}

	for _, c := range cases {
		testParse(t, c.sql, &c.stmt, c.fail)
	}
}

func TestParser(t *testing.T) {
	p := parser.NewParser(strings.NewReader(`
create table t (c int);
insert into t (c) values (1)
;
select * from t where oops;
;;
delete from t;
select * from t`), "stream")

	want := []string{
		"CREATE TABLE t (c INT)",
		"INSERT INTO t (c) VALUES (1)",
		"",
		"DELETE FROM t",
		"SELECT * FROM t",
	}

	for i, w := range want {
		s, err := p.Parse()
		if w == "" {
			if err == nil {
				t.Errorf("Parse()[%d] got %s want error", i, s)
			} else if !errors.Is(err, sql.ErrParse) {
				t.Errorf("Parse()[%d] failed with %s; want parse error", i, err)
			} else if !strings.Contains(err.Error(), "stream:5:") {
				t.Errorf("Parse()[%d] got %s want position stream:5", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse()[%d] failed with %s", i, err)
		} else if fmt.Sprint(s) != w {
			t.Errorf("Parse()[%d] got %s want %s", i, s, w)
		}
	}

	s, err := p.Parse()
	if err != io.EOF {
		t.Errorf("Parse() got %v, %v want io.EOF", s, err)
	}
}
