package stmt

import (
	"fmt"
	"strings"

	"github.com/leftmike/heapsql/sql"
)

type Stmt interface {
	fmt.Stringer
	stmt()
}

// ColumnRef is a column optionally qualified by a table.
type ColumnRef struct {
	Table  string
	Column string
}

func (cr ColumnRef) String() string {
	if cr.Table == "" {
		return cr.Column
	}
	return cr.Table + "." + cr.Column
}

type Condition struct {
	Column ColumnRef
	Value  sql.Value
}

func (c Condition) String() string {
	return fmt.Sprintf("%s = %s", c.Column, sql.Format(c.Value))
}

func whereString(where []Condition) string {
	if len(where) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" WHERE ")
	for i, c := range where {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}
	return b.String()
}

type CreateTable struct {
	Table   string
	Columns []sql.Column
}

func (_ *CreateTable) stmt() {}

func (stmt *CreateTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", stmt.Table)
	for i, col := range stmt.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col.String())
	}
	b.WriteRune(')')
	return b.String()
}

type DropTable struct {
	Table string
}

func (_ *DropTable) stmt() {}

func (stmt *DropTable) String() string {
	return "DROP TABLE " + stmt.Table
}

type Insert struct {
	Table   string
	Columns []string
	Values  []sql.Value
}

func (_ *Insert) stmt() {}

func (stmt *Insert) String() string {
	vals := make([]string, 0, len(stmt.Values))
	for _, v := range stmt.Values {
		vals = append(vals, sql.Format(v))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", stmt.Table,
		strings.Join(stmt.Columns, ", "), strings.Join(vals, ", "))
}

type Select struct {
	Table string
	Where []Condition
}

func (_ *Select) stmt() {}

func (stmt *Select) String() string {
	return "SELECT * FROM " + stmt.Table + whereString(stmt.Where)
}

type JoinType int

const (
	InnerJoin JoinType = iota + 1
	LeftJoin
	RightJoin
)

func (jt JoinType) String() string {
	switch jt {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	}
	return ""
}

// Join is SELECT * FROM Left JOIN Right ON LeftColumn = RightColumn; the columns of
// the ON clause are always on the side of the table they belong to.
type Join struct {
	Type        JoinType
	Left        string
	Right       string
	LeftColumn  string
	RightColumn string
	Where       []Condition
}

func (_ *Join) stmt() {}

func (stmt *Join) String() string {
	return fmt.Sprintf("SELECT * FROM %s %s JOIN %s ON %s.%s = %s.%s%s", stmt.Left, stmt.Type,
		stmt.Right, stmt.Left, stmt.LeftColumn, stmt.Right, stmt.RightColumn,
		whereString(stmt.Where))
}

type ColumnUpdate struct {
	Column string
	Value  sql.Value
}

type Update struct {
	Table string
	Set   []ColumnUpdate
	Where []Condition
}

func (_ *Update) stmt() {}

func (stmt *Update) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", stmt.Table)
	for i, cu := range stmt.Set {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s", cu.Column, sql.Format(cu.Value))
	}
	b.WriteString(whereString(stmt.Where))
	return b.String()
}

type Delete struct {
	Table string
	Where []Condition
}

func (_ *Delete) stmt() {}

func (stmt *Delete) String() string {
	return "DELETE FROM " + stmt.Table + whereString(stmt.Where)
}
