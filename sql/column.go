package sql

import (
	"fmt"
)

// IDColumn is the surrogate id every persistent table carries.
const IDColumn = "id"

type Column struct {
	Name    string
	Type    DataType
	Primary bool
	Unique  bool

	// RefTable and RefColumn are set for foreign keys.
	RefTable  string
	RefColumn string
}

func (c Column) IsForeignKey() bool {
	return c.RefTable != ""
}

// IsIndexed is true for columns that carry a uniqueness constraint.
func (c Column) IsIndexed() bool {
	return c.Primary || c.Unique
}

func (c Column) String() string {
	s := fmt.Sprintf("%s %s", c.Name, c.Type)
	if c.Primary {
		s += " PRIMARY KEY"
	}
	if c.Unique {
		s += " UNIQUE"
	}
	if c.IsForeignKey() {
		s += fmt.Sprintf(" REFERENCES %s(%s)", c.RefTable, c.RefColumn)
	}
	return s
}

// ConvertValue checks that v can be stored in the column.
func (c Column) ConvertValue(v Value) (Value, error) {
	if v == nil {
		return nil, nil
	}
	if v.DataType() != c.Type {
		return nil, Errorf(ErrSchema, "column %s: want %s got %s", c.Name, c.Type, v)
	}
	return v, nil
}

func ColumnNames(cols []Column) []string {
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	return names
}

func FindColumn(cols []Column, name string) (Column, bool) {
	for _, col := range cols {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}
