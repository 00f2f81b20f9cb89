package sql

import (
	"strings"
)

type DataType int

const (
	IntegerType DataType = iota + 1
	TextType
)

func (dt DataType) String() string {
	switch dt {
	case IntegerType:
		return "INT"
	case TextType:
		return "TEXT"
	}

	return ""
}

// ParseDataType accepts the names used in CREATE TABLE and stored in the catalog.
func ParseDataType(s string) (DataType, bool) {
	switch strings.ToUpper(s) {
	case "INT", "INTEGER":
		return IntegerType, true
	case "TEXT":
		return TextType, true
	}
	return 0, false
}
