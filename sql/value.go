package sql

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	NullString = "NULL"
)

// Value is one of nil (NULL), IntValue, or StringValue.
type Value interface {
	fmt.Stringer
	DataType() DataType
}

type IntValue int32

func (i IntValue) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (_ IntValue) DataType() DataType {
	return IntegerType
}

type StringValue string

func (s StringValue) String() string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(string(s), "'", "''"))
}

func (_ StringValue) DataType() DataType {
	return TextType
}

// Equal reports whether two values are the same; NULL is only equal to NULL.
func Equal(v1, v2 Value) bool {
	return v1 == v2
}

// Compare orders values: NULL < integers < strings.
func Compare(v1, v2 Value) int {
	if v1 == nil {
		if v2 == nil {
			return 0
		}
		return -1
	}
	if v2 == nil {
		return 1
	}

	switch v1 := v1.(type) {
	case IntValue:
		switch v2 := v2.(type) {
		case IntValue:
			if v1 < v2 {
				return -1
			} else if v1 > v2 {
				return 1
			}
			return 0
		case StringValue:
			return -1
		}
	case StringValue:
		switch v2 := v2.(type) {
		case IntValue:
			return 1
		case StringValue:
			return strings.Compare(string(v1), string(v2))
		}
	}
	panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", v1, v1))
}

func Format(v Value) string {
	if v == nil {
		return NullString
	}

	return v.String()
}
