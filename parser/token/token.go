package token

import (
	"fmt"
	"strings"
)

const (
	EOF = -(iota + 1)
	EndOfStatement
	Error
	Identifier
	Reserved
	String
	Integer
)

const (
	Comma  = ','
	Dot    = '.'
	LParen = '('
	RParen = ')'
	Star   = '*'
	Equal  = '='
)

var names = map[rune]string{
	EOF:            "end of input",
	EndOfStatement: "end of statement",
	Error:          "error",
	Identifier:     "identifier",
	Reserved:       "keyword",
	String:         "string",
	Integer:        "integer",
}

// Keywords are reserved: they can only be used as names when quoted, except for the
// Unreserved keywords.
var Keywords = map[string]struct{}{}

// Unreserved keywords may be used as names without quotes; they never start a clause in a
// place where a name is expected.
var Unreserved = map[string]struct{}{
	"INNER": {},
	"KEY":   {},
	"LEFT":  {},
	"ON":    {},
	"RIGHT": {},
	"SET":   {},
}

func init() {
	for _, kw := range []string{
		"AND", "CREATE", "DELETE", "DROP", "FROM", "INNER", "INSERT", "INTO", "JOIN", "KEY",
		"LEFT", "ON", "PRIMARY", "REFERENCES", "RIGHT", "SELECT", "SET", "TABLE", "UNIQUE",
		"UPDATE", "VALUES", "WHERE",
	} {
		Keywords[kw] = struct{}{}
	}
}

// IsKeyword returns the upper case keyword and true if s is a keyword in any case.
func IsKeyword(s string) (string, bool) {
	kw := strings.ToUpper(s)
	_, ok := Keywords[kw]
	return kw, ok
}

func IsUnreserved(kw string) bool {
	_, ok := Unreserved[kw]
	return ok
}

func Format(r rune) string {
	if r > 0 {
		return fmt.Sprintf("%c", r)
	}
	if s, ok := names[r]; ok {
		return s
	}
	return fmt.Sprintf("token %d", r)
}
