package parser

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"

	"github.com/leftmike/heapsql/parser/scanner"
	"github.com/leftmike/heapsql/parser/token"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/stmt"
)

type Parser struct {
	scanner   scanner.Scanner
	sctx      scanner.ScanCtx
	unscanned bool
	scanned   rune
}

// NewParser returns a parser for a stream of statements separated by semicolons.
func NewParser(rr io.RuneReader, fn string) *Parser {
	var p Parser
	p.scanner.Init(rr, fn)
	return &p
}

// Parse parses exactly one statement, optionally followed by a semicolon.
func Parse(s string) (stmt.Stmt, error) {
	p := NewParser(strings.NewReader(s), "sql")
	st, err := p.Parse()
	if err == io.EOF {
		return nil, sql.Errorf(sql.ErrParse, "parser: sql: empty statement")
	} else if err != nil {
		return nil, err
	}

	if r := p.scanner.Scan(&p.sctx); r != token.EOF {
		return nil, sql.Errorf(sql.ErrParse, "parser: %s: expected one statement got %s",
			p.sctx.Position, p.describe(r))
	}
	return st, nil
}

// Parse returns the next statement or io.EOF when there are no more. After an error,
// the rest of the failed statement is skipped.
func (p *Parser) Parse() (stmt stmt.Stmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
			stmt = nil
			p.skipStatement()
		}
	}()

	for p.scan() == token.EndOfStatement {
	}
	if p.scanned == token.EOF {
		return nil, io.EOF
	}
	p.unscan()

	stmt = p.parseStmt()
	if r := p.scan(); r != token.EndOfStatement && r != token.EOF {
		p.error(fmt.Sprintf("expected the end of the statement got %s", p.got()))
	}
	return
}

func (p *Parser) skipStatement() {
	p.unscanned = false
	for p.scanned != token.EndOfStatement && p.scanned != token.EOF {
		p.scanned = p.scanner.Scan(&p.sctx)
	}
}

func (p *Parser) error(msg string) {
	panic(sql.Errorf(sql.ErrParse, "parser: %s: %s", p.sctx.Position, msg))
}

func (p *Parser) scan() rune {
	if p.unscanned {
		p.unscanned = false
		return p.scanned
	}

	p.scanned = p.scanner.Scan(&p.sctx)
	if p.scanned == token.Error {
		p.error(p.sctx.Error.Error())
	}
	return p.scanned
}

func (p *Parser) unscan() {
	p.unscanned = true
}

func (p *Parser) got() string {
	return p.describe(p.scanned)
}

func (p *Parser) describe(r rune) string {
	switch r {
	case token.Identifier:
		return fmt.Sprintf("identifier %s", p.sctx.Identifier)
	case token.Reserved:
		return fmt.Sprintf("keyword %s", p.sctx.Keyword)
	case token.String:
		return fmt.Sprintf("string %q", p.sctx.String)
	case token.Integer:
		return fmt.Sprintf("integer %d", p.sctx.Integer)
	}
	return token.Format(r)
}

func (p *Parser) expectReserved(kws ...string) string {
	if p.scan() == token.Reserved {
		for _, kw := range kws {
			if kw == p.sctx.Keyword {
				return kw
			}
		}
	}

	var msg string
	if len(kws) == 1 {
		msg = kws[0]
	} else {
		for i, kw := range kws {
			if i == len(kws)-1 {
				msg += ", or "
			} else if i > 0 {
				msg += ", "
			}
			msg += kw
		}
	}

	p.error(fmt.Sprintf("expected keyword %s got %s", msg, p.got()))
	return ""
}

// optionalReserved returns the matching keyword or "" leaving the token unconsumed.
func (p *Parser) optionalReserved(kws ...string) string {
	if p.scan() == token.Reserved {
		for _, kw := range kws {
			if kw == p.sctx.Keyword {
				return kw
			}
		}
	}

	p.unscan()
	return ""
}

func (p *Parser) expectIdentifier(msg string) string {
	t := p.scan()
	if t == token.Reserved && token.IsUnreserved(p.sctx.Keyword) {
		return p.sctx.Identifier
	} else if t != token.Identifier {
		p.error(fmt.Sprintf("%s got %s", msg, p.got()))
	}
	return p.sctx.Identifier
}

func (p *Parser) expectTokens(tokens ...rune) rune {
	t := p.scan()
	for _, r := range tokens {
		if t == r {
			return r
		}
	}

	var msg string
	if len(tokens) == 1 {
		msg = token.Format(tokens[0])
	} else {
		for i, r := range tokens {
			if i == len(tokens)-1 {
				msg += " or "
			} else if i > 0 {
				msg += ", "
			}
			msg += token.Format(r)
		}
	}

	p.error(fmt.Sprintf("expected %s got %s", msg, p.got()))
	return 0
}

func (p *Parser) maybeToken(mr rune) bool {
	if p.scan() == mr {
		return true
	}
	p.unscan()
	return false
}

func (p *Parser) parseStmt() stmt.Stmt {
	switch p.expectReserved("CREATE", "DELETE", "DROP", "INSERT", "SELECT", "UPDATE") {
	case "CREATE":
		// CREATE TABLE ...
		p.expectReserved("TABLE")
		return p.parseCreateTable()
	case "DELETE":
		// DELETE FROM ...
		p.expectReserved("FROM")
		return p.parseDelete()
	case "DROP":
		// DROP TABLE ...
		p.expectReserved("TABLE")
		return &stmt.DropTable{Table: p.expectIdentifier("expected a table")}
	case "INSERT":
		// INSERT INTO ...
		p.expectReserved("INTO")
		return p.parseInsert()
	case "SELECT":
		return p.parseSelect()
	case "UPDATE":
		return p.parseUpdate()
	}

	return nil
}

/*
CREATE TABLE table
    ( column data_type [column_modifier ...] [, ...] )
column_modifier =
      PRIMARY KEY
    | UNIQUE
    | REFERENCES table ( column )
*/
func (p *Parser) parseCreateTable() stmt.Stmt {
	var s stmt.CreateTable
	s.Table = p.expectIdentifier("expected a table")

	p.expectTokens(token.LParen)
	for {
		col := p.parseColumn()
		if _, ok := sql.FindColumn(s.Columns, col.Name); ok {
			p.error(fmt.Sprintf("duplicate column name: %s", col.Name))
		}
		s.Columns = append(s.Columns, col)

		if p.expectTokens(token.Comma, token.RParen) == token.RParen {
			break
		}
	}

	return &s
}

func (p *Parser) parseColumn() sql.Column {
	var col sql.Column
	col.Name = p.expectIdentifier("expected a column name")

	if p.scan() != token.Identifier {
		p.error(fmt.Sprintf("expected a data type got %s", p.got()))
	}
	dt, ok := sql.ParseDataType(p.sctx.Identifier)
	if !ok {
		p.error(fmt.Sprintf("expected a data type got %s", p.sctx.Identifier))
	}
	col.Type = dt

	var refs bool
	for {
		switch p.optionalReserved("PRIMARY", "UNIQUE", "REFERENCES") {
		case "PRIMARY":
			p.expectReserved("KEY")
			if col.Primary {
				p.error(fmt.Sprintf("PRIMARY KEY specified more than once for %s", col.Name))
			}
			col.Primary = true
		case "UNIQUE":
			if col.Unique {
				p.error(fmt.Sprintf("UNIQUE specified more than once for %s", col.Name))
			}
			col.Unique = true
		case "REFERENCES":
			if refs {
				p.error(fmt.Sprintf("REFERENCES specified more than once for %s", col.Name))
			}
			refs = true
			col.RefTable = p.expectIdentifier("expected a table")
			p.expectTokens(token.LParen)
			col.RefColumn = p.expectIdentifier("expected a column")
			p.expectTokens(token.RParen)
		default:
			return col
		}
	}
}

// INSERT INTO table ( column [, ...] ) VALUES ( value [, ...] )
func (p *Parser) parseInsert() stmt.Stmt {
	var s stmt.Insert
	s.Table = p.expectIdentifier("expected a table")

	p.expectTokens(token.LParen)
	for {
		nam := p.expectIdentifier("expected a column")
		for _, c := range s.Columns {
			if c == nam {
				p.error(fmt.Sprintf("duplicate column name: %s", nam))
			}
		}
		s.Columns = append(s.Columns, nam)

		if p.expectTokens(token.Comma, token.RParen) == token.RParen {
			break
		}
	}

	p.expectReserved("VALUES")
	p.expectTokens(token.LParen)
	for {
		s.Values = append(s.Values, p.parseValue())
		if p.expectTokens(token.Comma, token.RParen) == token.RParen {
			break
		}
	}

	if len(s.Columns) != len(s.Values) {
		p.error(fmt.Sprintf("%d columns but %d values", len(s.Columns), len(s.Values)))
	}
	return &s
}

func (p *Parser) parseValue() sql.Value {
	switch p.scan() {
	case token.String:
		return sql.StringValue(p.sctx.String)
	case token.Integer:
		if p.sctx.Integer < math.MinInt32 || p.sctx.Integer > math.MaxInt32 {
			p.error(fmt.Sprintf("integer out of range: %d", p.sctx.Integer))
		}
		return sql.IntValue(p.sctx.Integer)
	}

	p.error(fmt.Sprintf("expected a string or an integer got %s", p.got()))
	return nil
}

func (p *Parser) parseColumnRef() stmt.ColumnRef {
	nam := p.expectIdentifier("expected a column")
	if p.maybeToken(token.Dot) {
		return stmt.ColumnRef{
			Table:  nam,
			Column: p.expectIdentifier("expected a column"),
		}
	}
	return stmt.ColumnRef{Column: nam}
}

// [WHERE column = value [AND ...]]
func (p *Parser) parseWhere() []stmt.Condition {
	if p.optionalReserved("WHERE") == "" {
		return nil
	}

	var where []stmt.Condition
	for {
		cr := p.parseColumnRef()
		p.expectTokens(token.Equal)
		where = append(where, stmt.Condition{Column: cr, Value: p.parseValue()})

		if p.optionalReserved("AND") == "" {
			break
		}
	}
	return where
}

/*
SELECT * FROM table [WHERE ...]
SELECT * FROM left [INNER | LEFT | RIGHT] JOIN right ON left.column = right.column [WHERE ...]
*/
func (p *Parser) parseSelect() stmt.Stmt {
	p.expectTokens(token.Star)
	p.expectReserved("FROM")
	tbl := p.expectIdentifier("expected a table")

	var jt stmt.JoinType
	kw := p.optionalReserved("INNER", "LEFT", "RIGHT", "JOIN")
	switch kw {
	case "":
		return &stmt.Select{
			Table: tbl,
			Where: p.parseWhere(),
		}
	case "JOIN", "INNER":
		jt = stmt.InnerJoin
	case "LEFT":
		jt = stmt.LeftJoin
	case "RIGHT":
		jt = stmt.RightJoin
	}
	if kw != "JOIN" {
		p.expectReserved("JOIN")
	}

	return p.parseJoin(jt, tbl)
}

func (p *Parser) parseJoin(jt stmt.JoinType, left string) stmt.Stmt {
	s := stmt.Join{
		Type: jt,
		Left: left,
	}
	s.Right = p.expectIdentifier("expected a table")

	p.expectReserved("ON")
	cr1 := p.parseColumnRef()
	p.expectTokens(token.Equal)
	cr2 := p.parseColumnRef()
	if cr1.Table == s.Left && cr2.Table == s.Right {
		s.LeftColumn = cr1.Column
		s.RightColumn = cr2.Column
	} else if cr1.Table == s.Right && cr2.Table == s.Left {
		s.LeftColumn = cr2.Column
		s.RightColumn = cr1.Column
	} else {
		p.error(fmt.Sprintf("ON must compare a column of %s with a column of %s", s.Left,
			s.Right))
	}

	s.Where = p.parseWhere()
	return &s
}

// UPDATE table SET column = value [, ...] [WHERE ...]
func (p *Parser) parseUpdate() stmt.Stmt {
	var s stmt.Update
	s.Table = p.expectIdentifier("expected a table")

	p.expectReserved("SET")
	for {
		nam := p.expectIdentifier("expected a column")
		for _, cu := range s.Set {
			if cu.Column == nam {
				p.error(fmt.Sprintf("%s set more than once", nam))
			}
		}
		p.expectTokens(token.Equal)
		s.Set = append(s.Set, stmt.ColumnUpdate{Column: nam, Value: p.parseValue()})

		if !p.maybeToken(token.Comma) {
			break
		}
	}

	s.Where = p.parseWhere()
	return &s
}

// DELETE FROM table [WHERE ...]
func (p *Parser) parseDelete() stmt.Stmt {
	var s stmt.Delete
	s.Table = p.expectIdentifier("expected a table")
	s.Where = p.parseWhere()
	return &s
}
