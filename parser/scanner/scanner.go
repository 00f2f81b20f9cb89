package scanner

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"github.com/leftmike/heapsql/parser/token"
)

type Position struct {
	Filename string
	Line     int
	Column   int
}

type ScanCtx struct {
	Token      rune
	Error      error
	Identifier string // Identifier and Reserved
	Keyword    string // Reserved, always upper case
	String     string
	Integer    int64
	Position
}

type Scanner struct {
	initialized bool
	rr          io.RuneReader
	unread      bool
	read        rune
	filename    string
	line        int
	column      int
	buffer      bytes.Buffer
}

func (pos Position) String() string {
	s := pos.Filename
	if pos.Line > 0 {
		s += fmt.Sprintf(":%d:%d", pos.Line, pos.Column)
	}
	return s
}

func (s *Scanner) Init(rr io.RuneReader, fn string) {
	if s.initialized {
		panic("scanner already initialized")
	}
	s.initialized = true

	s.rr = rr
	s.filename = fn
	s.line = 1
}

func (s *Scanner) Scan(sctx *ScanCtx) rune {
	s.buffer.Reset()
	sctx.Error = nil
	sctx.Filename = s.filename
	sctx.Line = s.line
	sctx.Column = s.column
	sctx.Token = s.scan(sctx)
	return sctx.Token
}

func (s *Scanner) scan(sctx *ScanCtx) rune {
SkipWhitespace:
	r := s.readRune(sctx)

	for {
		if r < 0 {
			return r
		}
		if !unicode.IsSpace(r) {
			break
		}

		r = s.readRune(sctx)
	}

	if r == ';' {
		return token.EndOfStatement
	}

	if r == '-' {
		if r2 := s.readRune(sctx); r2 == '-' {
			for {
				r2 = s.readRune(sctx)
				if r2 < 0 {
					return r2
				}

				if r2 == '\n' {
					break
				}
			}

			goto SkipWhitespace
		} else if r2 < 0 {
			if r2 == token.Error {
				return r2
			}
		} else {
			s.unreadRune()
		}
	} else if r == '/' {
		if r2 := s.readRune(sctx); r2 == '*' {
			var p rune

			for {
				r2 = s.readRune(sctx)
				if r2 == token.EOF {
					sctx.Error = fmt.Errorf("scanner: comment missing terminating */")
					return token.Error
				} else if r2 < 0 {
					return r2
				}

				if p == '*' && r2 == '/' {
					break
				}
				p = r2
			}

			goto SkipWhitespace
		} else if r2 == token.Error {
			return r2
		} else if r2 >= 0 {
			s.unreadRune()
		}
	}

	sctx.Column = s.column
	sctx.Line = s.line

	if unicode.IsLetter(r) || r == '_' {
		return s.scanIdentifier(sctx, r)
	} else if unicode.IsDigit(r) {
		return s.scanInteger(sctx, r, 1)
	} else if r == '+' || r == '-' {
		sign := int64(1)
		if r == '-' {
			sign = -1
		}
		r2 := s.readRune(sctx)
		if r2 >= 0 && unicode.IsDigit(r2) {
			return s.scanInteger(sctx, r2, sign)
		}
		sctx.Error = fmt.Errorf("scanner: unexpected character '%c'", r)
		return token.Error
	} else if r == '"' {
		return s.scanQuotedIdentifier(sctx, r)
	} else if r == '\'' {
		return s.scanString(sctx)
	} else if r == token.Dot || r == token.Comma || r == token.LParen || r == token.RParen ||
		r == token.Star || r == token.Equal {
		return r
	}

	sctx.Error = fmt.Errorf("scanner: unexpected character '%c'", r)
	return token.Error
}

func (s *Scanner) readRune(sctx *ScanCtx) rune {
	if s.unread {
		s.unread = false
		return s.read
	}

	var err error
	s.read, _, err = s.rr.ReadRune()
	if err == io.EOF {
		s.read = token.EOF
		return token.EOF
	} else if err != nil {
		sctx.Error = err
		s.read = token.Error
		return token.Error
	}

	if s.read == '\n' {
		s.line += 1
		s.column = 0
	} else {
		s.column += 1
	}

	return s.read
}

func (s *Scanner) unreadRune() {
	s.unread = true
}

func (s *Scanner) scanIdentifier(sctx *ScanCtx, r rune) rune {
	for {
		s.buffer.WriteRune(r)
		r = s.readRune(sctx)
		if r == token.EOF {
			break
		} else if r == token.Error {
			return token.Error
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			s.unreadRune()
			break
		}
	}

	sctx.Identifier = s.buffer.String()
	if kw, ok := token.IsKeyword(sctx.Identifier); ok {
		sctx.Keyword = kw
		return token.Reserved
	}
	return token.Identifier
}

func (s *Scanner) scanInteger(sctx *ScanCtx, r rune, sign int64) rune {
	for {
		s.buffer.WriteRune(r)
		r = s.readRune(sctx)
		if r == token.EOF {
			break
		} else if r == token.Error {
			return token.Error
		}
		if r == '.' || unicode.IsLetter(r) || r == '_' {
			sctx.Error = fmt.Errorf("scanner: bad integer: %s%c", s.buffer.String(), r)
			return token.Error
		} else if !unicode.IsDigit(r) {
			s.unreadRune()
			break
		}
	}

	n, err := strconv.ParseInt(s.buffer.String(), 10, 64)
	if err != nil {
		sctx.Error = fmt.Errorf("scanner: bad integer: %s", s.buffer.String())
		return token.Error
	}
	sctx.Integer = n * sign
	return token.Integer
}

func (s *Scanner) scanQuotedIdentifier(sctx *ScanCtx, delim rune) rune {
	for {
		r := s.readRune(sctx)
		if r == token.EOF {
			sctx.Error = fmt.Errorf("scanner: quoted identifier missing terminating '%c'", delim)
			return token.Error
		}
		if r == token.Error {
			return token.Error
		}
		if r == delim {
			break
		}
		s.buffer.WriteRune(r)
	}

	if s.buffer.Len() == 0 {
		sctx.Error = fmt.Errorf("scanner: empty quoted identifier")
		return token.Error
	}
	sctx.Identifier = s.buffer.String()
	return token.Identifier
}

// scanString scans a single quoted string; two single quotes in a row stand for one.
func (s *Scanner) scanString(sctx *ScanCtx) rune {
	for {
		r := s.readRune(sctx)
		if r == token.EOF {
			sctx.Error = fmt.Errorf("scanner: string missing terminating \"'\"")
			return token.Error
		}
		if r == token.Error {
			return token.Error
		}
		if r == '\'' {
			r = s.readRune(sctx)
			if r == token.Error {
				return token.Error
			} else if r != '\'' {
				if r != token.EOF {
					s.unreadRune()
				}
				break
			}
		}
		s.buffer.WriteRune(r)
	}

	sctx.String = s.buffer.String()
	return token.String
}
