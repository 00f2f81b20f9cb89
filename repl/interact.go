package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/parser"
)

const (
	historyFile = ".heapsql_history"
)

type lineReader struct {
	line *liner.State
	r    *strings.Reader
}

func (lr *lineReader) ReadRune() (r rune, size int, err error) {
	for {
		if lr.r == nil {
			s, err := lr.line.Prompt("heapsql: ")
			if err != nil {
				if err != io.EOF {
					fmt.Fprintf(os.Stderr, "heapsql: %s\n", err)
				}
				return 0, 0, io.EOF
			}
			lr.line.AppendHistory(s)
			lr.r = strings.NewReader(s + "\n")
		}

		r, sz, err := lr.r.ReadRune()
		if err == io.EOF {
			lr.r = nil
		} else if err != nil {
			return 0, 0, err
		} else {
			return r, sz, nil
		}
	}
}

// Interact runs an interactive console until the end of input.
func Interact(d *db.DB) {
	line := liner.NewLiner()
	defer line.Close()

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	ReplSQL(d, parser.NewParser(&lineReader{line: line}, "console"), os.Stdout)

	if f, err := os.Create(historyFile); err != nil {
		fmt.Fprintf(os.Stderr, "heapsql: error writing history file, %s: %s\n", historyFile, err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
}
