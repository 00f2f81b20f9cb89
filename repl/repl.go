package repl

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/evaluate"
	"github.com/leftmike/heapsql/parser"
	"github.com/leftmike/heapsql/sql"
)

// ReplSQL executes each statement from p and writes its result, or its error, to w. An error
// does not stop the statements which follow it.
func ReplSQL(d *db.DB, p *parser.Parser, w io.Writer) {
	for {
		stmt, err := p.Parse()
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(w, err)
			continue
		}

		res, err := d.ExecStmt(stmt)
		if err != nil {
			fmt.Fprintln(w, err)
			continue
		}
		WriteResult(w, res)
	}
}

func WriteResult(w io.Writer, res *evaluate.Result) {
	switch res.Kind {
	case evaluate.RowsResult:
		tw := tablewriter.NewWriter(w)
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAlignment(tablewriter.ALIGN_LEFT)
		tw.SetHeader(res.Columns)

		row := make([]string, len(res.Columns))
		for _, r := range res.Rows {
			for cdx, col := range res.Columns {
				if s, ok := r[col].(sql.StringValue); ok {
					row[cdx] = string(s)
				} else {
					row[cdx] = sql.Format(r[col])
				}
			}
			tw.Append(row)
		}
		tw.Render()
		fmt.Fprintf(w, "(%d rows)\n", tw.NumLines())
	case evaluate.CountResult:
		fmt.Fprintf(w, "%d rows updated\n", res.Count)
	case evaluate.StatusResult:
		fmt.Fprintln(w, res.Status)
	}
}

// Handler runs the statements read from rr, naming them fn in errors.
func Handler(d *db.DB, rr io.RuneReader, fn string, w io.Writer) {
	ReplSQL(d, parser.NewParser(rr, fn), w)
}
