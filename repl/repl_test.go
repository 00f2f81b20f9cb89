package repl_test

import (
	"bufio"
	"bytes"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/evaluate"
	"github.com/leftmike/heapsql/repl"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/testutil"
)

var (
	update = flag.Bool("update", false, "update expected output")
)

func TestMain(m *testing.M) {
	flag.Parse()
	testutil.SetupLogger("repl_test.log")
	os.Exit(m.Run())
}

func TestScripts(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("testdata", "*.sql"))
	if err != nil {
		t.Fatal(err)
	}

	for _, script := range scripts {
		dir := testutil.DataDir(t, filepath.Join("output",
			strings.TrimSuffix(filepath.Base(script), ".sql")))
		d, err := db.Open(dir, db.Options{})
		if err != nil {
			t.Fatalf("Open(%s) failed with %s", dir, err)
		}

		f, err := os.Open(script)
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		repl.Handler(d, bufio.NewReader(f), filepath.Base(script), &out)
		f.Close()
		d.Close()

		expected := strings.TrimSuffix(script, ".sql") + ".out"
		if *update {
			err = ioutil.WriteFile(expected, out.Bytes(), 0644)
			if err != nil {
				t.Fatal(err)
			}
			continue
		}

		b, err := ioutil.ReadFile(expected)
		if err != nil {
			t.Fatal(err)
		}
		if out.String() != string(b) {
			t.Errorf("Script(%s) got:\n%s", script, diff.LineDiff(string(b), out.String()))
		}
	}
}

func TestWriteResult(t *testing.T) {
	cases := []struct {
		res *evaluate.Result
		out string
	}{
		{
			res: &evaluate.Result{Kind: evaluate.StatusResult, Status: "OK"},
			out: "OK\n",
		},
		{
			res: &evaluate.Result{Kind: evaluate.CountResult, Count: 3},
			out: "3 rows updated\n",
		},
		{
			res: &evaluate.Result{
				Kind:    evaluate.RowsResult,
				Columns: []string{"c", "value"},
				Rows: []sql.Row{
					{"c": sql.IntValue(12), "value": nil},
					{"c": nil, "value": sql.StringValue("a b")},
				},
			},
			out: `+------+-------+
| c    | value |
+------+-------+
| 12   | NULL  |
| NULL | a b   |
+------+-------+
(2 rows)
`,
		},
		{
			res: &evaluate.Result{
				Kind:    evaluate.RowsResult,
				Columns: []string{"id"},
			},
			out: `+----+
| id |
+----+
+----+
(0 rows)
`,
		},
	}

	for _, c := range cases {
		var out bytes.Buffer
		repl.WriteResult(&out, c.res)
		if out.String() != c.out {
			t.Errorf("WriteResult() got:\n%s", diff.LineDiff(c.out, out.String()))
		}
	}
}
