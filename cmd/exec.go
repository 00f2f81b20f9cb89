package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/repl"
)

var (
	execCmd = &cobra.Command{
		Use:   "exec [file ...]",
		Short: "Run the statements given with --sql and in files",
		RunE:  execRun,
	}
)

func init() {
	initDBFlags(execCmd.Flags())

	heapsqlCmd.AddCommand(execCmd)
}

// runSQL runs the statements given with --sql, and then those in each file.
func runSQL(d *db.DB, files []string) error {
	for idx, arg := range sqlArgs {
		repl.Handler(d, strings.NewReader(arg), "sql-arg["+strconv.Itoa(idx)+"]", os.Stdout)
	}

	for _, fn := range files {
		f, err := os.Open(fn)
		if err != nil {
			return fmt.Errorf("heapsql: sql file: %s", err)
		}
		repl.Handler(d, bufio.NewReader(f), fn, os.Stdout)
		f.Close()
	}
	return nil
}

func execRun(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	return runSQL(d, args)
}
