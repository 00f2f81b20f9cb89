package cmd

import (
	"github.com/spf13/cobra"

	"github.com/leftmike/heapsql/repl"
)

var (
	replCmd = &cobra.Command{
		Use:   "repl [file ...]",
		Short: "Run the statements in files and then an interactive console session",
		RunE:  replRun,
	}
)

func init() {
	initDBFlags(replCmd.Flags())

	heapsqlCmd.AddCommand(replCmd)
}

func replRun(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	err = runSQL(d, args)
	if err != nil {
		return err
	}
	if len(args) == 0 && len(sqlArgs) == 0 {
		repl.Interact(d)
	}
	return nil
}
