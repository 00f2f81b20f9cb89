package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftmike/heapsql/sql"
)

func init() {
	heapsqlCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of heapsql",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(sql.Version())
			},
		})
}
