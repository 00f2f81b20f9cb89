package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftmike/heapsql/storage/wal"
)

var (
	walCmd = &cobra.Command{
		Use:   "wal",
		Short: "Print the records in the write ahead log",
		RunE:  walRun,
	}
)

func init() {
	fs := walCmd.Flags()
	fs.StringVar(&walStore, "wal-store", walStore,
		fmt.Sprintf("write ahead log store: one of %v", wal.Stores()))
	fs.StringVar(&dataDir, "data", dataDir, "`directory` containing tables")

	heapsqlCmd.AddCommand(walCmd)
}

func walRun(cmd *cobra.Command, args []string) error {
	wl, err := wal.Open(walStore, dataDir, false)
	if err != nil {
		return fmt.Errorf("heapsql: %s", err)
	}
	defer wl.Close()

	var cnt int
	err = wl.Records(
		func(rec wal.Record) error {
			cnt += 1
			fmt.Println(rec)
			return nil
		})
	if err != nil {
		return fmt.Errorf("heapsql: %s", err)
	}
	fmt.Printf("(%d records)\n", cnt)
	return nil
}
