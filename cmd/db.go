package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"

	"github.com/leftmike/heapsql/db"
	"github.com/leftmike/heapsql/flags"
	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/storage/wal"
)

const (
	configTable = "__config__"
)

var (
	walStore = wal.DefaultStore
	dataDir  = "testdata"

	sqlArgs = []string{}
)

func initDBFlags(fs *pflag.FlagSet) {
	fs.StringVar(&walStore, "wal-store", walStore,
		fmt.Sprintf("write ahead log store: one of %v", wal.Stores()))
	cfgVars["wal-store"] = fs.Lookup("wal-store")

	fs.StringVar(&dataDir, "data", dataDir, "`directory` containing tables")
	cfgVars["data"] = fs.Lookup("data")

	fs.StringSliceVar(&sqlArgs, "sql", sqlArgs, "sql `statement` to execute; multiple allowed")
}

func configValue(obj interface{}) string {
	if _, ok := obj.([]interface{}); ok {
		return "..."
	} else if _, ok := obj.([]map[string]interface{}); ok {
		return "..."
	} else if _, ok := obj.(map[string]interface{}); ok {
		return "..."
	}
	return fmt.Sprintf("%v", obj)
}

// configRows returns one row for each config variable and engine flag: its name, where its
// value came from, and the value.
func configRows() []sql.Row {
	var rows []sql.Row
	addRow := func(name, by, val string) {
		rows = append(rows, sql.Row{
			"name":  sql.StringValue(name),
			"by":    sql.StringValue(by),
			"value": sql.StringValue(val),
		})
	}

	names := make([]string, 0, len(cfgVars))
	for name := range cfgVars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		flg := cfgVars[name]

		var used bool
		if flg != nil {
			_, used = usedFlags[flg.Name]
		}

		if used {
			addRow(name, "flag", flg.Value.String())
		} else if obj, ok := cfg[name]; ok {
			addRow(name, "config", configValue(obj))
		} else if flg != nil {
			addRow(name, "default", flg.DefValue)
		}
	}

	flags.ListFlags(
		func(name string, f flags.Flag) {
			by := "default"
			if _, ok := cfg[name]; ok {
				by = "config"
			}
			addRow(name, by, fmt.Sprintf("%v", flgs.GetFlag(f)))
		})

	return rows
}

func openDB() (*db.DB, error) {
	d, err := db.Open(dataDir, db.Options{WALStore: walStore, Flags: flgs})
	if err != nil {
		return nil, fmt.Errorf("heapsql: %s", err)
	}

	err = d.RegisterTransient(configTable,
		[]sql.Column{
			{Name: "name", Type: sql.TextType},
			{Name: "by", Type: sql.TextType},
			{Name: "value", Type: sql.TextType},
		},
		configRows())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("heapsql: %s", err)
	}
	return d, nil
}
