package flags

import (
	"sort"
	"strings"
)

type Flag int

const (
	// IndexJoin lets a join look up matching rows with an index on the right table's join
	// column instead of building a hash table.
	IndexJoin Flag = iota

	// WALSync makes every write ahead log append wait for the data to reach the disk.
	WALSync
)

type flagDefault struct {
	flag Flag
	def  bool
}

var (
	defaultFlags = map[string]flagDefault{
		"index_join": {IndexJoin, true},
		"wal_sync":   {WALSync, true},
	}
)

func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

// ListFlags calls fn for every flag, in order by name.
func ListFlags(fn func(nam string, f Flag)) {
	names := make([]string, 0, len(defaultFlags))
	for nam := range defaultFlags {
		names = append(names, nam)
	}
	sort.Strings(names)

	for _, nam := range names {
		fn(nam, defaultFlags[nam].flag)
	}
}

type Flags []bool

func (flgs Flags) GetFlag(f Flag) bool {
	return flgs[f]
}

func Default() Flags {
	flgs := make([]bool, len(defaultFlags))
	for _, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
	}
	return flgs
}

// Copy returns flags which can be changed without changing flgs.
func (flgs Flags) Copy() Flags {
	return append(Flags(nil), flgs...)
}
