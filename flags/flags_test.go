package flags_test

import (
	"reflect"
	"testing"

	"github.com/leftmike/heapsql/flags"
)

func TestFlags(t *testing.T) {
	cases := []struct {
		nam string
		f   flags.Flag
		ok  bool
	}{
		{"index_join", flags.IndexJoin, true},
		{"INDEX_JOIN", flags.IndexJoin, true},
		{"wal_sync", flags.WALSync, true},
		{"pushdown_where", 0, false},
	}

	for _, c := range cases {
		f, ok := flags.LookupFlag(c.nam)
		if ok != c.ok {
			t.Errorf("LookupFlag(%q) got %v want %v", c.nam, ok, c.ok)
		} else if ok && f != c.f {
			t.Errorf("LookupFlag(%q) got %d want %d", c.nam, f, c.f)
		}
	}

	var names []string
	flags.ListFlags(
		func(nam string, f flags.Flag) {
			names = append(names, nam)
		})
	if want := []string{"index_join", "wal_sync"}; !reflect.DeepEqual(names, want) {
		t.Errorf("ListFlags() got %v want %v", names, want)
	}

	flgs := flags.Default()
	if !flgs.GetFlag(flags.IndexJoin) || !flgs.GetFlag(flags.WALSync) {
		t.Errorf("Default() got %v want all true", flgs)
	}

	cpy := flgs.Copy()
	cpy[flags.IndexJoin] = false
	if !flgs.GetFlag(flags.IndexJoin) {
		t.Errorf("Copy() shares storage with the original")
	}
}
