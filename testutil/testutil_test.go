package testutil_test

import (
	"reflect"
	"testing"

	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/testutil"
)

func TestSortRows(t *testing.T) {
	rows := []sql.Row{
		{"a": sql.IntValue(2), "b": sql.StringValue("x")},
		{"a": nil, "b": sql.StringValue("z")},
		{"a": sql.IntValue(1), "b": sql.StringValue("y")},
		{"a": sql.IntValue(2), "b": sql.StringValue("w")},
	}
	testutil.SortRows(rows, "a", "b")

	want := []sql.Row{
		{"a": nil, "b": sql.StringValue("z")},
		{"a": sql.IntValue(1), "b": sql.StringValue("y")},
		{"a": sql.IntValue(2), "b": sql.StringValue("w")},
		{"a": sql.IntValue(2), "b": sql.StringValue("x")},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("SortRows() got %v want %v", rows, want)
	}

	shuffled := []sql.Row{want[3], want[1], want[0], want[2]}
	if !testutil.SameRows(shuffled, want) {
		t.Errorf("SameRows(%v, %v) got false want true", shuffled, want)
	}
	if testutil.SameRows(shuffled[:3], want[:3]) {
		t.Errorf("SameRows(%v, %v) got true want false", shuffled[:3], want[:3])
	}
}
