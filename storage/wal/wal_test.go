package wal_test

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/storage/wal"
	"github.com/leftmike/heapsql/testutil"
)

func TestMain(m *testing.M) {
	testutil.SetupLogger("wal_test.log")
	os.Exit(m.Run())
}

func TestRecordCodec(t *testing.T) {
	recs := []wal.Record{
		{
			Type:  wal.InsertRecord,
			TxID:  1,
			Table: "users",
			Row: sql.Row{"id": sql.IntValue(1), "name": sql.StringValue("Alice"),
				"email": nil},
		},
		{
			Type:  wal.UpdateRecord,
			TxID:  1 << 40,
			Table: "orders",
			Row:   sql.Row{},
		},
	}

	for _, rec := range recs {
		buf, err := wal.EncodeRecord(rec)
		if err != nil {
			t.Errorf("EncodeRecord(%s) failed with %s", rec, err)
			continue
		}
		ret, err := wal.DecodeRecord(buf)
		if err != nil {
			t.Errorf("DecodeRecord(%v) failed with %s", buf, err)
		} else if ret.Type != rec.Type || ret.TxID != rec.TxID || ret.Table != rec.Table ||
			len(ret.Row) != len(rec.Row) || !ret.Row.Equal(rec.Row) {

			t.Errorf("DecodeRecord(EncodeRecord(%s)) got %s", rec, ret)
		}

		_, err = wal.DecodeRecord(buf[:len(buf)-1])
		if !errors.Is(err, sql.ErrCorrupt) {
			t.Errorf("DecodeRecord(%v) got %v want corrupt data", buf[:len(buf)-1], err)
		}
	}

	_, err := wal.DecodeRecord([]byte{9, 1, 0, 4, 0, 0, 0, 0})
	if !errors.Is(err, sql.ErrCorrupt) {
		t.Errorf("DecodeRecord(bad type) got %v want corrupt data", err)
	}
}

func makeRecord(n int) wal.Record {
	typ := wal.InsertRecord
	if n%3 == 2 {
		typ = wal.UpdateRecord
	}
	return wal.Record{
		Type:  typ,
		TxID:  uint64(n),
		Table: "t",
		Row:   sql.Row{"id": sql.IntValue(n), "n": sql.StringValue("row")},
	}
}

func appendRecords(t *testing.T, l wal.Log, from, to int) {
	t.Helper()

	for n := from; n < to; n++ {
		err := l.Append(makeRecord(n))
		if err != nil {
			t.Fatalf("Append(%d) failed with %s", n, err)
		}
	}
}

func checkRecords(t *testing.T, store string, l wal.Log, cnt int) {
	t.Helper()

	n := 0
	err := l.Records(
		func(rec wal.Record) error {
			want := makeRecord(n)
			if rec.Type != want.Type || rec.TxID != want.TxID || !rec.Row.Equal(want.Row) {
				t.Errorf("%s: Records()[%d] got %s want %s", store, n, rec, want)
			}
			n += 1
			return nil
		})
	if err != nil {
		t.Fatalf("%s: Records() failed with %s", store, err)
	}
	if n != cnt {
		t.Errorf("%s: Records() got %d records want %d", store, n, cnt)
	}
}

func TestStores(t *testing.T) {
	for _, store := range wal.Stores() {
		dir := testutil.DataDir(t, store)

		l, err := wal.Open(store, dir, store == "file")
		if err != nil {
			t.Fatalf("Open(%s) failed with %s", store, err)
		}
		checkRecords(t, store, l, 0)
		appendRecords(t, l, 0, 5)
		checkRecords(t, store, l, 5)
		err = l.Close()
		if err != nil {
			t.Fatalf("%s: Close() failed with %s", store, err)
		}

		l, err = wal.Open(store, dir, false)
		if err != nil {
			t.Fatalf("Open(%s) again failed with %s", store, err)
		}
		appendRecords(t, l, 5, 20)
		checkRecords(t, store, l, 20)
		err = l.Close()
		if err != nil {
			t.Fatalf("%s: Close() failed with %s", store, err)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	dir := testutil.DataDir(t, "errors")

	_, err := wal.Open("missing", dir, false)
	if err == nil {
		t.Errorf("Open(missing) did not fail")
	}

	err = ioutil.WriteFile(filepath.Join(dir, "wal.log"),
		[]byte("not a wal file, just some bytes"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = wal.Open("file", dir, false)
	if !errors.Is(err, sql.ErrCorrupt) {
		t.Errorf("Open(file) with bad signature got %v want corrupt data", err)
	}
}

func TestCorruptEntryLength(t *testing.T) {
	dir := testutil.DataDir(t, "corrupt-length")

	wl, err := wal.Open("file", dir, false)
	if err != nil {
		t.Fatalf("Open(file) failed with %s", err)
	}
	err = wl.Close()
	if err != nil {
		t.Fatalf("Close() failed with %s", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "wal.log"), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Write([]byte{1, 0xFF, 0xFF, 0xFF, 0xF0})
	f.Close()
	if err != nil {
		t.Fatal(err)
	}

	wl, err = wal.Open("file", dir, false)
	if err != nil {
		t.Fatalf("Open(file) failed with %s", err)
	}
	defer wl.Close()

	err = wl.Records(func(rec wal.Record) error { return nil })
	if !errors.Is(err, sql.ErrCorrupt) {
		t.Errorf("Records() with huge entry length got %v want corrupt data", err)
	}
}
