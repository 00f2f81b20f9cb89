package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CleanDir removes everything in the directory named by dirname except for
// any directory entries specified by keeps.
func CleanDir(dirname string, keeps []string) error {
	d, err := os.Open(dirname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	names, err := d.Readdirnames(-1)
	d.Close()
	if err != nil {
		return err
	}

	m := map[string]struct{}{}
	for _, k := range keeps {
		m[k] = struct{}{}
	}

	for _, n := range names {
		if _, found := m[n]; found {
			continue
		}
		err = os.RemoveAll(filepath.Join(dirname, n))
		if err != nil {
			return err
		}
	}
	return nil
}

// DataDir returns an empty directory testdata/name for a test to keep its files in.
func DataDir(t *testing.T, name string) string {
	t.Helper()

	dir := filepath.Join("testdata", name)
	err := CleanDir(dir, nil)
	if err != nil {
		t.Fatalf("CleanDir(%s) failed with %s", dir, err)
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		t.Fatalf("MkdirAll(%s) failed with %s", dir, err)
	}
	return dir
}
