package wal

import (
	"fmt"
	"os"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
)

// Log is an append only record of row changes. Records come back from Records in the order
// they were appended. Nothing ever replays the log into tables.
type Log interface {
	Append(rec Record) error
	Records(fn func(rec Record) error) error
	Close() error
}

type openFunc func(dataDir string, sync bool, logger *log.Logger) (Log, error)

var (
	storesMutex sync.Mutex
	stores      = map[string]openFunc{
		"file":   openFileLog,
		"bbolt":  openBBoltLog,
		"badger": openBadgerLog,
		"pebble": openPebbleLog,
	}
)

const DefaultStore = "file"

// Stores returns the names of the available log stores.
func Stores() []string {
	storesMutex.Lock()
	defer storesMutex.Unlock()

	var names []string
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens (or creates) the log kept by store in dataDir. When sync is set, every append
// reaches stable storage before returning.
func Open(store, dataDir string, sync bool) (Log, error) {
	if store == "" {
		store = DefaultStore
	}

	storesMutex.Lock()
	open, ok := stores[store]
	storesMutex.Unlock()
	if !ok {
		return nil, fmt.Errorf("wal: store %s not found; use one of %v", store, Stores())
	}

	err := os.MkdirAll(dataDir, 0755)
	if err != nil {
		return nil, sql.WrapError(sql.ErrIO, err, "wal: data directory %s", dataDir)
	}

	l, err := open(dataDir, sync, log.StandardLogger())
	if err != nil {
		return nil, sql.WrapError(sql.ErrIO, err, "wal: open %s store in %s", store, dataDir)
	}
	log.WithFields(log.Fields{"store": store, "dir": dataDir, "sync": sync}).Info("wal: open")
	return l, nil
}
