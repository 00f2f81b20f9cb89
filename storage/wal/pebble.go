package wal

import (
	"encoding/binary"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
)

type pebbleLog struct {
	mutex sync.Mutex
	db    *pebble.DB
	seq   uint64
	wo    *pebble.WriteOptions
}

func openPebbleLog(dataDir string, sync bool, logger *log.Logger) (Log, error) {
	db, err := pebble.Open(filepath.Join(dataDir, "wal.pebble"), &pebble.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	pl := &pebbleLog{
		db: db,
		wo: pebble.NoSync,
	}
	if sync {
		pl.wo = pebble.Sync
	}

	it := db.NewIter(nil)
	if it.Last() {
		pl.seq = binary.BigEndian.Uint64(it.Key())
	}
	err = it.Close()
	if err != nil {
		db.Close()
		return nil, err
	}
	return pl, nil
}

func (pl *pebbleLog) Append(rec Record) error {
	body, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	pl.mutex.Lock()
	defer pl.mutex.Unlock()

	err = pl.db.Set(encodeSequence(pl.seq+1), body, pl.wo)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "wal: pebble: append")
	}
	pl.seq += 1
	return nil
}

func (pl *pebbleLog) Records(fn func(rec Record) error) error {
	snap := pl.db.NewSnapshot()
	defer snap.Close()

	it := snap.NewIter(nil)
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		rec, err := DecodeRecord(it.Value())
		if err != nil {
			return err
		}
		err = fn(rec)
		if err != nil {
			return err
		}
	}
	return nil
}

func (pl *pebbleLog) Close() error {
	return pl.db.Close()
}
