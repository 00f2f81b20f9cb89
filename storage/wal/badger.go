package wal

import (
	"encoding/binary"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
)

type badgerLog struct {
	mutex sync.Mutex
	db    *badger.DB
	seq   uint64
}

func openBadgerLog(dataDir string, sync bool, logger *log.Logger) (Log, error) {
	opts := badger.DefaultOptions(filepath.Join(dataDir, "wal.badger"))
	opts = opts.WithLogger(logger)
	opts = opts.WithSyncWrites(sync)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	bl := &badgerLog{
		db: db,
	}
	err = db.View(
		func(tx *badger.Txn) error {
			iopts := badger.DefaultIteratorOptions
			iopts.Reverse = true
			iopts.PrefetchValues = false
			it := tx.NewIterator(iopts)
			defer it.Close()

			it.Rewind()
			if it.Valid() {
				bl.seq = binary.BigEndian.Uint64(it.Item().Key())
			}
			return nil
		})
	if err != nil {
		db.Close()
		return nil, err
	}
	return bl, nil
}

func (bl *badgerLog) Append(rec Record) error {
	body, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	bl.mutex.Lock()
	defer bl.mutex.Unlock()

	err = bl.db.Update(
		func(tx *badger.Txn) error {
			return tx.Set(encodeSequence(bl.seq+1), body)
		})
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "wal: badger: append")
	}
	bl.seq += 1
	return nil
}

func (bl *badgerLog) Records(fn func(rec Record) error) error {
	return bl.db.View(
		func(tx *badger.Txn) error {
			it := tx.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				var rec Record
				err := it.Item().Value(
					func(val []byte) error {
						var err error
						rec, err = DecodeRecord(val)
						return err
					})
				if err != nil {
					return err
				}
				err = fn(rec)
				if err != nil {
					return err
				}
			}
			return nil
		})
}

func (bl *badgerLog) Close() error {
	return bl.db.Close()
}
