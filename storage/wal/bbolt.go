package wal

import (
	"encoding/binary"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/leftmike/heapsql/sql"
)

var (
	walBucket = []byte{'w', 'a', 'l'}
)

// bboltLog keeps records in a single bucket keyed by the bucket sequence.
type bboltLog struct {
	db *bbolt.DB
}

func openBBoltLog(dataDir string, sync bool, logger *log.Logger) (Log, error) {
	db, err := bbolt.Open(filepath.Join(dataDir, "wal.bbolt"), 0644, nil)
	if err != nil {
		return nil, err
	}
	db.NoSync = !sync

	err = db.Update(
		func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(walBucket)
			return err
		})
	if err != nil {
		db.Close()
		return nil, err
	}

	return bboltLog{
		db: db,
	}, nil
}

func encodeSequence(seq uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], seq)
	return key[:]
}

func (bl bboltLog) Append(rec Record) error {
	body, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	// bbolt allows only one writable transaction at a time.
	err = bl.db.Update(
		func(tx *bbolt.Tx) error {
			bkt := tx.Bucket(walBucket)
			if bkt == nil {
				return sql.Errorf(sql.ErrCorrupt, "wal: bbolt: missing wal bucket")
			}
			seq, err := bkt.NextSequence()
			if err != nil {
				return err
			}
			return bkt.Put(encodeSequence(seq), body)
		})
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "wal: bbolt: append")
	}
	return nil
}

func (bl bboltLog) Records(fn func(rec Record) error) error {
	return bl.db.View(
		func(tx *bbolt.Tx) error {
			bkt := tx.Bucket(walBucket)
			if bkt == nil {
				return sql.Errorf(sql.ErrCorrupt, "wal: bbolt: missing wal bucket")
			}
			cr := bkt.Cursor()
			for key, val := cr.First(); key != nil; key, val = cr.Next() {
				rec, err := DecodeRecord(val)
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

func (bl bboltLog) Close() error {
	return bl.db.Close()
}
