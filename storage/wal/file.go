package wal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
)

const (
	walFile    = "wal.log"
	walVersion = 1

	headerLength = 16
	entryType    = 1

	// MaxEntryLength bounds the declared length of a single entry body.
	MaxEntryLength = 10 * 1024 * 1024
)

var (
	walHeaderSignature = [8]byte{'h', 'e', 'a', 'p', 'w', 'a', 'l', 0}
)

// fileLog is a single file: a 16 byte header (signature, version, unused) followed by
// entries, each a type byte, a 4 byte big endian length, and a record body.
type fileLog struct {
	mutex sync.Mutex
	path  string
	f     *os.File
	sync  bool
}

func openFileLog(dataDir string, sync bool, logger *log.Logger) (Log, error) {
	path := filepath.Join(dataDir, walFile)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < headerLength {
		err = newWAL(f)
	} else {
		err = checkHeader(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileLog{
		path: path,
		f:    f,
		sync: sync,
	}, nil
}

func newWAL(f *os.File) error {
	err := f.Truncate(0)
	if err != nil {
		return err
	}

	buf := make([]byte, 0, headerLength)
	buf = append(buf, walHeaderSignature[:]...)
	buf = append(buf, walVersion)
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0)

	_, err = f.WriteAt(buf, 0)
	if err != nil {
		return err
	}
	return f.Sync()
}

func checkHeader(f *os.File) error {
	var hdr [headerLength]byte
	_, err := f.ReadAt(hdr[:], 0)
	if err != nil {
		return err
	}
	if !bytes.Equal(hdr[0:8], walHeaderSignature[:]) {
		return sql.Errorf(sql.ErrCorrupt, "wal: bad signature: %v", hdr[0:8])
	}
	if hdr[8] > walVersion {
		return sql.Errorf(sql.ErrCorrupt, "wal: bad version: %d", hdr[8])
	}
	return nil
}

func (fl *fileLog) Append(rec Record) error {
	body, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if len(body) > MaxEntryLength {
		return sql.Errorf(sql.ErrIO, "wal: entry too long: %d bytes", len(body))
	}

	buf := make([]byte, 5, len(body)+5)
	buf[0] = entryType
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(body)))
	buf = append(buf, body...)

	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	_, err = fl.f.Seek(0, io.SeekEnd)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "wal: seek %s", fl.path)
	}
	_, err = fl.f.Write(buf)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "wal: append %s", fl.path)
	}
	if fl.sync {
		err = fl.f.Sync()
		if err != nil {
			return sql.WrapError(sql.ErrIO, err, "wal: sync %s", fl.path)
		}
	}
	return nil
}

func (fl *fileLog) Records(fn func(rec Record) error) error {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	_, err := fl.f.Seek(headerLength, io.SeekStart)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "wal: seek %s", fl.path)
	}

	r := bufio.NewReader(fl.f)
	for {
		var hdr [5]byte
		_, err = io.ReadFull(r, hdr[:])
		if err == io.EOF {
			return nil
		} else if err != nil {
			return sql.WrapError(sql.ErrCorrupt, err, "wal: %s: entry header", fl.path)
		}
		if hdr[0] != entryType {
			return sql.Errorf(sql.ErrCorrupt, "wal: %s: bad entry type: %d", fl.path, hdr[0])
		}

		n := binary.BigEndian.Uint32(hdr[1:5])
		if n > MaxEntryLength {
			return sql.Errorf(sql.ErrCorrupt, "wal: %s: entry length too large: %d", fl.path, n)
		}
		body := make([]byte, n)
		_, err = io.ReadFull(r, body)
		if err != nil {
			return sql.WrapError(sql.ErrCorrupt, err, "wal: %s: entry body", fl.path)
		}
		rec, err := DecodeRecord(body)
		if err != nil {
			return err
		}
		err = fn(rec)
		if err != nil {
			return err
		}
	}
}

func (fl *fileLog) Close() error {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	if fl.f == nil {
		return nil
	}
	err := fl.f.Close()
	fl.f = nil
	return err
}
