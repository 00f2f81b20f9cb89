package heap

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/heapsql/sql"
)

const (
	// MaxRecordLength bounds the declared length of a single record.
	MaxRecordLength = 10 * 1024 * 1024
)

// File is an append only sequence of length prefixed records. A record is a 4 byte big
// endian length followed by that many bytes of payload.
type File struct {
	mutex sync.Mutex
	path  string
	f     *os.File
}

func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, sql.WrapError(sql.ErrIO, err, "heap: open %s", path)
	}
	return &File{
		path: path,
		f:    f,
	}, nil
}

func (hf *File) Path() string {
	return hf.path
}

func (hf *File) file() (*os.File, error) {
	if hf.f == nil {
		return nil, sql.Errorf(sql.ErrIO, "heap: %s is closed", hf.path)
	}
	return hf.f, nil
}

func appendRecord(buf, payload []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(payload)))
	buf = append(buf, n[:]...)
	return append(buf, payload...)
}

// Append writes one record at the end of the file and syncs it to stable storage before
// returning.
func (hf *File) Append(payload []byte) error {
	if len(payload) > MaxRecordLength {
		return sql.Errorf(sql.ErrIO, "heap: %s: record too long: %d bytes", hf.path,
			len(payload))
	}

	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	f, err := hf.file()
	if err != nil {
		return err
	}
	_, err = f.Seek(0, io.SeekEnd)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: seek %s", hf.path)
	}
	_, err = f.Write(appendRecord(make([]byte, 0, len(payload)+4), payload))
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: append %s", hf.path)
	}
	err = f.Sync()
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: sync %s", hf.path)
	}
	return nil
}

// ReadAll calls fn with the payload of each record, from the start of the file to the end.
// The payload is only valid for the duration of the call.
func (hf *File) ReadAll(fn func(payload []byte) error) error {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	f, err := hf.file()
	if err != nil {
		return err
	}
	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: seek %s", hf.path)
	}

	r := bufio.NewReader(f)
	var off int64
	var buf []byte
	for {
		var n [4]byte
		_, err = io.ReadFull(r, n[:])
		if err == io.EOF {
			return nil
		} else if err == io.ErrUnexpectedEOF {
			return sql.Errorf(sql.ErrCorrupt, "heap: %s: truncated length at offset %d",
				hf.path, off)
		} else if err != nil {
			return sql.WrapError(sql.ErrIO, err, "heap: read %s", hf.path)
		}

		length := int32(binary.BigEndian.Uint32(n[:]))
		if length <= 0 || length > MaxRecordLength {
			return sql.Errorf(sql.ErrCorrupt, "heap: %s: bad record length %d at offset %d",
				hf.path, length, off)
		}
		if cap(buf) < int(length) {
			buf = make([]byte, length)
		}
		buf = buf[:length]

		_, err = io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return sql.Errorf(sql.ErrCorrupt, "heap: %s: truncated record at offset %d",
				hf.path, off)
		} else if err != nil {
			return sql.WrapError(sql.ErrIO, err, "heap: read %s", hf.path)
		}

		err = fn(buf)
		if err != nil {
			return err
		}
		off += 4 + int64(length)
	}
}

// Truncate discards every record.
func (hf *File) Truncate() error {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	f, err := hf.file()
	if err != nil {
		return err
	}
	err = f.Truncate(0)
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: truncate %s", hf.path)
	}
	err = f.Sync()
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: sync %s", hf.path)
	}
	return nil
}

// Rewrite replaces the contents of the file with payloads. The new contents are written to
// a temporary file which is renamed over the original; on failure before the rename, the
// original is untouched.
func (hf *File) Rewrite(payloads [][]byte) error {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	if hf.f == nil {
		return sql.Errorf(sql.ErrIO, "heap: %s is closed", hf.path)
	}

	tmp := hf.path + ".tmp"
	err := writeFile(tmp, payloads)
	if err != nil {
		os.Remove(tmp)
		return sql.WrapError(sql.ErrIO, err, "heap: rewrite %s", hf.path)
	}

	hf.f.Close()
	hf.f = nil
	err = os.Rename(tmp, hf.path)
	if err != nil {
		os.Remove(tmp)
		log.WithField("path", hf.path).Errorf("heap: rename failed: %s", err)
	}

	f, oerr := os.OpenFile(hf.path, os.O_RDWR|os.O_CREATE, 0644)
	if oerr != nil {
		return sql.WrapError(sql.ErrIO, oerr, "heap: reopen %s", hf.path)
	}
	hf.f = f
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: rename %s", tmp)
	}
	err = syncDir(filepath.Dir(hf.path))
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: rewrite %s", hf.path)
	}

	log.WithFields(log.Fields{"path": hf.path, "records": len(payloads)}).Debug(
		"heap: rewrite")
	return nil
}

// syncDir makes a rename in dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	err = d.Sync()
	if cerr := d.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeFile(path string, payloads [][]byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	var buf []byte
	for _, payload := range payloads {
		if len(payload) > MaxRecordLength {
			f.Close()
			return sql.Errorf(sql.ErrIO, "heap: record too long: %d bytes", len(payload))
		}
		buf = appendRecord(buf[:0], payload)
		_, err = w.Write(buf)
		if err != nil {
			f.Close()
			return err
		}
	}

	err = w.Flush()
	if err == nil {
		err = f.Sync()
	}
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	return err
}

// Delete closes and removes the file; deleting a missing file is not an error.
func (hf *File) Delete() error {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	if hf.f != nil {
		hf.f.Close()
		hf.f = nil
	}
	err := os.Remove(hf.path)
	if err != nil && !os.IsNotExist(err) {
		return sql.WrapError(sql.ErrIO, err, "heap: delete %s", hf.path)
	}
	return nil
}

func (hf *File) Close() error {
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	if hf.f == nil {
		return nil
	}
	err := hf.f.Close()
	hf.f = nil
	if err != nil {
		return sql.WrapError(sql.ErrIO, err, "heap: close %s", hf.path)
	}
	return nil
}
