package encode

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/leftmike/heapsql/sql"
)

// Each field is written as a 2 byte length prefixed name, a 2 byte type tag, and then the
// value: a 4 byte integer or a 2 byte length prefixed string. All numbers are big endian.
const (
	nullValueTag   = 'N'
	intValueTag    = 'I'
	stringValueTag = 'S'

	MaxStringLength = math.MaxUint16
)

func EncodeUint16(buf []byte, n uint16) []byte {
	return append(buf, byte(n>>8), byte(n))
}

func EncodeUint32(buf []byte, n uint32) []byte {
	return append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func encodeString(buf []byte, s string) ([]byte, error) {
	if len(s) > MaxStringLength {
		return nil, sql.Errorf(sql.ErrSchema, "encode: string too long: %d bytes", len(s))
	}
	if !utf8.ValidString(s) {
		return nil, sql.Errorf(sql.ErrSchema, "encode: string is not valid utf8: %q", s)
	}
	buf = EncodeUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

// EncodeRow encodes the named columns of row in order; a nil cols encodes every column of
// the row in sorted order.
func EncodeRow(row sql.Row, cols []string) ([]byte, error) {
	if cols == nil {
		cols = make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
	}

	buf := EncodeUint32(make([]byte, 0, 16*len(cols)), uint32(len(cols)))
	for _, col := range cols {
		var err error
		buf, err = encodeString(buf, col)
		if err != nil {
			return nil, err
		}

		switch val := row[col].(type) {
		case nil:
			buf = EncodeUint16(buf, nullValueTag)
		case sql.IntValue:
			buf = EncodeUint16(buf, intValueTag)
			buf = EncodeUint32(buf, uint32(val))
		case sql.StringValue:
			buf = EncodeUint16(buf, stringValueTag)
			buf, err = encodeString(buf, string(val))
			if err != nil {
				return nil, err
			}
		default:
			panic(fmt.Sprintf("unexpected type for sql.Value: %T: %v", val, val))
		}
	}
	return buf, nil
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(msg string) {
	if d.err == nil {
		d.err = sql.Errorf(sql.ErrCorrupt, "encode: bad row: %s", msg)
	}
}

func (d *decoder) uint16(what string) uint16 {
	if d.err != nil {
		return 0
	}
	if len(d.buf) < 2 {
		d.fail(what)
		return 0
	}
	n := binary.BigEndian.Uint16(d.buf)
	d.buf = d.buf[2:]
	return n
}

func (d *decoder) uint32(what string) uint32 {
	if d.err != nil {
		return 0
	}
	if len(d.buf) < 4 {
		d.fail(what)
		return 0
	}
	n := binary.BigEndian.Uint32(d.buf)
	d.buf = d.buf[4:]
	return n
}

func (d *decoder) string(what string) string {
	n := int(d.uint16(what + " length"))
	if d.err != nil {
		return ""
	}
	if len(d.buf) < n {
		d.fail(what)
		return ""
	}
	s := string(d.buf[:n])
	d.buf = d.buf[n:]
	return s
}

func DecodeRow(buf []byte) (sql.Row, error) {
	d := decoder{buf: buf}

	cnt := d.uint32("field count")
	if d.err != nil {
		return nil, d.err
	}
	// Every field takes at least 4 bytes.
	if uint64(cnt)*4 > uint64(len(d.buf)) {
		return nil, sql.Errorf(sql.ErrCorrupt, "encode: bad row: field count %d too large", cnt)
	}

	row := make(sql.Row, cnt)
	for fdx := uint32(0); fdx < cnt; fdx++ {
		name := d.string("field name")
		tag := d.uint16("type tag")
		if d.err != nil {
			return nil, d.err
		}

		var val sql.Value
		switch tag {
		case nullValueTag:
		case intValueTag:
			val = sql.IntValue(int32(d.uint32("integer value")))
		case stringValueTag:
			val = sql.StringValue(d.string("string value"))
		default:
			return nil, sql.Errorf(sql.ErrCorrupt, "encode: bad row: unknown type tag %d", tag)
		}
		if d.err != nil {
			return nil, d.err
		}
		row[name] = val
	}

	if len(d.buf) > 0 {
		return nil, sql.Errorf(sql.ErrCorrupt, "encode: bad row: %d trailing bytes", len(d.buf))
	}
	return row, nil
}
