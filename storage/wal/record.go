package wal

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/leftmike/heapsql/sql"
	"github.com/leftmike/heapsql/storage/encode"
)

type RecordType byte

const (
	InsertRecord RecordType = 1
	UpdateRecord RecordType = 2
)

func (rt RecordType) String() string {
	switch rt {
	case InsertRecord:
		return "insert"
	case UpdateRecord:
		return "update"
	}
	return fmt.Sprintf("record(%d)", rt)
}

// Record is one logged row change: the row as written, tagged with the transaction that
// wrote it.
type Record struct {
	Type  RecordType
	TxID  uint64
	Table string
	Row   sql.Row
}

func (rec Record) String() string {
	return fmt.Sprintf("%s tx=%d %s %s", rec.Type, rec.TxID, rec.Table, rec.Row)
}

// EncodeRecord returns the body of a record: varints for the type and transaction id,
// followed by the table name and the encoded row as length prefixed bytes.
func EncodeRecord(rec Record) ([]byte, error) {
	row, err := encode.EncodeRow(rec.Row, nil)
	if err != nil {
		return nil, err
	}

	pbuf := proto.NewBuffer(make([]byte, 0, len(rec.Table)+len(row)+16))
	pbuf.EncodeVarint(uint64(rec.Type))
	pbuf.EncodeVarint(rec.TxID)
	pbuf.EncodeRawBytes([]byte(rec.Table))
	pbuf.EncodeRawBytes(row)
	return pbuf.Bytes(), nil
}

func DecodeRecord(buf []byte) (Record, error) {
	pbuf := proto.NewBuffer(buf)

	typ, err := pbuf.DecodeVarint()
	if err != nil {
		return Record{}, badRecord("type", err)
	}
	if RecordType(typ) != InsertRecord && RecordType(typ) != UpdateRecord {
		return Record{}, sql.Errorf(sql.ErrCorrupt, "wal: bad record type: %d", typ)
	}
	txid, err := pbuf.DecodeVarint()
	if err != nil {
		return Record{}, badRecord("transaction id", err)
	}
	tbl, err := pbuf.DecodeRawBytes(false)
	if err != nil {
		return Record{}, badRecord("table", err)
	}
	rbuf, err := pbuf.DecodeRawBytes(false)
	if err != nil {
		return Record{}, badRecord("row", err)
	}
	if len(pbuf.Unread()) > 0 {
		return Record{}, sql.Errorf(sql.ErrCorrupt, "wal: bad record: %d trailing bytes",
			len(pbuf.Unread()))
	}

	row, err := encode.DecodeRow(rbuf)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Type:  RecordType(typ),
		TxID:  txid,
		Table: string(tbl),
		Row:   row,
	}, nil
}

func badRecord(fld string, err error) error {
	return sql.WrapError(sql.ErrCorrupt, err, "wal: bad record: %s field", fld)
}
