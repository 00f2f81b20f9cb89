package engine

import (
	"sync/atomic"
)

// Transaction tags the log records of one statement. There is no rollback: Committed only
// changes from false to true.
type Transaction struct {
	ID        uint64
	Committed bool
}

type TxManager struct {
	lastID uint64
}

// Begin returns a new transaction with an id greater than any id previously returned.
func (txm *TxManager) Begin() *Transaction {
	return &Transaction{
		ID: atomic.AddUint64(&txm.lastID, 1),
	}
}

func (_ *TxManager) Commit(tx *Transaction) {
	tx.Committed = true
}
