package engine

import (
	"sync"

	"github.com/google/btree"

	"github.com/leftmike/heapsql/sql"
)

type rowItem struct {
	seq uint64
	row sql.Row
}

func (ri rowItem) Less(item btree.Item) bool {
	return ri.seq < item.(rowItem).seq
}

// rowCache holds rows in insertion order. Writers clone the tree, change the clone, and
// publish it; readers iterate a clone of their own. Published rows are never modified.
type rowCache struct {
	mutex sync.Mutex
	tree  *btree.BTree
	seq   uint64
}

func newRowCache() *rowCache {
	return &rowCache{
		tree: btree.New(16),
	}
}

func (rc *rowCache) snapshot() *btree.BTree {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	return rc.tree.Clone()
}

func (rc *rowCache) publish(tree *btree.BTree) {
	rc.mutex.Lock()
	rc.tree = tree
	rc.mutex.Unlock()
}

// nextSeq must only be called by the single writer of the cache.
func (rc *rowCache) nextSeq() uint64 {
	rc.seq += 1
	return rc.seq
}

func (rc *rowCache) len() int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	return rc.tree.Len()
}

func (rc *rowCache) rows() []sql.Row {
	tree := rc.snapshot()
	rows := make([]sql.Row, 0, tree.Len())
	tree.Ascend(
		func(item btree.Item) bool {
			rows = append(rows, item.(rowItem).row)
			return true
		})
	return rows
}

func scanTree(tree *btree.BTree, fn func(ri rowItem) bool) {
	tree.Ascend(
		func(item btree.Item) bool {
			return fn(item.(rowItem))
		})
}
