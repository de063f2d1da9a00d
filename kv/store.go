// Package kv implements the ordered key-value substrate the JMT is built
// on: the abstract Store contract, two in-process backends, and the two
// compositional adapters (CacheOverlay, SharedStore) described in the
// storage and commitment core's design.
package kv

import (
	"bytes"
	"errors"

	"github.com/google/btree"
	"github.com/stateforge/jmt/optype"
)

// Order selects the direction a Scan walks its range in.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Record is a single (key, value) pair produced by a scan.
type Record struct {
	Key   []byte
	Value []byte
}

// ErrClosed reports use of a closed iterator. None of the iterators in this
// package return it: once exhausted, their Next keeps returning ok == false
// with a nil error.
var ErrClosed = errors.New("kv: iterator closed")

// Iterator is a single-pass, finite sequence of Records. It must reflect a
// snapshot for the duration of its use under single-threaded access, per
// the KV contract.
type Iterator interface {
	// Next returns the next record. ok is false once the iterator is
	// exhausted; err is non-nil only on a genuine backend failure.
	Next() (rec Record, ok bool, err error)
}

// Store is the ordered byte-keyed KV contract every adapter and the JMT
// apply engine is built against.
type Store interface {
	// Read returns the value for key, or (nil, false, nil) if absent.
	Read(key []byte) (value []byte, found bool, err error)
	// Scan returns a half-open [min, max) ordered iterator. A nil bound is
	// unbounded on that side.
	Scan(min, max []byte, order Order) (Iterator, error)
	// Write sets key to value.
	Write(key, value []byte) error
	// Remove deletes key, if present.
	Remove(key []byte) error
	// Flush applies batch atomically with respect to subsequent reads.
	Flush(batch *Batch) error
}

// Op is the KV-level instance of optype.Op: Insert(value) or Delete.
type Op = optype.Op[[]byte]

func Insert(value []byte) Op { return optype.Insert(value) }
func Delete() Op             { return optype.Delete[[]byte]() }

type batchEntry struct {
	key []byte
	op  Op
}

func batchEntryLess(a, b batchEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Batch is an ordered mapping key -> Op with unique keys, iterated in
// ascending key order. Later writes for the same key overwrite earlier
// ones. It is backed by an ordered btree so that ranged iteration (needed
// by the cache overlay's merged scan) doesn't require a full sort on every
// read.
type Batch struct {
	tree *btree.BTreeG[batchEntry]
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{tree: btree.NewG(32, batchEntryLess)}
}

// Put records key -> op, overwriting any existing entry for key.
func (b *Batch) Put(key []byte, op Op) {
	k := append([]byte(nil), key...)
	b.tree.ReplaceOrInsert(batchEntry{key: k, op: op})
}

// Get returns the op recorded for key, if any.
func (b *Batch) Get(key []byte) (Op, bool) {
	entry, ok := b.tree.Get(batchEntry{key: key})
	if !ok {
		return Op{}, false
	}
	return entry.op, true
}

// Len reports the number of distinct keys in the batch.
func (b *Batch) Len() int {
	if b == nil || b.tree == nil {
		return 0
	}
	return b.tree.Len()
}

// Merge folds other into b, letting other win on key collisions
// (equivalent to b.extend(other)).
func (b *Batch) Merge(other *Batch) {
	if other == nil {
		return
	}
	other.tree.Ascend(func(e batchEntry) bool {
		b.tree.ReplaceOrInsert(e)
		return true
	})
}

// Clone returns an independent copy of b.
func (b *Batch) Clone() *Batch {
	out := NewBatch()
	if b == nil {
		return out
	}
	b.tree.Ascend(func(e batchEntry) bool {
		out.tree.ReplaceOrInsert(e)
		return true
	})
	return out
}

// Range returns the batch entries with key in [min, max), in the requested
// order. A nil bound is unbounded on that side.
func (b *Batch) Range(min, max []byte, order Order) []batchEntry {
	if b == nil || b.tree == nil || b.tree.Len() == 0 {
		return nil
	}
	var out []batchEntry
	visit := func(e batchEntry) bool {
		if max != nil && bytes.Compare(e.key, max) >= 0 {
			return order == Descending
		}
		if min != nil && bytes.Compare(e.key, min) < 0 {
			return order == Ascending
		}
		out = append(out, e)
		return true
	}
	if order == Ascending {
		if min != nil {
			b.tree.AscendGreaterOrEqual(batchEntry{key: min}, visit)
		} else {
			b.tree.Ascend(visit)
		}
	} else {
		if max != nil {
			// DescendLessOrEqual starts at max itself; visit's max check
			// above skips it to preserve the half-open upper bound.
			b.tree.DescendLessOrEqual(batchEntry{key: max}, visit)
		} else {
			b.tree.Descend(visit)
		}
	}
	return out
}
