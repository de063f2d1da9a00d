package kv

import "bytes"

// CacheOverlay wraps a base Store and buffers writes in a pending Batch,
// the same "buffer writes, read through on miss" shape as the teacher's
// flat in-memory KVStore, lifted onto an arbitrary ordered Store with
// ordered scans.
type CacheOverlay struct {
	base    Store
	pending *Batch
}

// NewCacheOverlay constructs an overlay over base. pending, if non-nil, is
// used as the initial pending batch instead of an empty one.
func NewCacheOverlay(base Store, pending *Batch) *CacheOverlay {
	if pending == nil {
		pending = NewBatch()
	}
	return &CacheOverlay{base: base, pending: pending}
}

func (c *CacheOverlay) Read(key []byte) ([]byte, bool, error) {
	if op, ok := c.pending.Get(key); ok {
		if op.IsDelete() {
			return nil, false, nil
		}
		out := make([]byte, len(op.Value))
		copy(out, op.Value)
		return out, true, nil
	}
	return c.base.Read(key)
}

func (c *CacheOverlay) Write(key, value []byte) error {
	c.pending.Put(key, Insert(value))
	return nil
}

func (c *CacheOverlay) Remove(key []byte) error {
	c.pending.Put(key, Delete())
	return nil
}

// Flush merges b into the pending batch, letting b win on key collisions.
func (c *CacheOverlay) Flush(b *Batch) error {
	c.pending.Merge(b)
	return nil
}

// Commit atomically flushes the pending batch to the base store, clearing
// pending.
func (c *CacheOverlay) Commit() error {
	if err := c.base.Flush(c.pending); err != nil {
		return err
	}
	c.pending = NewBatch()
	return nil
}

// Consume commits and returns the base store.
func (c *CacheOverlay) Consume() (Store, error) {
	if err := c.Commit(); err != nil {
		return nil, err
	}
	return c.base, nil
}

// Disassemble returns (base, pending) without flushing.
func (c *CacheOverlay) Disassemble() (Store, *Batch) {
	return c.base, c.pending
}

// Scan runs the merged-scan algorithm over base and pending: base and
// pending iterators are walked in lockstep, pending winning ties, Insert
// entries yielding and Delete entries being skipped.
func (c *CacheOverlay) Scan(min, max []byte, order Order) (Iterator, error) {
	if min != nil && max != nil && bytes.Compare(min, max) > 0 {
		return &sliceIterator{}, nil
	}

	baseIter, err := c.base.Scan(min, max, order)
	if err != nil {
		return nil, err
	}
	pendingEntries := c.pending.Range(min, max, order)

	return &mergedIterator{
		base:    baseIter,
		order:   order,
		pending: pendingEntries,
	}, nil
}

// mergedIterator walks base (lazily, via its own Iterator) and a
// pre-sliced, already-ordered pending entry list in lockstep, implementing
// the merged-scan algorithm of the cache overlay.
type mergedIterator struct {
	base  Iterator
	order Order

	pending []batchEntry
	pendPos int

	baseNext   *Record
	baseDone   bool
	baseLoaded bool
}

func (m *mergedIterator) peekBase() (*Record, error) {
	if m.baseLoaded {
		return m.baseNext, nil
	}
	rec, ok, err := m.base.Next()
	if err != nil {
		return nil, err
	}
	m.baseLoaded = true
	if !ok {
		m.baseDone = true
		m.baseNext = nil
		return nil, nil
	}
	m.baseNext = &rec
	return m.baseNext, nil
}

func (m *mergedIterator) peekPending() *batchEntry {
	if m.pendPos >= len(m.pending) {
		return nil
	}
	return &m.pending[m.pendPos]
}

func (m *mergedIterator) less(a, b []byte) bool {
	c := bytes.Compare(a, b)
	if m.order == Descending {
		return c > 0
	}
	return c < 0
}

func (m *mergedIterator) Next() (Record, bool, error) {
	for {
		baseRec, err := m.peekBase()
		if err != nil {
			return Record{}, false, err
		}
		pendEntry := m.peekPending()

		switch {
		case baseRec == nil && pendEntry == nil:
			return Record{}, false, nil

		case baseRec == nil:
			m.pendPos++
			if pendEntry.op.IsDelete() {
				continue
			}
			return Record{Key: pendEntry.key, Value: pendEntry.op.Value}, true, nil

		case pendEntry == nil:
			m.baseLoaded = false
			return *baseRec, true, nil

		case m.less(baseRec.Key, pendEntry.key):
			m.baseLoaded = false
			return *baseRec, true, nil

		case m.less(pendEntry.key, baseRec.Key):
			m.pendPos++
			if pendEntry.op.IsDelete() {
				continue
			}
			return Record{Key: pendEntry.key, Value: pendEntry.op.Value}, true, nil

		default: // equal keys: pending wins, base's element is discarded
			m.baseLoaded = false
			m.pendPos++
			if pendEntry.op.IsDelete() {
				continue
			}
			return Record{Key: pendEntry.key, Value: pendEntry.op.Value}, true, nil
		}
	}
}

var _ Store = (*CacheOverlay)(nil)
