package kv

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

type memEntry struct {
	key   []byte
	value []byte
}

func memEntryLess(a, b memEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemStore is an in-memory Store, adapted from the teacher's
// InMemoryDatabase: reads and writes copy their byte slices so callers can
// never observe or corrupt the store's internal buffers, but the keyspace
// is kept in an ordered btree instead of a plain map so Scan is possible.
type MemStore struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[memEntry]
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tree: btree.NewG(32, memEntryLess)}
}

func (s *MemStore) Read(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tree.Get(memEntry{key: key})
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (s *MemStore) Write(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	s.tree.ReplaceOrInsert(memEntry{key: k, value: v})
	return nil
}

func (s *MemStore) Remove(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree.Delete(memEntry{key: key})
	return nil
}

func (s *MemStore) Flush(batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch == nil {
		return nil
	}
	entries := batch.Range(nil, nil, Ascending)
	for _, e := range entries {
		if e.op.IsInsert() {
			k := append([]byte(nil), e.key...)
			v := append([]byte(nil), e.op.Value...)
			s.tree.ReplaceOrInsert(memEntry{key: k, value: v})
		} else {
			s.tree.Delete(memEntry{key: e.key})
		}
	}
	return nil
}

func (s *MemStore) Scan(min, max []byte, order Order) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Materialize a snapshot slice: the contract requires the iterator to
	// reflect a point-in-time view for the duration of its use, and a
	// snapshot copy is the simplest way to guarantee that against
	// subsequent writes through this same handle.
	var records []Record
	visit := func(e memEntry) bool {
		if max != nil && bytes.Compare(e.key, max) >= 0 {
			return order == Descending
		}
		if min != nil && bytes.Compare(e.key, min) < 0 {
			return order == Ascending
		}
		records = append(records, Record{
			Key:   append([]byte(nil), e.key...),
			Value: append([]byte(nil), e.value...),
		})
		return true
	}
	if order == Ascending {
		if min != nil {
			s.tree.AscendGreaterOrEqual(memEntry{key: min}, visit)
		} else {
			s.tree.Ascend(visit)
		}
	} else {
		if max != nil {
			s.tree.DescendLessOrEqual(memEntry{key: max}, visit)
		} else {
			s.tree.Descend(visit)
		}
	}
	return &sliceIterator{records: records}, nil
}

// sliceIterator walks a pre-materialized slice of Records.
type sliceIterator struct {
	records []Record
	pos     int
}

func (it *sliceIterator) Next() (Record, bool, error) {
	if it.pos >= len(it.records) {
		return Record{}, false, nil
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, true, nil
}

var _ Store = (*MemStore)(nil)
