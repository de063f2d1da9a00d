package kv

import (
	"bytes"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelStore is a goleveldb-backed Store, for callers that need durability
// beyond process lifetime. The core makes no durability guarantees of its
// own (spec Non-goals) — whatever LevelDB provides, it provides.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (creating if absent) a LevelDB database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("kv: open leveldb at %q: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

func (s *LevelStore) Read(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: leveldb read: %w", err)
	}
	return value, true, nil
}

func (s *LevelStore) Write(key, value []byte) error {
	if err := s.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("kv: leveldb write: %w", err)
	}
	return nil
}

func (s *LevelStore) Remove(key []byte) error {
	if err := s.db.Delete(key, nil); err != nil {
		return fmt.Errorf("kv: leveldb remove: %w", err)
	}
	return nil
}

func (s *LevelStore) Flush(batch *Batch) error {
	if batch == nil {
		return nil
	}
	lb := new(leveldb.Batch)
	for _, e := range batch.Range(nil, nil, Ascending) {
		if e.op.IsInsert() {
			lb.Put(e.key, e.op.Value)
		} else {
			lb.Delete(e.key)
		}
	}
	if err := s.db.Write(lb, nil); err != nil {
		return fmt.Errorf("kv: leveldb flush: %w", err)
	}
	return nil
}

func (s *LevelStore) Scan(min, max []byte, order Order) (Iterator, error) {
	if min != nil && max != nil && bytes.Compare(min, max) > 0 {
		return &sliceIterator{}, nil
	}
	rng := &util.Range{Start: min, Limit: max}
	it := s.db.NewIterator(rng, nil)
	return &levelIterator{it: it, order: order, started: false}, nil
}

// levelIterator adapts goleveldb's bidirectional cursor to the single-pass
// forward-only Iterator contract, walking in whichever direction order
// requests.
type levelIterator struct {
	it      iterator.Iterator
	order   Order
	started bool
	done    bool
}

func (it *levelIterator) Next() (Record, bool, error) {
	if it.done {
		return Record{}, false, nil
	}

	var advanced bool
	if !it.started {
		it.started = true
		if it.order == Ascending {
			advanced = it.it.First()
		} else {
			advanced = it.it.Last()
		}
	} else {
		if it.order == Ascending {
			advanced = it.it.Next()
		} else {
			advanced = it.it.Prev()
		}
	}

	if !advanced {
		it.done = true
		if err := it.it.Error(); err != nil {
			it.it.Release()
			return Record{}, false, fmt.Errorf("kv: leveldb scan: %w", err)
		}
		it.it.Release()
		return Record{}, false, nil
	}

	key := append([]byte(nil), it.it.Key()...)
	value := append([]byte(nil), it.it.Value()...)
	return Record{Key: key, Value: value}, true, nil
}

var _ Store = (*LevelStore)(nil)
