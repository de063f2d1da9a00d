// Package jmt implements a versioned, sparse binary Merkle tree (a
// Jellyfish Merkle Tree) over an arbitrary ordered kv.Store: batched
// update, single-leaf-child collapse, orphan accounting across versions,
// and membership/non-membership proof generation.
package jmt

import (
	"sort"
	"sync"

	"github.com/stateforge/jmt/kv"
	"github.com/stateforge/jmt/optype"
)

// Tree is a handle on a JMT persisted in store under the given
// namespaces. Its mutex guards the same way smt.SparseMerkleTree's does:
// RootHash and Prove take a read lock, Apply takes a write lock.
type Tree struct {
	mu sync.RWMutex

	store            kv.Store
	nodesNamespace   string
	orphansNamespace string
}

// Option configures a Tree at construction.
type Option func(*Tree)

// WithNodesNamespace overrides the default "n" nodes keyspace prefix.
func WithNodesNamespace(ns string) Option {
	return func(t *Tree) { t.nodesNamespace = ns }
}

// WithOrphansNamespace overrides the default "o" orphans keyspace prefix.
func WithOrphansNamespace(ns string) Option {
	return func(t *Tree) { t.orphansNamespace = ns }
}

// New constructs a Tree over store with the default namespaces, unless
// overridden by opts.
func New(store kv.Store, opts ...Option) *Tree {
	t := &Tree{
		store:            store,
		nodesNamespace:   DefaultNodesNamespace,
		orphansNamespace: DefaultOrphansNamespace,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tree) loadNode(version uint64, path BitArray) (Node, bool, error) {
	raw, found, err := t.store.Read(nodeKey(t.nodesNamespace, version, path))
	if err != nil {
		return Node{}, false, wrapStoreErr("read node", err)
	}
	if !found {
		return Node{}, false, nil
	}
	node, err := DecodeNode(raw)
	if err != nil {
		return Node{}, false, &SerializationError{Version: version, Path: path, Cause: err}
	}
	return node, true, nil
}

// RootHash returns the hash of the root node at version, or (NullHash,
// false, nil) if no root exists at that version — either nothing was ever
// written there, or it has since been pruned; the two are indistinguishable
// at this interface, by design.
func (t *Tree) RootHash(version uint64) (Hash, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, found, err := t.loadNode(version, Empty())
	if err != nil || !found {
		return NullHash, false, err
	}
	return node.Hash(), true, nil
}

// HashOp is the Hash-valued instance of optype.Op: Insert(value_hash) or
// Delete.
type HashOp = optype.Op[Hash]

func insertHashOp(v Hash) HashOp { return optype.Insert(v) }
func deleteHashOp() HashOp       { return optype.Delete[Hash]() }

// Entry is one element of a batch presented to Apply: a key hash paired
// with an Insert(value_hash) or Delete op.
type Entry struct {
	KeyHash Hash
	Op      HashOp
}

// RawEntry is one element of a batch presented to ApplyRaw. ApplyRaw hashes
// Key into the key_hash and, for an Insert, Op.Value into the value_hash;
// the Value field is not read by ApplyRaw.
type RawEntry struct {
	Key   []byte
	Value []byte
	Op    kv.Op
}

// Apply runs a batch of hashed entries against the tree rooted at
// oldVersion, producing the root at newVersion. entries need not be
// presorted; Apply sorts and deduplicates (last write per key_hash wins)
// before recursing, matching the batch contract's "keys unique, later
// writes win" rule.
//
// If a root exists at oldVersion, it is recorded as orphaned at newVersion
// before the batch is applied, even when the batch turns out to change
// nothing. On such a no-op batch Apply returns the unchanged root hash,
// and the caller is expected not to advance to newVersion.
func (t *Tree) Apply(oldVersion, newVersion uint64, entries []Entry) (Hash, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	invariant(newVersion == 0 || newVersion > oldVersion, "new_version must be 0 or strictly greater than old_version")

	batch := dedupSortEntries(entries)

	if _, found, err := t.loadNode(oldVersion, Empty()); err != nil {
		return NullHash, false, err
	} else if found {
		if err := t.markOrphaned(newVersion, oldVersion, Empty()); err != nil {
			return NullHash, false, err
		}
	}

	result, err := t.applyAt(newVersion, oldVersion, Empty(), batch)
	if err != nil {
		return NullHash, false, err
	}

	switch result.kind {
	case outcomeDeleted:
		return NullHash, false, nil
	case outcomeUpdated:
		return result.node.Hash(), true, nil
	default: // unchanged
		if result.node != nil {
			return result.node.Hash(), true, nil
		}
		return NullHash, false, nil
	}
}

// ApplyRaw hashes keys and values with SHA-256 and sorts before delegating
// to Apply.
func (t *Tree) ApplyRaw(oldVersion, newVersion uint64, raw []RawEntry) (Hash, bool, error) {
	entries := make([]Entry, len(raw))
	for i, r := range raw {
		keyHash := HashBytes(r.Key)
		if r.Op.IsDelete() {
			entries[i] = Entry{KeyHash: keyHash, Op: deleteHashOp()}
		} else {
			entries[i] = Entry{KeyHash: keyHash, Op: insertHashOp(HashBytes(r.Op.Value))}
		}
	}
	return t.Apply(oldVersion, newVersion, entries)
}

func dedupSortEntries(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return hashLess(entries[i].KeyHash, entries[j].KeyHash)
	})
	out := entries[:0:0]
	for i, e := range entries {
		if i+1 < len(entries) && entries[i+1].KeyHash == e.KeyHash {
			continue // later (stable-sorted-later) duplicate wins
		}
		out = append(out, e)
	}
	return out
}

func hashLess(a, b Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
