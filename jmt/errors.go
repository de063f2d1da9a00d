package jmt

import "fmt"

// NotFoundError reports that a node expected by the tree's own invariants
// (a child descriptor whose target is missing) was absent from the store.
type NotFoundError struct {
	Version uint64
	Path    BitArray
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("jmt: node not found at version %d, path %s", e.Version, e.Path)
}

// SerializationError reports that bytes read from the nodes keyspace failed
// to decode, indicating corruption.
type SerializationError struct {
	Version uint64
	Path    BitArray
	Cause   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("jmt: corrupt node at version %d, path %s: %v", e.Version, e.Path, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// StoreBackendError wraps an I/O or transaction error surfaced by the
// underlying KV store, propagated unchanged.
type StoreBackendError struct {
	Op    string
	Cause error
}

func (e *StoreBackendError) Error() string {
	return fmt.Sprintf("jmt: store backend error during %s: %v", e.Op, e.Cause)
}

func (e *StoreBackendError) Unwrap() error { return e.Cause }

// InvariantError signals a programming error: a node expected to be
// internal is a leaf, a bit outside {0,1}, a non-incremental version.
// Per the error taxonomy this kind aborts rather than returning to a
// caller that might reasonably continue.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "jmt: invariant violated: " + e.Message
}

// invariant panics with an InvariantError if cond is false. Used at the
// handful of points the recursion itself asserts a shape it has already
// established (e.g. "create_subtree produced Deleted"), mirroring the teacher's own panics for states
// its author considers unreachable.
func invariant(cond bool, message string) {
	if !cond {
		panic(&InvariantError{Message: message})
	}
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreBackendError{Op: op, Cause: err}
}
