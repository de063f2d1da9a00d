// Package optype defines the tagged Insert/Delete operation shared by the
// KV overlay and the JMT apply engine.
package optype

// Kind tags an Op as either an insertion or a deletion.
type Kind uint8

const (
	KindInsert Kind = iota
	KindDelete
)

// Op is a tagged value: Insert(value) or Delete.
type Op[T any] struct {
	Kind  Kind
	Value T
}

// Insert builds an Insert(v) op.
func Insert[T any](v T) Op[T] {
	return Op[T]{Kind: KindInsert, Value: v}
}

// Delete builds a Delete op. The zero value of T is never meaningful here;
// callers must check Kind before reading Value.
func Delete[T any]() Op[T] {
	return Op[T]{Kind: KindDelete}
}

// IsInsert reports whether the op is an insertion.
func (o Op[T]) IsInsert() bool { return o.Kind == KindInsert }

// IsDelete reports whether the op is a deletion.
func (o Op[T]) IsDelete() bool { return o.Kind == KindDelete }
