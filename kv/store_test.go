package kv

import (
	"bytes"
	"testing"
)

func TestBatchPutGetOverwrite(t *testing.T) {
	b := NewBatch()
	b.Put([]byte("a"), Insert([]byte("1")))
	b.Put([]byte("a"), Insert([]byte("2")))

	op, ok := b.Get([]byte("a"))
	if !ok {
		t.Fatalf("expected key present")
	}
	if !bytes.Equal(op.Value, []byte("2")) {
		t.Fatalf("expected later write to win, got %q", op.Value)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 distinct key, got %d", b.Len())
	}
}

func TestBatchRangeAscendingDescending(t *testing.T) {
	b := NewBatch()
	for _, k := range []string{"c", "a", "e", "b", "d"} {
		b.Put([]byte(k), Insert([]byte(k)))
	}

	asc := b.Range(nil, nil, Ascending)
	var gotAsc []string
	for _, e := range asc {
		gotAsc = append(gotAsc, string(e.key))
	}
	wantAsc := []string{"a", "b", "c", "d", "e"}
	if !equalStrings(gotAsc, wantAsc) {
		t.Fatalf("ascending: got %v, want %v", gotAsc, wantAsc)
	}

	desc := b.Range(nil, nil, Descending)
	var gotDesc []string
	for _, e := range desc {
		gotDesc = append(gotDesc, string(e.key))
	}
	wantDesc := []string{"e", "d", "c", "b", "a"}
	if !equalStrings(gotDesc, wantDesc) {
		t.Fatalf("descending: got %v, want %v", gotDesc, wantDesc)
	}
}

func TestBatchRangeHalfOpenBounds(t *testing.T) {
	b := NewBatch()
	for _, k := range []string{"a", "b", "c", "d"} {
		b.Put([]byte(k), Insert([]byte(k)))
	}
	got := b.Range([]byte("b"), []byte("d"), Ascending)
	if len(got) != 2 || string(got[0].key) != "b" || string(got[1].key) != "c" {
		t.Fatalf("expected [b, c), got %v", got)
	}
}

func TestBatchMergeRightBias(t *testing.T) {
	b := NewBatch()
	b.Put([]byte("a"), Insert([]byte("1")))
	b.Put([]byte("b"), Insert([]byte("1")))

	other := NewBatch()
	other.Put([]byte("a"), Delete())
	other.Put([]byte("c"), Insert([]byte("3")))

	b.Merge(other)

	if op, _ := b.Get([]byte("a")); !op.IsDelete() {
		t.Fatalf("expected merge to let other win on collision")
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 keys after merge, got %d", b.Len())
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
