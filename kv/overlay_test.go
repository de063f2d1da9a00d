package kv

import (
	"bytes"
	"testing"
)

func keyByte(n byte) []byte { return []byte{n} }

func TestCacheOverlayReadThrough(t *testing.T) {
	base := NewMemStore()
	base.Write(keyByte(1), []byte("base"))

	o := NewCacheOverlay(base, nil)
	if v, found, _ := o.Read(keyByte(1)); !found || !bytes.Equal(v, []byte("base")) {
		t.Fatalf("expected read-through to base, got %q found=%v", v, found)
	}

	o.Write(keyByte(1), []byte("pending"))
	if v, found, _ := o.Read(keyByte(1)); !found || !bytes.Equal(v, []byte("pending")) {
		t.Fatalf("expected pending to shadow base, got %q found=%v", v, found)
	}

	o.Remove(keyByte(1))
	if _, found, _ := o.Read(keyByte(1)); found {
		t.Fatalf("expected pending delete to shadow base")
	}
}

func TestCacheOverlayCommit(t *testing.T) {
	base := NewMemStore()
	o := NewCacheOverlay(base, nil)
	o.Write(keyByte(1), []byte("v1"))

	if err := o.Commit(); err != nil {
		t.Fatal(err)
	}
	if v, found, _ := base.Read(keyByte(1)); !found || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("expected commit to flush into base, got %q found=%v", v, found)
	}
	if op, ok := o.pending.Get(keyByte(1)); ok {
		t.Fatalf("expected pending cleared after commit, still has %v", op)
	}
}

// TestCacheOverlayMergedScan is the cache-merge scenario: base has
// {1,2,4,5,6,7} each mapping to its own byte; pending deletes 2 and 7,
// inserts 3, overwrites 6 to 255, and inserts 8.
func TestCacheOverlayMergedScan(t *testing.T) {
	base := NewMemStore()
	for _, n := range []byte{1, 2, 4, 5, 6, 7} {
		base.Write(keyByte(n), keyByte(n))
	}

	pending := NewBatch()
	pending.Put(keyByte(2), Delete())
	pending.Put(keyByte(3), Insert(keyByte(3)))
	pending.Put(keyByte(6), Insert(keyByte(255)))
	pending.Put(keyByte(7), Delete())
	pending.Put(keyByte(8), Insert(keyByte(8)))

	o := NewCacheOverlay(base, pending)

	it, err := o.Scan(nil, nil, Ascending)
	if err != nil {
		t.Fatal(err)
	}
	var gotKeys, gotVals []byte
	for {
		rec, ok, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		gotKeys = append(gotKeys, rec.Key[0])
		gotVals = append(gotVals, rec.Value[0])
	}
	wantKeys := []byte{1, 3, 4, 5, 6, 8}
	wantVals := []byte{1, 3, 4, 5, 255, 8}
	if !bytes.Equal(gotKeys, wantKeys) {
		t.Fatalf("ascending keys: got %v, want %v", gotKeys, wantKeys)
	}
	if !bytes.Equal(gotVals, wantVals) {
		t.Fatalf("ascending values: got %v, want %v", gotVals, wantVals)
	}

	itDesc, err := o.Scan(nil, nil, Descending)
	if err != nil {
		t.Fatal(err)
	}
	var gotDescKeys []byte
	for {
		rec, ok, err := itDesc.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		gotDescKeys = append(gotDescKeys, rec.Key[0])
	}
	wantDescKeys := []byte{8, 6, 5, 4, 3, 1}
	if !bytes.Equal(gotDescKeys, wantDescKeys) {
		t.Fatalf("descending keys: got %v, want %v", gotDescKeys, wantDescKeys)
	}
}

func TestCacheOverlayFlushMerge(t *testing.T) {
	base := NewMemStore()
	o := NewCacheOverlay(base, nil)
	o.Write(keyByte(1), []byte("a"))

	incoming := NewBatch()
	incoming.Put(keyByte(1), Insert([]byte("b")))
	incoming.Put(keyByte(2), Insert([]byte("c")))

	if err := o.Flush(incoming); err != nil {
		t.Fatal(err)
	}

	if v, found, _ := o.Read(keyByte(1)); !found || !bytes.Equal(v, []byte("b")) {
		t.Fatalf("expected flushed batch to win on collision, got %q found=%v", v, found)
	}
	if v, found, _ := o.Read(keyByte(2)); !found || !bytes.Equal(v, []byte("c")) {
		t.Fatalf("expected flushed batch key visible, got %q found=%v", v, found)
	}
	if _, found, _ := base.Read(keyByte(1)); found {
		t.Fatalf("expected base untouched before commit")
	}
}

func TestCacheOverlayDisassembleAndConsume(t *testing.T) {
	base := NewMemStore()
	o := NewCacheOverlay(base, nil)
	o.Write(keyByte(1), []byte("v"))

	gotBase, gotPending := o.Disassemble()
	if gotBase != base {
		t.Fatalf("expected Disassemble to return the same base instance")
	}
	if _, ok := gotPending.Get(keyByte(1)); !ok {
		t.Fatalf("expected Disassemble to return the pending batch with its writes")
	}

	o2 := NewCacheOverlay(base, gotPending)
	consumed, err := o2.Consume()
	if err != nil {
		t.Fatal(err)
	}
	if consumed != base {
		t.Fatalf("expected Consume to return the base store")
	}
	if v, found, _ := base.Read(keyByte(1)); !found || !bytes.Equal(v, []byte("v")) {
		t.Fatalf("expected Consume to commit pending into base, got %q found=%v", v, found)
	}
}
