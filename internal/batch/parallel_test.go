package batch

import (
	"context"
	"testing"

	"github.com/stateforge/jmt/jmt"
	"github.com/stateforge/jmt/kv"
	"github.com/stateforge/jmt/optype"
)

func rawInsert(key, value string) jmt.RawEntry {
	return jmt.RawEntry{Key: []byte(key), Value: []byte(value), Op: kv.Insert([]byte(value))}
}

func TestParallelApplierIndependentTrees(t *testing.T) {
	sequential := jmt.New(kv.NewMemStore())
	wantA, _, err := sequential.ApplyRaw(0, 1, []jmt.RawEntry{rawInsert("a", "1")})
	if err != nil {
		t.Fatal(err)
	}

	treeA := jmt.New(kv.NewMemStore())
	treeB := jmt.New(kv.NewMemStore())

	applier := NewParallelApplier(4)
	results, err := applier.Run(context.Background(), []ApplyJob{
		{Tree: treeA, OldVersion: 0, NewVersion: 1, Entries: []jmt.Entry{{KeyHash: jmt.HashBytes([]byte("a")), Op: jmt.HashOp{Kind: optype.KindInsert, Value: jmt.HashBytes([]byte("1"))}}}},
		{Tree: treeB, OldVersion: 0, NewVersion: 1, Entries: []jmt.Entry{{KeyHash: jmt.HashBytes([]byte("b")), Op: jmt.HashOp{Kind: optype.KindInsert, Value: jmt.HashBytes([]byte("2"))}}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Exists || results[0].Root != wantA {
		t.Fatalf("expected tree A's parallel root to match its sequential root: got %x, want %x", results[0].Root, wantA)
	}
	if !results[1].Exists {
		t.Fatalf("expected tree B to have a root after inserting one key")
	}
}

func TestParallelApplierPropagatesError(t *testing.T) {
	good := jmt.New(kv.NewMemStore())

	badStore := kv.NewMemStore()
	bad := jmt.New(badStore)
	if _, _, err := bad.ApplyRaw(0, 1, []jmt.RawEntry{rawInsert("x", "1")}); err != nil {
		t.Fatal(err)
	}
	corruptEveryStoredRecord(t, badStore)

	applier := NewParallelApplier(2)
	_, err := applier.Run(context.Background(), []ApplyJob{
		{Tree: good, OldVersion: 0, NewVersion: 1, Entries: []jmt.Entry{{KeyHash: jmt.HashBytes([]byte("a")), Op: jmt.HashOp{Kind: optype.KindInsert, Value: jmt.HashBytes([]byte("1"))}}}},
		// every record in bad's store, its version-1 root included, has been
		// overwritten with undecodable bytes, so continuing to apply against
		// it must surface a decode failure.
		{Tree: bad, OldVersion: 1, NewVersion: 2, Entries: []jmt.Entry{{KeyHash: jmt.HashBytes([]byte("y")), Op: jmt.HashOp{Kind: optype.KindInsert, Value: jmt.HashBytes([]byte("2"))}}}},
	})
	if err == nil {
		t.Fatalf("expected an error from the job applying against corrupted storage")
	}
}

func TestParallelApplierEmptyJobs(t *testing.T) {
	applier := NewParallelApplier(0)
	results, err := applier.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Fatalf("expected nil results for no jobs, got %v", results)
	}
}

// corruptEveryStoredRecord overwrites every record's value with bytes that
// cannot decode as a valid node, so any further load against store fails.
func corruptEveryStoredRecord(t *testing.T, store kv.Store) {
	t.Helper()
	it, err := store.Scan(nil, nil, kv.Ascending)
	if err != nil {
		t.Fatal(err)
	}
	var keys [][]byte
	for {
		rec, ok, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		keys = append(keys, append([]byte(nil), rec.Key...))
	}
	for _, k := range keys {
		if err := store.Write(k, []byte{0xFF}); err != nil {
			t.Fatal(err)
		}
	}
}
