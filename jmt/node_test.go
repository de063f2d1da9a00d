package jmt

import "testing"

func hashFromByte(b byte) Hash {
	var h Hash
	h[0] = b
	h[31] = b
	return h
}

func TestEncodeDecodeLeafRoundTrip(t *testing.T) {
	n := LeafNode(hashFromByte(1), hashFromByte(2))
	data := EncodeNode(n)
	got, err := DecodeNode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsLeaf() {
		t.Fatalf("expected decoded node to be a leaf")
	}
	if got.Leaf.KeyHash != n.Leaf.KeyHash || got.Leaf.ValueHash != n.Leaf.ValueHash {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got.Leaf, n.Leaf)
	}
}

func TestEncodeDecodeInternalRoundTrip(t *testing.T) {
	left := &Child{Version: 3, Hash: hashFromByte(7)}
	right := &Child{Version: 5, Hash: hashFromByte(9)}
	n := InternalNode(left, right)

	data := EncodeNode(n)
	got, err := DecodeNode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsLeaf() {
		t.Fatalf("expected decoded node to be internal")
	}
	if *got.Internal.Left != *left || *got.Internal.Right != *right {
		t.Fatalf("round trip mismatch: got %+v, want left=%+v right=%+v", got.Internal, left, right)
	}
}

func TestEncodeDecodeInternalSingleChild(t *testing.T) {
	left := &Child{Version: 1, Hash: hashFromByte(4)}
	n := InternalNode(left, nil)

	data := EncodeNode(n)
	got, err := DecodeNode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Internal.Right != nil {
		t.Fatalf("expected nil right child preserved")
	}
	if *got.Internal.Left != *left {
		t.Fatalf("expected left child preserved, got %+v", got.Internal.Left)
	}
}

func TestDecodeNodeRejectsMalformedInput(t *testing.T) {
	cases := [][]byte{
		{},
		{formatLeaf, 0x01, 0x02},
		{formatInternal},
		{formatInternal, 0x01},
		{0xEE},
		append(EncodeNode(LeafNode(hashFromByte(1), hashFromByte(2))), 0x00),
	}
	for i, c := range cases {
		if _, err := DecodeNode(c); err == nil {
			t.Fatalf("case %d: expected error decoding malformed input %v", i, c)
		}
	}
}

func TestNodeHashDistinguishesLeafFromInternal(t *testing.T) {
	kh, vh := hashFromByte(1), hashFromByte(2)
	leaf := LeafNode(kh, vh)

	child := &Child{Version: 0, Hash: leaf.Hash()}
	internal := InternalNode(child, nil)

	if leaf.Hash() == internal.Hash() {
		t.Fatalf("expected leaf and internal hashes to differ under domain separation")
	}
}
