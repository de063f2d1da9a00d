package jmt

import "encoding/binary"

// Child references a node written at a specific version: the version lets
// a reader stop descending once it has resolved a hash without needing to
// know anything about the tree's history past that point.
type Child struct {
	Version uint64
	Hash    Hash
}

// Leaf holds the hash of the original key and of the original value — the
// tree never stores (or needs) the preimages.
type Leaf struct {
	KeyHash   Hash
	ValueHash Hash
}

// Internal has at least one non-null child (collapse removes the
// alternative), described in the invariants: no internal node has a
// single leaf child, though a single internal-node child is allowed.
type Internal struct {
	Left  *Child
	Right *Child
}

// Node is a tagged union: exactly one of Leaf or Internal is non-nil.
type Node struct {
	Leaf     *Leaf
	Internal *Internal
}

func LeafNode(keyHash, valueHash Hash) Node {
	return Node{Leaf: &Leaf{KeyHash: keyHash, ValueHash: valueHash}}
}

func InternalNode(left, right *Child) Node {
	return Node{Internal: &Internal{Left: left, Right: right}}
}

// IsLeaf reports whether the node is a leaf.
func (n Node) IsLeaf() bool { return n.Leaf != nil }

// Hash computes the node's domain-separated SHA-256 hash.
func (n Node) Hash() Hash {
	if n.Leaf != nil {
		return LeafHash(n.Leaf.KeyHash, n.Leaf.ValueHash)
	}
	invariant(n.Internal != nil, "node is neither leaf nor internal")
	var left, right *Hash
	if n.Internal.Left != nil {
		left = &n.Internal.Left.Hash
	}
	if n.Internal.Right != nil {
		right = &n.Internal.Right.Hash
	}
	return InternalHash(left, right)
}

// Serialization format: a single leading format byte distinguishes leaf
// from internal encodings, so the format can evolve without breaking
// decode of existing data (the teacher's own getNode/setNode instead fix
// a single 64-byte blob size and reject anything else; here the format
// byte plays that role while still being exact about remaining length).
const (
	formatLeaf     byte = 0x01
	formatInternal byte = 0x02

	leafEncodedLen = 1 + 32 + 32 // format + key_hash + value_hash
)

// EncodeNode produces the bijective, versioned binary encoding of n.
func EncodeNode(n Node) []byte {
	if n.Leaf != nil {
		out := make([]byte, leafEncodedLen)
		out[0] = formatLeaf
		copy(out[1:33], n.Leaf.KeyHash[:])
		copy(out[33:65], n.Leaf.ValueHash[:])
		return out
	}
	invariant(n.Internal != nil, "cannot encode empty node")

	var presence byte
	if n.Internal.Left != nil {
		presence |= 0x01
	}
	if n.Internal.Right != nil {
		presence |= 0x02
	}

	out := make([]byte, 0, 2+2*(8+32))
	out = append(out, formatInternal, presence)
	if n.Internal.Left != nil {
		out = appendChild(out, n.Internal.Left)
	}
	if n.Internal.Right != nil {
		out = appendChild(out, n.Internal.Right)
	}
	return out
}

func appendChild(out []byte, c *Child) []byte {
	var versionBuf [8]byte
	binary.BigEndian.PutUint64(versionBuf[:], c.Version)
	out = append(out, versionBuf[:]...)
	out = append(out, c.Hash[:]...)
	return out
}

// DecodeNode reverses EncodeNode, returning an error on any malformed
// input; the tree's loadNode wraps that error in a SerializationError
// carrying the version and path.
func DecodeNode(data []byte) (Node, error) {
	if len(data) == 0 {
		return Node{}, errMalformedNode("empty node blob")
	}
	switch data[0] {
	case formatLeaf:
		if len(data) != leafEncodedLen {
			return Node{}, errMalformedNode("leaf blob has wrong length")
		}
		var keyHash, valueHash Hash
		copy(keyHash[:], data[1:33])
		copy(valueHash[:], data[33:65])
		return LeafNode(keyHash, valueHash), nil

	case formatInternal:
		if len(data) < 2 {
			return Node{}, errMalformedNode("internal blob missing presence byte")
		}
		presence := data[1]
		rest := data[2:]
		var left, right *Child
		var err error
		if presence&0x01 != 0 {
			left, rest, err = readChild(rest)
			if err != nil {
				return Node{}, err
			}
		}
		if presence&0x02 != 0 {
			right, rest, err = readChild(rest)
			if err != nil {
				return Node{}, err
			}
		}
		if len(rest) != 0 {
			return Node{}, errMalformedNode("internal blob has trailing bytes")
		}
		return InternalNode(left, right), nil

	default:
		return Node{}, errMalformedNode("unknown node format byte")
	}
}

func readChild(data []byte) (*Child, []byte, error) {
	const childLen = 8 + 32
	if len(data) < childLen {
		return nil, nil, errMalformedNode("truncated child descriptor")
	}
	c := &Child{Version: binary.BigEndian.Uint64(data[:8])}
	copy(c.Hash[:], data[8:40])
	return c, data[childLen:], nil
}

type malformedNodeError string

func (e malformedNodeError) Error() string { return string(e) }

func errMalformedNode(msg string) error { return malformedNodeError(msg) }
