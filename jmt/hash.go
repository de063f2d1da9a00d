package jmt

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stateforge/jmt/internal/pool"
)

// Hash is a 32-byte SHA-256 digest. It is an alias for go-ethereum's
// common.Hash purely for its hex-codec conventions (String, MarshalText,
// UnmarshalText) — the hashing itself is SHA-256, not Keccak256, per the
// domain-separated scheme below.
type Hash = common.Hash

// NullHash is the all-zero 32 bytes used as the domain placeholder for a
// missing child during internal-node hashing.
var NullHash Hash

const (
	internalHashPrefix byte = 0x00
	leafHashPrefix      byte = 0x01
)

// HashBytes returns the SHA-256 digest of data as a Hash. Used to derive
// key_hash and value_hash from raw keys and values in ApplyRaw.
func HashBytes(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// LeafHash computes SHA256(0x01 ‖ keyHash ‖ valueHash). Every node an
// apply writes gets hashed, so the digest destination is borrowed from a
// pool rather than allocated fresh each call.
func LeafHash(keyHash, valueHash Hash) Hash {
	buf := pool.GlobalHashBufferPool.Get()
	defer pool.GlobalHashBufferPool.Put(buf)

	h := sha256.New()
	h.Write([]byte{leafHashPrefix})
	h.Write(keyHash[:])
	h.Write(valueHash[:])
	h.Sum(buf[:0])
	return Hash(*buf)
}

// InternalHash computes SHA256(0x00 ‖ left ‖ right), substituting NullHash
// for an absent child.
func InternalHash(left, right *Hash) Hash {
	buf := pool.GlobalHashBufferPool.Get()
	defer pool.GlobalHashBufferPool.Put(buf)

	h := sha256.New()
	h.Write([]byte{internalHashPrefix})
	if left != nil {
		h.Write(left[:])
	} else {
		h.Write(NullHash[:])
	}
	if right != nil {
		h.Write(right[:])
	} else {
		h.Write(NullHash[:])
	}
	h.Sum(buf[:0])
	return Hash(*buf)
}
