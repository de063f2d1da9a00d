package jmt

import (
	"strings"

	"github.com/holiman/uint256"
)

// maxBitPathLen is the longest path the tree can ever need: one bit per
// level of a 256-bit key hash.
const maxBitPathLen = 256

// BitArray is an immutable-then-append sequence of up to 256 bits,
// MSB-first, left-aligned within a uint256.Int. Because a key-hash path
// never exceeds 256 bits, representing the path as the high-order bits of
// a single fixed-width integer (plus a length) avoids a separate
// byte-slice allocation per tree level; the zero-padded low bits double as
// a correct lexicographic tiebreaker for Compare.
type BitArray struct {
	value  uint256.Int
	length uint16
}

// Empty returns the root path.
func Empty() BitArray {
	return BitArray{}
}

// Len reports the number of bits in the path.
func (b BitArray) Len() int {
	return int(b.length)
}

// wordAndBit maps a global integer bit index (0 = LSB, 255 = MSB) to
// its uint256 word and in-word bit position.
func wordAndBit(integerBit int) (word, bit int) {
	return integerBit / 64, integerBit % 64
}

// Push returns a new path with bit appended (0 or 1).
func (b BitArray) Push(bit int) BitArray {
	invariant(bit == 0 || bit == 1, "bit must be 0 or 1")
	invariant(int(b.length) < maxBitPathLen, "bit path exceeds 256 bits")

	out := b
	if bit == 1 {
		integerBit := maxBitPathLen - 1 - int(b.length)
		w, bi := wordAndBit(integerBit)
		out.value[w] |= uint64(1) << uint(bi)
	}
	out.length = b.length + 1
	return out
}

// ExtendOneBit is Push(0) for isLeft, Push(1) otherwise — the idiomatic
// spelling used by the apply engine when descending left/right.
func (b BitArray) ExtendOneBit(isLeft bool) BitArray {
	if isLeft {
		return b.Push(0)
	}
	return b.Push(1)
}

// BitAt returns the bit at position i (0 = MSB of the path).
func (b BitArray) BitAt(i int) int {
	invariant(i >= 0 && i < int(b.length), "bit path index out of range")
	integerBit := maxBitPathLen - 1 - i
	w, bi := wordAndBit(integerBit)
	return int((b.value[w] >> uint(bi)) & 1)
}

// Compare orders paths lexicographically on bits, with length as a
// tiebreaker when one path is a prefix of the other. The left-aligned,
// zero-padded representation makes raw integer comparison equivalent to
// bitwise lexicographic comparison whenever lengths match or differ with
// only zero bits following the shorter prefix; the explicit length
// tiebreak below handles the remaining case where a shorter path's value
// happens to equal a longer path's zero-padded value.
func (b BitArray) Compare(other BitArray) int {
	c := b.value.Cmp(&other.value)
	if c != 0 {
		return c
	}
	if b.length < other.length {
		return -1
	}
	if b.length > other.length {
		return 1
	}
	return 0
}

// String renders the path as its literal bit string, e.g. "0110".
func (b BitArray) String() string {
	var sb strings.Builder
	sb.Grow(int(b.length))
	for i := 0; i < int(b.length); i++ {
		if b.BitAt(i) == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// BitAtHash returns bit i of a 32-byte hash (0 = MSB of byte 0).
func BitAtHash(hash Hash, i int) int {
	return int((hash[i/8] >> uint(7-i%8)) & 1)
}

// BitAtIndexWithinPath returns the bit of keyHash that selects the child
// at path — the bit immediately following path's own bits.
func BitAtIndexWithinPath(keyHash Hash, path BitArray) int {
	return BitAtHash(keyHash, path.Len())
}
