// Package testutils holds small hex/byte helpers shared by the kv and jmt
// test suites, adapted from the teacher's own test helper package (which
// was oriented around big.Int tree indices; this one is oriented around
// 32-byte hashes and raw KV byte strings).
package testutils

import (
	"encoding/hex"
	"strings"
)

// HexToBytes converts a hex string to bytes, accepting an optional "0x"
// prefix and odd-length input (left-padded with a zero nibble).
func HexToBytes(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	return hex.DecodeString(hexStr)
}

// BytesToHex converts bytes to a "0x"-prefixed hex string.
func BytesToHex(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

// MustHexToBytes is HexToBytes for test fixtures where a malformed
// literal is a test-authoring bug, not a runtime condition to handle.
func MustHexToBytes(hexStr string) []byte {
	b, err := HexToBytes(hexStr)
	if err != nil {
		panic(err)
	}
	return b
}

// IsZeroHex reports whether a hex string represents an all-zero value.
func IsZeroHex(hexStr string) bool {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	for _, c := range hexStr {
		if c != '0' {
			return false
		}
	}
	return true
}
