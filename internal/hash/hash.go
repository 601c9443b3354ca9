// Package hash derives content-addressed cache keys for planning results.
// Analysis and optimization outputs are cached by the content of their
// inputs, so identical inputs always map to the same key and any change to a
// task set, edge set, or context produces a new one.
package hash

import (
	"encoding/hex"
	"strings"

	"lukechampine.com/blake3"
)

// Sum computes a BLAKE3 hash of the input and returns it as bytes.
func Sum(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

// SumHex computes a BLAKE3 hash and returns it as a hex string.
func SumHex(data []byte) string {
	return hex.EncodeToString(Sum(data))
}

// Signature computes a cache key for a kind and its ordered parts:
// blake3(kind + "\n" + parts joined by "\n"). Callers are responsible for
// passing parts in a stable order (sort ids before calling).
func Signature(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte('\n')
		b.WriteString(p)
	}
	return SumHex([]byte(b.String()))
}
