package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// QueryHash is the deterministic identity of one resolution query: the
// circuit it runs against, the target wire, and any overrides applied first.
//
// Any change to these components MUST produce a different QueryHash; a
// matching hash means the cached value can be replayed without resolving.
type QueryHash string

// String returns the string representation of the QueryHash.
func (h QueryHash) String() string { return string(h) }

// ComputeQueryHash computes the QueryHash from the circuit identity, the
// target wire, and the override renderings ("wire=gate" in wire-file
// syntax).
//
// Determinism rules:
//   - Overrides are treated as a set for identity and thus sorted. Callers
//     must not pass two renderings for the same wire; plan validation
//     enforces this upstream.
//   - All fields and the override count are 8-byte big-endian
//     length-prefixed to avoid ambiguity.
func ComputeQueryHash(circuitHash string, target string, overrides []string) QueryHash {
	h := sha256.New()

	writeField := func(data []byte) {
		h.Write(be64(uint64(len(data))))
		h.Write(data)
	}

	writeField([]byte(circuitHash))
	writeField([]byte(target))

	sorted := make([]string, len(overrides))
	copy(sorted, overrides)
	sort.Strings(sorted)
	h.Write(be64(uint64(len(sorted))))
	for _, ov := range sorted {
		writeField([]byte(ov))
	}

	sum := h.Sum(nil)
	return QueryHash(hex.EncodeToString(sum))
}

func be64(n uint64) []byte {
	return []byte{
		byte(n >> 56),
		byte(n >> 48),
		byte(n >> 40),
		byte(n >> 32),
		byte(n >> 24),
		byte(n >> 16),
		byte(n >> 8),
		byte(n),
	}
}
