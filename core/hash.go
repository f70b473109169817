package core

import (
	"encoding/hex"
	"sort"

	"github.com/go-crypt/x/blake2b"
)

// HashText computes a deterministic content hash of a text value using
// BLAKE2b-256. Identical content always produces an identical hash.
func HashText(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes computes the content hash of a raw byte payload.
func HashBytes(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashPairs computes a deterministic hash over a key/value map. Keys are
// sorted before hashing so map iteration order cannot change the result.
func HashPairs(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h, _ := blake2b.New(32, nil)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(pairs[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ContextFingerprint hashes a fragment context in its flattened form.
func ContextFingerprint(ctx *FragmentContext) string {
	return HashPairs(ctx.Flatten())
}
