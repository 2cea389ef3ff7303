package fingerprint

import (
	"fmt"
	"hash/fnv"
)

// Hash computes the 32-bit FNV-1a digest of text, rendered as fixed-width
// lowercase hex. The empty string hashes to the offset basis, "811c9dc5".
// Hashing walks the UTF-8 bytes, so the value is stable across platforms
// and process restarts.
func Hash(text string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("%08x", h.Sum32())
}
