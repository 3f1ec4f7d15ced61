// Package bits provides range reduction for 32-bit hashes.
package bits

// ReciprocalScale maps a 32-bit hash into [0, n) as (hash * n) >> 32.
// The result is proportional to the position of hash in [0, 2^32).
// n == 0 yields 0; callers that need a non-empty range validate n >= 1.
func ReciprocalScale(hash, n uint32) uint32 {
	return uint32((uint64(hash) * uint64(n)) >> 32)
}
