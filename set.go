package nfthash

// keyLen is the width of a map lookup key: the 32-bit expression result.
const keyLen = reg32Size

// Set is an associative set owned by the host.
//
// Lookup must be safe to call concurrently with other lookups and with the
// owner's own updates. The returned value holds at least ValueLen bytes and
// must not be modified by the caller.
type Set interface {
	Name() string
	ID() uint32
	KeyLen() int
	ValueLen() int
	Lookup(key []byte) ([]byte, bool)
}

// SetResolver resolves set references at construction time.
//
// AcquireSet looks a set up by name, falling back to id when id is non-zero
// and no set carries the name. Every successful AcquireSet is paired with
// exactly one ReleaseSet when the expression is destroyed or when
// construction fails after the set was acquired.
type SetResolver interface {
	AcquireSet(name string, id uint32) (Set, error)
	ReleaseSet(s Set)
}
