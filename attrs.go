package nfthash

// Attribute numbers of the hash expression on the wire.
const (
	AttrSReg    = 1
	AttrDReg    = 2
	AttrLen     = 3
	AttrModulus = 4
	AttrSeed    = 5
	AttrOffset  = 6
	AttrType    = 7
	AttrSetName = 8
	AttrSetID   = 9
	AttrFunc    = 10
)

const (
	// maxLen is the largest content length; the length is a single byte.
	maxLen = 0xff

	// maxSetNameLen bounds set names.
	maxSetNameLen = 255
)

// Attrs holds the configuration attributes of a hash expression. A nil field
// means the attribute is absent. Attrs is the input of New and the output of
// (*Expr).Dump; MarshalAttrs and UnmarshalAttrs move it across the wire.
type Attrs struct {
	SReg    *Register    `cbor:"1,keyasint,omitempty"`
	DReg    *Register    `cbor:"2,keyasint,omitempty"`
	Len     *uint32      `cbor:"3,keyasint,omitempty"`
	Modulus *uint32      `cbor:"4,keyasint,omitempty"`
	Seed    *uint32      `cbor:"5,keyasint,omitempty"`
	Offset  *uint32      `cbor:"6,keyasint,omitempty"`
	Type    *HashType    `cbor:"7,keyasint,omitempty"`
	SetName *string      `cbor:"8,keyasint,omitempty"`
	SetID   *uint32      `cbor:"9,keyasint,omitempty"`
	Func    *ContentFunc `cbor:"10,keyasint,omitempty"`
}

// Ptr returns a pointer to v. It keeps Attrs literals short.
func Ptr[T any](v T) *T {
	return &v
}

// isMap reports whether the attributes name a set.
func (a *Attrs) isMap() bool {
	return a.SetName != nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
