package nfthash

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	nfterrors "github.com/tamirms/nfthash/errors"
)

// attrsEncMode encodes attributes canonically so a dump of the same
// expression always produces the same bytes.
var attrsEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("nfthash: failed to create CBOR enc mode: %v", err))
	}
	attrsEncMode = em
}

// MarshalAttrs encodes attributes as a CBOR map keyed by attribute number.
// Absent attributes are omitted.
func MarshalAttrs(a Attrs) ([]byte, error) {
	return attrsEncMode.Marshal(a)
}

// UnmarshalAttrs decodes attributes produced by MarshalAttrs. Unknown
// attribute numbers are ignored.
func UnmarshalAttrs(data []byte) (Attrs, error) {
	var a Attrs
	if err := cbor.Unmarshal(data, &a); err != nil {
		return Attrs{}, fmt.Errorf("%w: %w", nfterrors.ErrInvalidAttrs, err)
	}
	return a, nil
}
