package pkgmap

import (
	"github.com/packmap/packmap/pkg/integrity"
)

// sealAlgorithm is the digest algorithm used to seal a persisted map against
// the lockfile bytes it was built from.
const sealAlgorithm = "sha256"

// Seal is an integrity value computed over canonical lockfile bytes. A
// persisted map is valid for a given lockfile iff its seal verifies against
// that lockfile's current bytes; the seal, not the map's own presence, is
// authoritative.
type Seal struct {
	LockfileIntegrity string `yaml:"lockfile_integrity"`
}

// computeSeal seals a set of canonical lockfile bytes.
func computeSeal(lockfileBytes []byte) (Seal, error) {
	digest, err := integrity.ComputeBytes(sealAlgorithm, lockfileBytes)
	if err != nil {
		return Seal{}, err
	}
	return Seal{LockfileIntegrity: digest.String()}, nil
}

// Verify reports whether lockfileBytes hash to the digest this seal was
// computed over. A malformed seal value never verifies.
func (s Seal) Verify(lockfileBytes []byte) bool {
	sealed, err := integrity.Parse(s.LockfileIntegrity)
	if err != nil {
		return false
	}
	actual, err := integrity.ComputeBytes(sealed.Algorithm(), lockfileBytes)
	if err != nil {
		return false
	}
	return actual.Equal(sealed)
}
