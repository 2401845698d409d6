package integrity

import (
	"crypto/sha512"
	"encoding/base64"
)

// Prefix identifies the digest algorithm in an integrity
// value.
const Prefix = "sha384-"

// Digest computes the integrity value for the given
// resource bytes: "sha384-" followed by the standard
// base64 encoding (with padding) of the SHA-384 sum.
func Digest(data []byte) string {
	sum := sha512.Sum384(data)

	return Prefix + base64.StdEncoding.EncodeToString(sum[:])
}
