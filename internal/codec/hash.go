package codec

import (
	"crypto/sha256"
	"crypto/sha512"
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// SHA384 returns the SHA-384 digest of data, used only by the deep-hash
// algorithm (spec §4.3).
func SHA384(data []byte) []byte {
	sum := sha512.Sum384(data)
	return sum[:]
}
