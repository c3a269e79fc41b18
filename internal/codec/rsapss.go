package codec

import (
	"crypto"
	"crypto/rsa"
	"math/big"
)

// RSAModulusSize is the fixed byte length of the owner modulus and the
// signature for ANS-104 signature type 1 (RSA-4096).
const RSAModulusSize = 512

// PublicExponent is the fixed RSA public exponent used by ANS-104
// signature type 1 (65537, "AQAB").
const PublicExponent = 65537

// PublicKeyFromModulus builds an rsa.PublicKey from a raw big-endian
// modulus, the way an ANS-104 owner field is carried on the wire. The
// fixed public exponent is always 65537.
func PublicKeyFromModulus(modulus []byte) *rsa.PublicKey {
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulus),
		E: PublicExponent,
	}
}

// VerifyPSS verifies an RSA-PSS-SHA256 signature over digest (the 48-byte
// deep-hash output) against the given owner modulus. Salt length equals
// the hash length, matching the Arweave ANS-104 signing convention. This
// delegates to crypto/rsa.VerifyPSS, which is constant-time with respect
// to the signature check.
func VerifyPSS(modulus, digest, signature []byte) error {
	pub := PublicKeyFromModulus(modulus)
	sum := sha256Sum(digest)
	return rsa.VerifyPSS(pub, crypto.SHA256, sum, signature, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
}

func sha256Sum(digest []byte) []byte {
	return SHA256(digest)
}
