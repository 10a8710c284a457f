package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HMACDigest is a keyed SHA-256 hash, used for sibling-name equality
// (§3.3, §4.2) and for content-addressing document bodies (§3.3
// document_hmac, §4.5).
type HMACDigest [32]byte

// HMAC computes the keyed hash of data under key.
func HMAC(key AESKey, data []byte) HMACDigest {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(data)
	var out HMACDigest
	copy(out[:], mac.Sum(nil))
	return out
}

// VerifyHMAC reports whether data hashes to want under key, using a
// constant-time comparison so that name/content equality checks never leak
// timing information about plaintext.
func VerifyHMAC(key AESKey, data []byte, want HMACDigest) bool {
	got := HMAC(key, data)
	return hmac.Equal(got[:], want[:])
}
