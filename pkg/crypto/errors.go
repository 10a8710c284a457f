package crypto

import "errors"

// Sentinel errors returned by the primitives in this package. Callers that
// need to distinguish failure modes (e.g. the sync reconciler deciding
// whether to retry with a fresher timestamp) should use errors.Is against
// these rather than string-matching.
var (
	// ErrWrongPublicKey is returned when a SignedEnvelope's embedded public
	// key does not match the key the caller expected to verify against.
	ErrWrongPublicKey = errors.New("crypto: wrong public key")

	// ErrSignatureInvalid is returned when the signature does not verify
	// against the embedded public key and payload.
	ErrSignatureInvalid = errors.New("crypto: signature invalid")

	// ErrSignatureExpired is returned when an envelope's timestamp is older
	// than now - maxDelay.
	ErrSignatureExpired = errors.New("crypto: signature expired")

	// ErrSignatureInTheFuture is returned when an envelope's timestamp is
	// newer than now + maxSkew.
	ErrSignatureInTheFuture = errors.New("crypto: signature in the future")

	// ErrDecryption is returned when AES-GCM authentication fails on open.
	ErrDecryption = errors.New("crypto: decryption failed")

	// ErrHMACMismatch is returned when a keyed-hash comparison fails.
	ErrHMACMismatch = errors.New("crypto: hmac verification failed")

	// ErrInvalidKeyLength is returned when a key of the wrong size is
	// supplied to a symmetric primitive.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length")
)
