// Package crypto implements the signed-envelope and key-derivation
// primitives every other Lockbook package builds on: secp256k1 keypairs,
// ECDH shared secrets, AES-GCM symmetric encryption, HMAC-SHA256, and the
// timestamped-signature envelope that makes any persisted record
// self-authenticating.
package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PrivateKey is a secp256k1 scalar. It is held only on the client and is
// serialized only inside an account export and the persisted account record.
type PrivateKey = secp256k1.PrivateKey

// PublicKey is a secp256k1 curve point, derived from a PrivateKey. Accounts
// are addressed by the compressed-SEC1 encoding of this key.
type PublicKey = secp256k1.PublicKey

// KeyPair bundles a private key and its derived public key, mirroring the
// pair every Account carries.
type KeyPair struct {
	Private *PrivateKey
	Public  *PublicKey
}

// GenerateKeyPair produces a fresh secp256k1 keypair using a
// cryptographically secure RNG.
func GenerateKeyPair() (KeyPair, error) {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("crypto: generate keypair: %w", err)
	}
	return KeyPair{Private: sk, Public: sk.PubKey()}, nil
}

// EncodePublicKey returns the 33-byte compressed-SEC1 encoding of pk. This
// is the canonical wire/storage representation used for the username
// directory and for comparing owners.
func EncodePublicKey(pk *PublicKey) []byte {
	return pk.SerializeCompressed()
}

// DecodePublicKey parses a compressed-SEC1-encoded public key.
func DecodePublicKey(b []byte) (*PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	return pk, nil
}

// EncodePrivateKey returns the 32-byte scalar encoding of sk, used by
// account export and by the account record pkg/clientdb persists; neither
// encrypts it.
func EncodePrivateKey(sk *PrivateKey) []byte {
	b := sk.Serialize()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// DecodePrivateKey parses a 32-byte scalar back into a PrivateKey.
func DecodePrivateKey(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, ErrInvalidKeyLength
	}
	sk := secp256k1.PrivKeyFromBytes(b)
	return sk, nil
}

// AESKey is a 256-bit symmetric key. Every file's content key, folder
// access key, and user access key gift is an AESKey.
type AESKey [32]byte

// SharedSecret derives the ECDH shared secret between sk and pk: the
// elliptic-curve scalar multiplication of pk by sk, SHA-256 of the shared
// point's affine X coordinate. This is the key used to wrap a root's
// symmetric key when gifting access to another user (§3.4, §4.1).
//
// Symmetric by construction: SharedSecret(a, B) == SharedSecret(b, A) for
// keypairs (a, A) and (b, B).
func SharedSecret(sk *PrivateKey, pk *PublicKey) AESKey {
	var point, result secp256k1.JacobianPoint
	pk.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(&sk.Key, &point, &result)
	result.ToAffine()

	x := result.X.Bytes()
	return sha256.Sum256(x[:])
}
