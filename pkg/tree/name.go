package tree

import "github.com/lockbookapp/lockbook-core/pkg/crypto"

// SecretFileName bundles an encrypted filename with an HMAC computed under
// its parent's key (§4.2). Equality between two names is HMAC-only — the
// server and sibling clients can test for name collisions without ever
// decrypting either side.
type SecretFileName struct {
	EncryptedValue crypto.Ciphertext `json:"encrypted_value"`
	HMAC           crypto.HMACDigest `json:"hmac"`
}

// NewSecretFileName encrypts plaintext under fileKey and HMACs it under
// parentKey, the two keys every name construction requires.
func NewSecretFileName(plaintext string, fileKey, parentKey crypto.AESKey) (SecretFileName, error) {
	ct, err := crypto.AESEncrypt(fileKey, []byte(plaintext))
	if err != nil {
		return SecretFileName{}, err
	}
	return SecretFileName{
		EncryptedValue: ct,
		HMAC:           crypto.HMAC(parentKey, []byte(plaintext)),
	}, nil
}

// Decrypt recovers the plaintext name using the file's own key.
func (n SecretFileName) Decrypt(fileKey crypto.AESKey) (string, error) {
	b, err := crypto.AESDecrypt(fileKey, n.EncryptedValue)
	if err != nil {
		return "", newErr(ErrDecryptionFailed, "", "decrypt file name: %v", err)
	}
	return string(b), nil
}

// Verify decrypts the name with fileKey and re-HMACs it with parentKey,
// failing if the two keys disagree about what the plaintext is — catching
// a name ciphertext copied across a different key pair (cross-key forgery).
func (n SecretFileName) Verify(fileKey, parentKey crypto.AESKey) error {
	plain, err := n.Decrypt(fileKey)
	if err != nil {
		return err
	}
	if !crypto.VerifyHMAC(parentKey, []byte(plain), n.HMAC) {
		return newErr(ErrHMACMismatch, "", "name hmac does not match parent key")
	}
	return nil
}

// Equal reports whether two names are the same by comparing only their
// HMACs, never requiring decryption (§4.2).
func (n SecretFileName) Equal(other SecretFileName) bool {
	return n.HMAC == other.HMAC
}
