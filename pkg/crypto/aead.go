package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
)

// Ciphertext bundles an AES-GCM ciphertext with the nonce it was sealed
// under. Every encrypted name, folder access key, and document body in
// Lockbook is one of these.
type Ciphertext struct {
	Value []byte `json:"value"`
	Nonce []byte `json:"nonce"`
}

// GenerateAESKey produces a fresh random 256-bit symmetric key, used when
// creating a file (its own content key) or a share root.
func GenerateAESKey() (AESKey, error) {
	var k AESKey
	if _, err := rand.Read(k[:]); err != nil {
		return AESKey{}, fmt.Errorf("crypto: generate aes key: %w", err)
	}
	return k, nil
}

func newGCM(key AESKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// AESEncrypt seals plaintext under key with a freshly generated nonce.
func AESEncrypt(key AESKey, plaintext []byte) (Ciphertext, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Ciphertext{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Ciphertext{}, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return Ciphertext{Value: sealed, Nonce: nonce}, nil
}

// AESDecrypt opens ct under key, returning ErrDecryption on any
// authentication failure (wrong key, truncated ciphertext, tampering).
func AESDecrypt(key AESKey, ct Ciphertext) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, ct.Nonce, ct.Value, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// MarshalCiphertext encodes ct as the flat byte blob the document store
// and wire protocol carry a document body as.
func MarshalCiphertext(ct Ciphertext) ([]byte, error) {
	b, err := json.Marshal(ct)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal ciphertext: %w", err)
	}
	return b, nil
}

// UnmarshalCiphertext is the inverse of MarshalCiphertext.
func UnmarshalCiphertext(b []byte) (Ciphertext, error) {
	var ct Ciphertext
	if err := json.Unmarshal(b, &ct); err != nil {
		return Ciphertext{}, fmt.Errorf("crypto: unmarshal ciphertext: %w", err)
	}
	return ct, nil
}
