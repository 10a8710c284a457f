package tree

import (
	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

// WriteDocument encrypts plaintext under id's file key and returns the
// ciphertext plus the document_hmac to store in FileMetadata (§3.3:
// "Equals HMAC-SHA256 of the ciphertext document under the file's key").
func WriteDocument(lt *LazyTree, id uuid.UUID, plaintext []byte) (crypto.Ciphertext, crypto.HMACDigest, error) {
	key, err := lt.Keychain.Key(lt.Inner, id)
	if err != nil {
		return crypto.Ciphertext{}, crypto.HMACDigest{}, err
	}
	ct, err := crypto.AESEncrypt(key, plaintext)
	if err != nil {
		return crypto.Ciphertext{}, crypto.HMACDigest{}, err
	}
	return ct, DocumentHMAC(key, ct), nil
}

// ReadDocument decrypts a document's ciphertext using id's file key.
func ReadDocument(lt *LazyTree, id uuid.UUID, ct crypto.Ciphertext) ([]byte, error) {
	key, err := lt.Keychain.Key(lt.Inner, id)
	if err != nil {
		return nil, err
	}
	return crypto.AESDecrypt(key, ct)
}

// DocumentHMAC computes the document_hmac of a ciphertext under key: the
// HMAC-SHA256 of the nonce and ciphertext bytes together, so a changed
// nonce (a re-encryption of identical plaintext) is never mistaken for
// identical content.
func DocumentHMAC(key crypto.AESKey, ct crypto.Ciphertext) crypto.HMACDigest {
	return crypto.HMAC(key, append(append([]byte{}, ct.Nonce...), ct.Value...))
}
