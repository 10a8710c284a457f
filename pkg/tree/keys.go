package tree

import (
	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

// Keychain decrypts and caches per-file symmetric keys (§3.4): walking the
// folder_access_key chain from root down for an ordinary file, or opening a
// user_access_keys entry for a share root (including the account's own
// root, which is always a share root of itself).
type Keychain struct {
	account crypto.KeyPair
	cache   map[uuid.UUID]crypto.AESKey
}

// NewKeychain returns a Keychain that decrypts keys on behalf of account,
// caching every key it derives.
func NewKeychain(account crypto.KeyPair) *Keychain {
	return &Keychain{account: account, cache: make(map[uuid.UUID]crypto.AESKey)}
}

// Forget drops a cached key, used after a rotation (e.g. unshare) so a
// stale key is never handed out again.
func (k *Keychain) Forget(id uuid.UUID) {
	delete(k.cache, id)
}

// Key returns id's symmetric key, deriving and caching it if necessary.
func (k *Keychain) Key(t TreeLike, id uuid.UUID) (crypto.AESKey, error) {
	if key, ok := k.cache[id]; ok {
		return key, nil
	}

	envelope, err := Find(t, id)
	if err != nil {
		return crypto.AESKey{}, err
	}
	f := envelope.Value()

	// A share root carries both a user_access_keys entry for this account
	// and (unless it's also the account root) a folder_access_key under
	// its owner's parent chain, which this account has no path to decrypt
	// since that chain lives in a tree it cannot see. Whenever this
	// account holds a share entry on id, that takes precedence over the
	// folder chain. The owner's only entry on their own files is the
	// self-addressed one CreateRoot puts on the root, which has no folder
	// chain, so this never shadows the owner's own folder-chain derivation.
	myPK := crypto.EncodePublicKey(k.account.Public)
	var key crypto.AESKey
	if _, shared := f.OwnerAccessKey(myPK); shared {
		key, err = k.keyFromShare(f)
		if err != nil {
			return crypto.AESKey{}, err
		}
	} else if f.FolderAccessKey != nil {
		parentKey, err := k.Key(t, f.Parent)
		if err != nil {
			return crypto.AESKey{}, err
		}
		plain, err := crypto.AESDecrypt(parentKey, *f.FolderAccessKey)
		if err != nil {
			return crypto.AESKey{}, newErr(ErrDecryptionFailed, id.String(), "decrypt folder access key: %v", err)
		}
		if len(plain) != len(key) {
			return crypto.AESKey{}, newErr(ErrDecryptionFailed, id.String(), "folder access key has wrong length")
		}
		copy(key[:], plain)
	} else {
		key, err = k.keyFromShare(f)
		if err != nil {
			return crypto.AESKey{}, err
		}
	}

	k.cache[id] = key
	return key, nil
}

func (k *Keychain) keyFromShare(f FileMetadata) (crypto.AESKey, error) {
	myPK := crypto.EncodePublicKey(k.account.Public)
	entry, ok := f.OwnerAccessKey(myPK)
	if !ok {
		return crypto.AESKey{}, newErr(ErrNotPermissioned, f.ID.String(), "no access key for this account")
	}

	sharerPK, err := crypto.DecodePublicKey(entry.EncryptedByPK)
	if err != nil {
		return crypto.AESKey{}, newErr(ErrDecryptionFailed, f.ID.String(), "decode sharer public key: %v", err)
	}
	wrapKey := crypto.SharedSecret(k.account.Private, sharerPK)

	plain, err := crypto.AESDecrypt(wrapKey, entry.EncryptedKey)
	if err != nil {
		return crypto.AESKey{}, newErr(ErrDecryptionFailed, f.ID.String(), "decrypt shared key: %v", err)
	}

	var key crypto.AESKey
	if len(plain) != len(key) {
		return crypto.AESKey{}, newErr(ErrDecryptionFailed, f.ID.String(), "shared key has wrong length")
	}
	copy(key[:], plain)
	return key, nil
}

// WrapKeyForRecipient encrypts key for recipientPK using the ECDH shared
// secret between sharerSK and recipientPK, the construction every
// user_access_keys entry uses (§3.4, §4.3.5 share).
func WrapKeyForRecipient(sharerSK *crypto.PrivateKey, recipientPK *crypto.PublicKey, key crypto.AESKey) (crypto.Ciphertext, error) {
	wrapKey := crypto.SharedSecret(sharerSK, recipientPK)
	return crypto.AESEncrypt(wrapKey, key[:])
}
