package tree

import (
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes is the plaintext filename length, in bytes, at which a name
// is rejected (§4.3.5 NameTooLong); the longest accepted name is one byte
// shorter.
const MaxNameBytes = 256

func validateName(name string) error {
	if name == "" {
		return newErr(ErrNameEmpty, "", "file name must not be empty")
	}
	for _, r := range name {
		if r == '/' {
			return newErr(ErrNameContainsSlash, "", "file name must not contain '/'")
		}
	}
	if len(name) >= MaxNameBytes {
		return newErr(ErrNameTooLong, "", "file name must be shorter than %d bytes", MaxNameBytes)
	}
	return nil
}

// normalizeName NFC-normalizes a name for comparison/encryption, matching
// §4.4's "decrypted, NFC-normalized UTF-8" determinism requirement.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

func siblingNameCollision(lt *LazyTree, parent uuid.UUID, skip uuid.UUID, hmac crypto.HMACDigest) (bool, error) {
	children, err := lt.Children(parent)
	if err != nil {
		return false, err
	}
	for _, childID := range children {
		if childID == skip {
			continue
		}
		child, err := Find(lt.Inner, childID)
		if err != nil {
			return false, err
		}
		if child.Value().NameHMAC == hmac {
			return true, nil
		}
	}
	return false, nil
}

// CreateRoot mints a new account's root folder: its own parent, with no
// folder_access_key (absent on the root, §3.3) and a self-addressed
// user_access_keys entry so the owner derives the root key the same way
// any other share recipient would (§3.3's "including the user's own root").
func CreateRoot(lt *LazyTree, id uuid.UUID, actor crypto.KeyPair, now time.Time) (File, error) {
	rootKey, err := crypto.GenerateAESKey()
	if err != nil {
		return File{}, err
	}

	secretName, err := NewSecretFileName("root", rootKey, rootKey)
	if err != nil {
		return File{}, err
	}

	encryptedKey, err := WrapKeyForRecipient(actor.Private, actor.Public, rootKey)
	if err != nil {
		return File{}, err
	}

	meta := FileMetadata{
		ID:            id,
		Parent:        id,
		FileType:      Folder,
		EncryptedName: secretName.EncryptedValue,
		NameHMAC:      secretName.HMAC,
		Owner:         crypto.EncodePublicKey(actor.Public),
		UserAccessKeys: []UserAccessKey{{
			EncryptedByPK:  crypto.EncodePublicKey(actor.Public),
			EncryptedForPK: crypto.EncodePublicKey(actor.Public),
			EncryptedKey:   encryptedKey,
			Mode:           Owner,
		}},
	}

	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	lt.Keychain.cache[id] = rootKey
	return env, nil
}

// Create inserts a fresh file (§4.3.5 create). parent must exist and the
// actor must hold Write or better on it.
func Create(lt *LazyTree, id, parent uuid.UUID, name string, fileType FileType, actor crypto.KeyPair, now time.Time) (File, error) {
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return File{}, err
	}

	parentFile, err := Find(lt.Inner, parent)
	if err != nil {
		return File{}, newErr(ErrParentNonexistent, parent.String(), "parent does not exist")
	}
	if parentFile.Value().FileType == Document {
		return File{}, newErr(ErrParentIsDocument, parent.String(), "cannot create a child of a document")
	}

	mode, err := lt.AccessMode(parent)
	if err != nil {
		return File{}, err
	}
	if mode < Write {
		return File{}, newErr(ErrNotPermissioned, parent.String(), "actor lacks write access to parent")
	}

	parentKey, err := lt.Keychain.Key(lt.Inner, parent)
	if err != nil {
		return File{}, err
	}

	fileKey, err := crypto.GenerateAESKey()
	if err != nil {
		return File{}, err
	}

	secretName, err := NewSecretFileName(name, fileKey, parentKey)
	if err != nil {
		return File{}, err
	}

	collide, err := siblingNameCollision(lt, parent, id, secretName.HMAC)
	if err != nil {
		return File{}, err
	}
	if collide {
		return File{}, newErr(ErrDuplicateSiblingName, id.String(), "a sibling already has this name")
	}

	folderAccessKey, err := crypto.AESEncrypt(parentKey, fileKey[:])
	if err != nil {
		return File{}, err
	}

	meta := FileMetadata{
		ID:              id,
		Parent:          parent,
		FileType:        fileType,
		EncryptedName:   secretName.EncryptedValue,
		NameHMAC:        secretName.HMAC,
		Owner:           crypto.EncodePublicKey(actor.Public),
		FolderAccessKey: &folderAccessKey,
	}

	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	lt.Keychain.cache[id] = fileKey
	return env, nil
}

// Rename re-encrypts id's name under its (unchanged) key and re-HMACs it
// under its parent's key (§4.3.5 rename).
func Rename(lt *LazyTree, id uuid.UUID, newName string, actor crypto.KeyPair, now time.Time) (File, error) {
	newName = normalizeName(newName)
	if err := validateName(newName); err != nil {
		return File{}, err
	}

	envelope, err := Find(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	meta := envelope.Value()
	if meta.IsRoot() {
		return File{}, newErr(ErrCannotRenameRoot, id.String(), "cannot rename the root")
	}

	mode, err := lt.AccessMode(id)
	if err != nil {
		return File{}, err
	}
	if mode < Write {
		return File{}, newErr(ErrNotPermissioned, id.String(), "actor lacks write access")
	}

	fileKey, err := lt.Keychain.Key(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	parentKey, err := lt.Keychain.Key(lt.Inner, meta.Parent)
	if err != nil {
		return File{}, err
	}

	secretName, err := NewSecretFileName(newName, fileKey, parentKey)
	if err != nil {
		return File{}, err
	}

	collide, err := siblingNameCollision(lt, meta.Parent, id, secretName.HMAC)
	if err != nil {
		return File{}, err
	}
	if collide {
		return File{}, newErr(ErrDuplicateSiblingName, id.String(), "a sibling already has this name")
	}

	meta.EncryptedName = secretName.EncryptedValue
	meta.NameHMAC = secretName.HMAC

	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	return env, nil
}

// MoveFile re-parents id, re-encrypting its folder access key under the new
// parent's key and recomputing its name HMAC (§4.3.5 move_file).
func MoveFile(lt *LazyTree, id, newParent uuid.UUID, actor crypto.KeyPair, now time.Time) (File, error) {
	envelope, err := Find(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	meta := envelope.Value()
	if meta.IsRoot() {
		return File{}, newErr(ErrCannotMoveRoot, id.String(), "cannot move the root")
	}
	if newParent == id {
		return File{}, newErr(ErrFolderMovedIntoItself, id.String(), "cannot move a folder into itself")
	}

	newParentFile, err := Find(lt.Inner, newParent)
	if err != nil {
		return File{}, newErr(ErrParentNonexistent, newParent.String(), "new parent does not exist")
	}
	if newParentFile.Value().FileType == Document {
		return File{}, newErr(ErrTargetParentIsDocument, newParent.String(), "target parent is a document")
	}

	if descends(lt, newParent, id) {
		return File{}, newErr(ErrFolderMovedIntoItself, id.String(), "target parent is a descendant of the moved file")
	}

	oldMode, err := lt.AccessMode(id)
	if err != nil {
		return File{}, err
	}
	newMode, err := lt.AccessMode(newParent)
	if err != nil {
		return File{}, err
	}
	if oldMode < Write || newMode < Write {
		return File{}, newErr(ErrNotPermissioned, id.String(), "actor lacks write access to source or target parent")
	}

	fileKey, err := lt.Keychain.Key(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	name, err := lt.Name(id)
	if err != nil {
		return File{}, err
	}
	newParentKey, err := lt.Keychain.Key(lt.Inner, newParent)
	if err != nil {
		return File{}, err
	}

	secretName, err := NewSecretFileName(name, fileKey, newParentKey)
	if err != nil {
		return File{}, err
	}
	collide, err := siblingNameCollision(lt, newParent, id, secretName.HMAC)
	if err != nil {
		return File{}, err
	}
	if collide {
		return File{}, newErr(ErrDuplicateSiblingName, id.String(), "a sibling already has this name")
	}

	folderAccessKey, err := crypto.AESEncrypt(newParentKey, fileKey[:])
	if err != nil {
		return File{}, err
	}

	meta.Parent = newParent
	meta.EncryptedName = secretName.EncryptedValue
	meta.NameHMAC = secretName.HMAC
	meta.FolderAccessKey = &folderAccessKey

	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	return env, nil
}

// CreateLink materializes a Link pointing at target inside parent, the node
// a share recipient's own tree gains to reach a file shared with them
// (§4.3.5 share: "creates a Link on recipient's next sync"). A Link has its
// own name and folder access key under the recipient's tree exactly like an
// ordinary file; path resolution (pkg/pathsvc) transparently redirects
// through LinkTarget once the Link itself is found by name.
func CreateLink(lt *LazyTree, id, parent, target uuid.UUID, name string, actor crypto.KeyPair, now time.Time) (File, error) {
	env, err := Create(lt, id, parent, name, LinkType, actor, now)
	if err != nil {
		return File{}, err
	}
	meta := env.Value()
	meta.LinkTarget = target
	env, err = crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	return env, nil
}

// UpdateDocument records a new document_hmac/document_size on id after its
// content has been (re)encrypted and written to the document store (§4.5:
// "write-then-index" — callers must have already placed the new (id, hmac)
// entry in the document store before calling this).
func UpdateDocument(lt *LazyTree, id uuid.UUID, hmac crypto.HMACDigest, size int64, actor crypto.KeyPair, now time.Time) (File, error) {
	envelope, err := Find(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	meta := envelope.Value()
	if meta.FileType != Document {
		return File{}, newErr(ErrNotADocument, id.String(), "not a document")
	}

	mode, err := lt.AccessMode(id)
	if err != nil {
		return File{}, err
	}
	if mode < Write {
		return File{}, newErr(ErrNotPermissioned, id.String(), "actor lacks write access")
	}

	meta.DocumentHMAC = &hmac
	meta.DocumentSize = &size

	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	return env, nil
}

// descends reports whether candidate is id or a descendant of id.
func descends(lt *LazyTree, candidate, id uuid.UUID) bool {
	cur := candidate
	for {
		if cur == id {
			return true
		}
		f, ok := lt.MaybeFind(cur)
		if !ok {
			return false
		}
		m := f.Value()
		if m.IsRoot() {
			return false
		}
		cur = m.Parent
	}
}

// Delete flips id's tombstone bit (§4.3.5 delete). The deletion closure
// over descendants is derived by LazyTree.Deleted, never materialized.
func Delete(lt *LazyTree, id uuid.UUID, actor crypto.KeyPair, now time.Time) (File, error) {
	envelope, err := Find(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	meta := envelope.Value()
	if meta.IsRoot() {
		return File{}, newErr(ErrCannotDeleteRoot, id.String(), "cannot delete the root")
	}

	mode, err := lt.AccessMode(id)
	if err != nil {
		return File{}, err
	}
	if mode < Write {
		return File{}, newErr(ErrNotPermissioned, id.String(), "actor lacks write access")
	}

	meta.IsDeleted = true
	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	return env, nil
}

// Share grants recipientPK mode-level access to id (§4.3.5 share). The
// recipient materializes a Link to id in their own tree on their next sync
// — this function only mutates id's user_access_keys.
func Share(lt *LazyTree, id uuid.UUID, recipientPK *crypto.PublicKey, mode AccessMode, actor crypto.KeyPair, now time.Time) (File, error) {
	envelope, err := Find(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	meta := envelope.Value()
	if meta.IsRoot() {
		return File{}, newErr(ErrCannotShareRoot, id.String(), "cannot share the account root; share a subfolder instead")
	}

	actorMode, err := lt.AccessMode(id)
	if err != nil {
		return File{}, err
	}
	if actorMode < Owner {
		return File{}, newErr(ErrNotPermissioned, id.String(), "only the owner may share a file")
	}

	recipientBytes := crypto.EncodePublicKey(recipientPK)
	if _, ok := meta.OwnerAccessKey(recipientBytes); ok {
		return File{}, newErr(ErrAlreadyShared, id.String(), "already shared with this recipient")
	}

	fileKey, err := lt.Keychain.Key(lt.Inner, id)
	if err != nil {
		return File{}, err
	}
	encryptedKey, err := WrapKeyForRecipient(actor.Private, recipientPK, fileKey)
	if err != nil {
		return File{}, err
	}

	meta.UserAccessKeys = append(meta.UserAccessKeys, UserAccessKey{
		EncryptedByPK:  crypto.EncodePublicKey(actor.Public),
		EncryptedForPK: recipientBytes,
		EncryptedKey:   encryptedKey,
		Mode:           mode,
	})

	env, err := crypto.Sign(actor, meta, now)
	if err != nil {
		return File{}, err
	}
	lt.Insert(env)
	return env, nil
}
