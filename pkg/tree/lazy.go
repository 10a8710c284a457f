package tree

import "github.com/google/uuid"

// LazyTree wraps any TreeLike with memoized derivations (§4.3.4): deletion
// closure, decrypted names, children lists, and access mode. Every
// user-level operation (create/rename/move/delete/share) runs against a
// LazyTree so that repeated queries during one operation don't repeat
// decryption or tree walks. Caches are invalidated wholesale on any
// mutation made through the wrapper — they are a lifetime-of-one-operation
// optimization, not a cross-operation cache.
type LazyTree struct {
	Inner    TreeLikeMut
	Keychain *Keychain
	Owner    []byte // this tree's owning account's public key, for access_mode

	deleted  map[uuid.UUID]bool
	names    map[uuid.UUID]string
	children map[uuid.UUID][]uuid.UUID
	access   map[uuid.UUID]AccessMode
}

// NewLazyTree wraps inner for operations performed on behalf of owner,
// using keychain to decrypt symmetric keys.
func NewLazyTree(inner TreeLikeMut, keychain *Keychain, owner []byte) *LazyTree {
	return &LazyTree{Inner: inner, Keychain: keychain, Owner: owner}
}

func (lt *LazyTree) invalidate() {
	lt.deleted = nil
	lt.names = nil
	lt.children = nil
	lt.access = nil
}

func (lt *LazyTree) IDs() []uuid.UUID                    { return lt.Inner.IDs() }
func (lt *LazyTree) MaybeFind(id uuid.UUID) (File, bool) { return lt.Inner.MaybeFind(id) }

func (lt *LazyTree) Insert(f File) (File, bool) {
	defer lt.invalidate()
	return lt.Inner.Insert(f)
}

func (lt *LazyTree) Remove(id uuid.UUID) (File, bool) {
	defer lt.invalidate()
	return lt.Inner.Remove(id)
}

func (lt *LazyTree) Clear() {
	defer lt.invalidate()
	lt.Inner.Clear()
}

// Deleted reports whether id, or any ancestor of id, carries the tombstone
// bit — the deletion closure of §3.5 invariant 6.
func (lt *LazyTree) Deleted(id uuid.UUID) (bool, error) {
	if lt.deleted == nil {
		lt.deleted = make(map[uuid.UUID]bool)
	}
	if v, ok := lt.deleted[id]; ok {
		return v, nil
	}

	f, err := Find(lt.Inner, id)
	if err != nil {
		return false, err
	}
	m := f.Value()

	deleted := m.IsDeleted
	if !deleted && !m.IsRoot() {
		parentDeleted, err := lt.Deleted(m.Parent)
		if err != nil {
			return false, err
		}
		deleted = parentDeleted
	}

	lt.deleted[id] = deleted
	return deleted, nil
}

// Name returns the decrypted plaintext name of id.
func (lt *LazyTree) Name(id uuid.UUID) (string, error) {
	if lt.names == nil {
		lt.names = make(map[uuid.UUID]string)
	}
	if v, ok := lt.names[id]; ok {
		return v, nil
	}

	f, err := Find(lt.Inner, id)
	if err != nil {
		return "", err
	}
	m := f.Value()

	name := SecretFileName{EncryptedValue: m.EncryptedName, HMAC: m.NameHMAC}
	fileKey, err := lt.Keychain.Key(lt.Inner, id)
	if err != nil {
		return "", err
	}
	plain, err := name.Decrypt(fileKey)
	if err != nil {
		return "", err
	}

	lt.names[id] = plain
	return plain, nil
}

// Children returns the ids of every file whose parent is id.
func (lt *LazyTree) Children(id uuid.UUID) ([]uuid.UUID, error) {
	if lt.children == nil {
		childMap := make(map[uuid.UUID][]uuid.UUID)
		files, err := AllFiles(lt.Inner)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			m := f.Value()
			if m.ID == m.Parent {
				continue
			}
			childMap[m.Parent] = append(childMap[m.Parent], m.ID)
		}
		lt.children = childMap
	}
	return lt.children[id], nil
}

// AccessMode returns the best access level lt.Owner holds on id: Owner on
// everything under its own root, otherwise the mode granted by the nearest
// ancestor share root, or NoAccess.
func (lt *LazyTree) AccessMode(id uuid.UUID) (AccessMode, error) {
	if lt.access == nil {
		lt.access = make(map[uuid.UUID]AccessMode)
	}
	if v, ok := lt.access[id]; ok {
		return v, nil
	}

	f, err := Find(lt.Inner, id)
	if err != nil {
		return NoAccess, err
	}
	m := f.Value()

	if string(m.Owner) == string(lt.Owner) {
		lt.access[id] = Owner
		return Owner, nil
	}

	if entry, ok := m.OwnerAccessKey(lt.Owner); ok {
		lt.access[id] = entry.Mode
		return entry.Mode, nil
	}

	if m.IsRoot() {
		lt.access[id] = NoAccess
		return NoAccess, nil
	}

	mode, err := lt.AccessMode(m.Parent)
	if err != nil {
		return NoAccess, err
	}
	lt.access[id] = mode
	return mode, nil
}
