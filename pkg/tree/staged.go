package tree

import "github.com/google/uuid"

// StagedTree composes a Base layer with a Staged layer on top (§4.3.3,
// §3.7). A value inserted into Staged that equals the Base version elides
// back to nothing, keeping the staged layer minimal; Remove tombstones an
// id so that a staged removal hides a Base entry even when Staged itself
// never held it.
type StagedTree[Base TreeLikeMut, Staged TreeLikeMut] struct {
	Base       Base
	Staged     Staged
	tombstones map[uuid.UUID]bool
}

// NewStagedTree builds a StagedTree over base/staged and prunes any staged
// entries that already equal their base counterpart.
func NewStagedTree[Base TreeLikeMut, Staged TreeLikeMut](base Base, staged Staged) *StagedTree[Base, Staged] {
	st := &StagedTree[Base, Staged]{Base: base, Staged: staged, tombstones: make(map[uuid.UUID]bool)}
	st.Prune()
	return st
}

func (t *StagedTree[Base, Staged]) IDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if t.tombstones[id] || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range t.Base.IDs() {
		add(id)
	}
	for _, id := range t.Staged.IDs() {
		add(id)
	}
	return out
}

func (t *StagedTree[Base, Staged]) MaybeFind(id uuid.UUID) (File, bool) {
	if t.tombstones[id] {
		return File{}, false
	}
	if f, ok := t.Staged.MaybeFind(id); ok {
		return f, true
	}
	return t.Base.MaybeFind(id)
}

// Insert stages f. If f is identical to the Base version it elides into a
// no-op instead (removing any stale staged entry), minimizing what Staged
// ever has to carry.
func (t *StagedTree[Base, Staged]) Insert(f File) (File, bool) {
	id := f.Value().ID
	prev, hadPrev := t.MaybeFind(id)
	delete(t.tombstones, id)

	if base, ok := t.Base.MaybeFind(id); ok && fileEqual(base, f) {
		t.Staged.Remove(id)
	} else {
		t.Staged.Insert(f)
	}
	return prev, hadPrev
}

// Remove tombstones id: it disappears from this StagedTree's view even if
// only Base ever held it.
func (t *StagedTree[Base, Staged]) Remove(id uuid.UUID) (File, bool) {
	prev, hadPrev := t.MaybeFind(id)
	t.Staged.Remove(id)
	t.tombstones[id] = true
	return prev, hadPrev
}

// Clear empties the staged layer and its tombstones, leaving Base
// untouched.
func (t *StagedTree[Base, Staged]) Clear() {
	t.Staged.Clear()
	t.tombstones = make(map[uuid.UUID]bool)
}

// Prune drops every staged entry that is identical to its base counterpart,
// the elision rule §4.3.3 specifies to keep the staged layer minimal.
func (t *StagedTree[Base, Staged]) Prune() {
	var prunable []uuid.UUID
	for _, id := range t.Staged.IDs() {
		staged, ok := t.Staged.MaybeFind(id)
		if !ok {
			continue
		}
		if base, ok := t.Base.MaybeFind(id); ok && fileEqual(base, staged) {
			prunable = append(prunable, id)
		}
	}
	for _, id := range prunable {
		t.Staged.Remove(id)
	}
}

// FileEqual reports whether two signed envelopes carry identical observable
// content, the same test Insert uses to elide a staged write against its
// base counterpart. Exported for callers outside this package (the syncer's
// merge phase) that need the same notion of "nothing actually changed".
func FileEqual(a, b File) bool {
	return fileEqual(a, b)
}

// fileEqual compares two signed envelopes by their full observable content:
// a staged entry elides into Base only when it is byte-for-byte the record
// Base already holds (e.g. a pull that returned nothing new), never merely
// when the decrypted fields happen to agree — two independent signings of
// the same content carry different timestamps and signatures.
func fileEqual(a, b File) bool {
	if a.Timestamp() != b.Timestamp() {
		return false
	}
	if string(a.Signature) != string(b.Signature) || string(a.PublicKey) != string(b.PublicKey) {
		return false
	}
	return metadataEqual(a.Value(), b.Value())
}

func metadataEqual(a, b FileMetadata) bool {
	if a.ID != b.ID || a.Parent != b.Parent || a.FileType != b.FileType ||
		a.IsDeleted != b.IsDeleted || a.NameHMAC != b.NameHMAC {
		return false
	}
	if (a.DocumentHMAC == nil) != (b.DocumentHMAC == nil) {
		return false
	}
	if a.DocumentHMAC != nil && *a.DocumentHMAC != *b.DocumentHMAC {
		return false
	}
	if len(a.UserAccessKeys) != len(b.UserAccessKeys) {
		return false
	}
	for i := range a.UserAccessKeys {
		if !userAccessKeyEqual(a.UserAccessKeys[i], b.UserAccessKeys[i]) {
			return false
		}
	}
	return true
}

func userAccessKeyEqual(a, b UserAccessKey) bool {
	return string(a.EncryptedByPK) == string(b.EncryptedByPK) &&
		string(a.EncryptedForPK) == string(b.EncryptedForPK) &&
		string(a.EncryptedKey.Value) == string(b.EncryptedKey.Value) &&
		string(a.EncryptedKey.Nonce) == string(b.EncryptedKey.Nonce) &&
		a.Mode == b.Mode && a.Deleted == b.Deleted
}
