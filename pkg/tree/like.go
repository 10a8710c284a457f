package tree

import "github.com/google/uuid"

// TreeLike is the minimal capability a layer of the tree stack (§3.7) must
// expose: an enumerable id set and lookup by id. Every other read-side
// helper in this package is built on just these two methods. The element
// type is File — the signed envelope, not the bare metadata — matching
// §3.7's "each layer is a mapping id → signed metadata".
type TreeLike interface {
	IDs() []uuid.UUID
	MaybeFind(id uuid.UUID) (File, bool)
}

// TreeLikeMut adds the write-side capability a staged layer needs.
type TreeLikeMut interface {
	TreeLike
	Insert(f File) (File, bool)
	Remove(id uuid.UUID) (File, bool)
	Clear()
}

// Find looks up id, failing with ErrFileNonexistent instead of a bare
// boolean when absent.
func Find(t TreeLike, id uuid.UUID) (File, error) {
	f, ok := t.MaybeFind(id)
	if !ok {
		return File{}, newErr(ErrFileNonexistent, id.String(), "file does not exist")
	}
	return f, nil
}

// MaybeFindParent looks up f's parent.
func MaybeFindParent(t TreeLike, f FileMetadata) (File, bool) {
	return t.MaybeFind(f.Parent)
}

// FindParent looks up f's parent, failing with ErrParentNonexistent.
func FindParent(t TreeLike, f FileMetadata) (File, error) {
	p, ok := MaybeFindParent(t, f)
	if !ok {
		return File{}, newErr(ErrParentNonexistent, f.Parent.String(), "parent does not exist")
	}
	return p, nil
}

// AllFiles materializes every file reachable through t.IDs().
func AllFiles(t TreeLike) ([]File, error) {
	ids := t.IDs()
	out := make([]File, 0, len(ids))
	for _, id := range ids {
		f, err := Find(t, id)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Children returns every file whose parent is id, excluding id itself (a
// root is its own parent and must not be reported as its own child).
func Children(t TreeLike, id uuid.UUID) ([]File, error) {
	files, err := AllFiles(t)
	if err != nil {
		return nil, err
	}
	var out []File
	for _, f := range files {
		m := f.Value()
		if m.Parent == id && m.ID != id {
			out = append(out, f)
		}
	}
	return out, nil
}

// MapTree is the simplest TreeLikeMut: an in-memory map keyed by id. It
// backs the Base and Local layers of the client's persisted tree and the
// server's authoritative tree.
type MapTree struct {
	files map[uuid.UUID]File
}

// NewMapTree constructs an empty MapTree.
func NewMapTree() *MapTree {
	return &MapTree{files: make(map[uuid.UUID]File)}
}

func (t *MapTree) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.files))
	for id := range t.files {
		ids = append(ids, id)
	}
	return ids
}

func (t *MapTree) MaybeFind(id uuid.UUID) (File, bool) {
	f, ok := t.files[id]
	return f, ok
}

func (t *MapTree) Insert(f File) (File, bool) {
	prev, ok := t.files[f.Value().ID]
	t.files[f.Value().ID] = f
	return prev, ok
}

func (t *MapTree) Remove(id uuid.UUID) (File, bool) {
	prev, ok := t.files[id]
	delete(t.files, id)
	return prev, ok
}

func (t *MapTree) Clear() {
	t.files = make(map[uuid.UUID]File)
}
