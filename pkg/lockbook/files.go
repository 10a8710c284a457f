package lockbook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/pathsvc"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// Metadata is the decrypted, UI-facing view of one file: everything a
// caller needs to render a file listing without touching the tree or
// keychain directly.
type Metadata struct {
	ID       uuid.UUID
	Parent   uuid.UUID
	Name     string
	FileType tree.FileType
	Owner    []byte
	Deleted  bool
	Access   tree.AccessMode

	DocumentHMAC *crypto.HMACDigest
	DocumentSize int64
}

func (c *Core) describe(id uuid.UUID) (Metadata, error) {
	f, err := tree.Find(c.lt, id)
	if err != nil {
		return Metadata{}, err
	}
	m := f.Value()

	name, err := c.lt.Name(id)
	if err != nil {
		return Metadata{}, err
	}
	deleted, err := c.lt.Deleted(id)
	if err != nil {
		return Metadata{}, err
	}
	access, err := c.lt.AccessMode(id)
	if err != nil {
		return Metadata{}, err
	}

	var size int64
	if m.DocumentSize != nil {
		size = *m.DocumentSize
	}

	return Metadata{
		ID:           m.ID,
		Parent:       m.Parent,
		Name:         name,
		FileType:     m.FileType,
		Owner:        m.Owner,
		Deleted:      deleted,
		Access:       access,
		DocumentHMAC: m.DocumentHMAC,
		DocumentSize: size,
	}, nil
}

// GetRoot returns the account's root folder id.
func (c *Core) GetRoot(ctx context.Context) (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return uuid.Nil, err
	}
	return c.rootID, nil
}

// CreateFile creates a new file named name inside parent (§6.3
// create_file).
func (c *Core) CreateFile(ctx context.Context, name string, parent uuid.UUID, fileType tree.FileType) (Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return Metadata{}, err
	}

	id := uuid.New()
	if _, err := tree.Create(c.lt, id, parent, name, fileType, c.account.KeyPair, time.Now()); err != nil {
		return Metadata{}, err
	}
	if err := c.persistLocal(ctx, id); err != nil {
		return Metadata{}, err
	}
	return c.describe(id)
}

// RenameFile renames id (§6.3 rename_file).
func (c *Core) RenameFile(ctx context.Context, id uuid.UUID, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}
	if _, err := tree.Rename(c.lt, id, newName, c.account.KeyPair, time.Now()); err != nil {
		return err
	}
	return c.persistLocal(ctx, id)
}

// MoveFile re-parents id under newParent (§6.3 move_file).
func (c *Core) MoveFile(ctx context.Context, id, newParent uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}
	if _, err := tree.MoveFile(c.lt, id, newParent, c.account.KeyPair, time.Now()); err != nil {
		return err
	}
	return c.persistLocal(ctx, id)
}

// DeleteFile tombstones id (§6.3 delete_file).
func (c *Core) DeleteFile(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}
	if _, err := tree.Delete(c.lt, id, c.account.KeyPair, time.Now()); err != nil {
		return err
	}
	return c.persistLocal(ctx, id)
}

// GetFileByID returns the decrypted metadata of id.
func (c *Core) GetFileByID(ctx context.Context, id uuid.UUID) (Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return Metadata{}, err
	}
	return c.describe(id)
}

// GetChildren returns the decrypted metadata of every non-deleted direct
// child of id.
func (c *Core) GetChildren(ctx context.Context, id uuid.UUID) ([]Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	childIDs, err := c.lt.Children(id)
	if err != nil {
		return nil, err
	}
	out := make([]Metadata, 0, len(childIDs))
	for _, cid := range childIDs {
		deleted, err := c.lt.Deleted(cid)
		if err != nil {
			return nil, err
		}
		if deleted {
			continue
		}
		m, err := c.describe(cid)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetAndGetChildrenRecursively returns id and every non-deleted descendant
// of id.
func (c *Core) GetAndGetChildrenRecursively(ctx context.Context, id uuid.UUID) ([]Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	var out []Metadata
	var walk func(uuid.UUID) error
	walk = func(cur uuid.UUID) error {
		deleted, err := c.lt.Deleted(cur)
		if err != nil {
			return err
		}
		if deleted {
			return nil
		}
		m, err := c.describe(cur)
		if err != nil {
			return err
		}
		out = append(out, m)

		children, err := c.lt.Children(cur)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(id); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMetadatas returns every non-deleted file visible to this account.
func (c *Core) ListMetadatas(ctx context.Context) ([]Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	var out []Metadata
	for _, id := range c.lt.IDs() {
		deleted, err := c.lt.Deleted(id)
		if err != nil {
			return nil, err
		}
		if deleted {
			continue
		}
		m, err := c.describe(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetByPath resolves path (rooted at the account's root) to an id (§6.3
// get_by_path).
func (c *Core) GetByPath(ctx context.Context, path string) (uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return uuid.Nil, err
	}
	return pathsvc.PathToID(c.lt, path, c.rootID)
}

// GetPathByID returns id's path from the account's root.
func (c *Core) GetPathByID(ctx context.Context, id uuid.UUID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return "", err
	}
	return pathsvc.IDToPath(c.lt, id)
}

// CreateAtPath creates every missing intermediate folder of path and its
// terminal file (§6.3 create_file_at_path), returning the terminal id.
func (c *Core) CreateAtPath(ctx context.Context, path string) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return uuid.Nil, err
	}

	before := make(map[uuid.UUID]bool, len(c.lt.IDs()))
	for _, id := range c.lt.IDs() {
		before[id] = true
	}

	id, err := pathsvc.CreateAtPath(c.lt, path, c.rootID, c.account.KeyPair, time.Now())
	if err != nil {
		return uuid.Nil, err
	}

	for _, created := range c.lt.IDs() {
		if before[created] {
			continue
		}
		if err := c.persistLocal(ctx, created); err != nil {
			return uuid.Nil, err
		}
	}
	return id, nil
}

// ListPaths returns the path of every non-deleted file visible to this
// account.
func (c *Core) ListPaths(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	var out []string
	for _, id := range c.lt.IDs() {
		deleted, err := c.lt.Deleted(id)
		if err != nil {
			return nil, err
		}
		if deleted {
			continue
		}
		p, err := pathsvc.IDToPath(c.lt, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
