package lockbook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// PendingShare describes a file another account has shared with this one
// that has not yet been accepted (linked into this account's own tree).
type PendingShare struct {
	ID   uuid.UUID
	Name string
	Mode tree.AccessMode
}

// ShareFile grants username mode-level access to id (§6.3 share_file). The
// recipient's public key is looked up from the server and cached for next
// time.
func (c *Core) ShareFile(ctx context.Context, id uuid.UUID, username string, mode tree.AccessMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}

	recipientPK, err := c.resolvePublicKey(ctx, username)
	if err != nil {
		return err
	}

	if _, err := tree.Share(c.lt, id, recipientPK, mode, c.account.KeyPair, time.Now()); err != nil {
		return err
	}
	return c.persistLocal(ctx, id)
}

func (c *Core) resolvePublicKey(ctx context.Context, username string) (*crypto.PublicKey, error) {
	if cached, found, err := c.db.LookupPublicKey(ctx, username); err == nil && found {
		if pk, err := crypto.DecodePublicKey(cached); err == nil {
			return pk, nil
		}
	}

	pk, err := c.client.GetPublicKey(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lockbook: look up public key for %q: %w", username, err)
	}
	_ = c.db.CachePublicKey(ctx, username, crypto.EncodePublicKey(pk))
	return pk, nil
}

// GetPendingShares returns every file shared with this account that has
// not yet been linked into this account's own tree, the recipient side of
// §4.3.5 share ("creates a Link on recipient's next sync" — materialized
// explicitly here rather than automatically, since accepting is a user
// decision).
func (c *Core) GetPendingShares(ctx context.Context) ([]PendingShare, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	myPK := c.account.PublicKey()
	linked := make(map[uuid.UUID]bool)
	for _, id := range c.lt.IDs() {
		f, err := tree.Find(c.lt, id)
		if err != nil {
			return nil, err
		}
		if f.Value().FileType == tree.LinkType {
			linked[f.Value().LinkTarget] = true
		}
	}

	var out []PendingShare
	for _, id := range c.lt.IDs() {
		f, err := tree.Find(c.lt, id)
		if err != nil {
			return nil, err
		}
		m := f.Value()
		if string(m.Owner) == string(myPK) {
			continue
		}
		entry, ok := m.OwnerAccessKey(myPK)
		if !ok || entry.Deleted {
			continue
		}
		if linked[id] {
			continue
		}
		dismissed, err := c.db.IsPendingShareDismissed(ctx, id)
		if err != nil {
			return nil, err
		}
		if dismissed {
			continue
		}

		name, err := c.lt.Name(id)
		if err != nil {
			return nil, err
		}
		out = append(out, PendingShare{ID: id, Name: name, Mode: entry.Mode})
	}
	return out, nil
}

// AcceptShare materializes a Link named name inside parent pointing at id,
// the "accepts" half of S6's share-acceptance scenario.
func (c *Core) AcceptShare(ctx context.Context, id, parent uuid.UUID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}

	linkID := uuid.New()
	if _, err := tree.CreateLink(c.lt, linkID, parent, id, name, c.account.KeyPair, time.Now()); err != nil {
		return err
	}
	return c.persistLocal(ctx, linkID)
}

// DeletePendingShare declines a pending share locally (§6.3
// delete_pending_share). Only the owner's signed record can ever remove
// the underlying user_access_keys entry, so this is recorded purely in the
// local database: GetPendingShares will no longer surface id.
func (c *Core) DeletePendingShare(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}
	return c.db.DismissPendingShare(ctx, id)
}
