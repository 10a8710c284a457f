package lockbook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// ReadDocument decrypts and returns the current content of the document
// id. ErrNoDocumentContent is returned for a document that has never been
// written to (§3.3: document_hmac absent).
func (c *Core) ReadDocument(ctx context.Context, id uuid.UUID) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}
	return c.readDocumentLocked(ctx, id)
}

// readDocumentLocked is ReadDocument's body without the lock, for callers
// (TestRepoIntegrity) that already hold c.mu — sync.RWMutex's RLock is not
// safely re-entrant, so recursive locking must be avoided explicitly.
func (c *Core) readDocumentLocked(ctx context.Context, id uuid.UUID) ([]byte, error) {
	f, err := tree.Find(c.lt, id)
	if err != nil {
		return nil, err
	}
	m := f.Value()
	if m.DocumentHMAC == nil {
		return nil, ErrNoDocumentContent
	}

	raw, err := c.db.Docs().Get(ctx, id, *m.DocumentHMAC)
	if err != nil {
		return nil, fmt.Errorf("lockbook: read document: %w", err)
	}
	var ct crypto.Ciphertext
	if err := json.Unmarshal(raw, &ct); err != nil {
		return nil, fmt.Errorf("lockbook: read document: decode ciphertext: %w", err)
	}
	return tree.ReadDocument(c.lt, id, ct)
}

// WriteDocument encrypts content under id's file key, stores the
// ciphertext in the local document cache, and records the new
// document_hmac/document_size on the file's metadata.
func (c *Core) WriteDocument(ctx context.Context, id uuid.UUID, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}
	return c.writeDocumentLocked(ctx, id, content)
}

func (c *Core) writeDocumentLocked(ctx context.Context, id uuid.UUID, content []byte) error {
	ct, hmac, err := tree.WriteDocument(c.lt, id, content)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(ct)
	if err != nil {
		return fmt.Errorf("lockbook: write document: encode ciphertext: %w", err)
	}
	if err := c.db.Docs().Insert(ctx, id, hmac, raw); err != nil {
		return fmt.Errorf("lockbook: write document: %w", err)
	}

	if _, err := tree.UpdateDocument(c.lt, id, hmac, int64(len(content)), c.account.KeyPair, time.Now()); err != nil {
		return err
	}
	return c.persistLocal(ctx, id)
}

// SafeWrite writes content to id only if the document's current hmac still
// matches oldHMAC, guarding against clobbering a concurrent writer's edit
// (§4.5's optimistic-concurrency write).
func (c *Core) SafeWrite(ctx context.Context, id uuid.UUID, oldHMAC crypto.HMACDigest, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return err
	}

	f, err := tree.Find(c.lt, id)
	if err != nil {
		return err
	}
	m := f.Value()
	if m.DocumentHMAC == nil || *m.DocumentHMAC != oldHMAC {
		return ErrStaleHMAC
	}
	return c.writeDocumentLocked(ctx, id, content)
}
