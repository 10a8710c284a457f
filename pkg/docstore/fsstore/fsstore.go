// Package fsstore is a filesystem-backed docstore.Store, laying documents
// out as <root>/<id>/<hex(hmac)> (§6.2).
package fsstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
)

// Store is a directory-tree-backed implementation of docstore.Store.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a Store rooted at dir. The directory is created if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create root: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) path(id uuid.UUID, hmac crypto.HMACDigest) string {
	k := docstore.Key{ID: id, HMAC: hmac}
	return filepath.Join(s.root, id.String(), k.Hex())
}

func (s *Store) Insert(_ context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(id, hmac)
	if existing, err := os.ReadFile(p); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("fsstore: read existing: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("fsstore: mkdir: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("fsstore: write: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("fsstore: rename: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error) {
	data, ok, err := s.MaybeGet(ctx, id, hmac)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return data, nil
}

func (s *Store) MaybeGet(_ context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(id, hmac))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fsstore: read: %w", err)
	}
	return data, true, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID, hmac crypto.HMACDigest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id, hmac)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fsstore: remove: %w", err)
	}
	return nil
}

var _ docstore.Store = (*Store)(nil)
