// Package memstore is an in-memory docstore.Store, used for tests and for
// ephemeral clients.
package memstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
)

// stripes bounds the number of per-key locks held at once; keys hash into
// one of these to serialize same-key writers without serializing the
// whole store (§5).
const stripes = 64

type key struct {
	id   uuid.UUID
	hmac crypto.HMACDigest
}

// Store is a process-local, map-backed docstore.Store.
type Store struct {
	mu    sync.RWMutex
	docs  map[key][]byte
	locks [stripes]sync.Mutex
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[key][]byte)}
}

func (s *Store) stripe(k key) *sync.Mutex {
	h := k.hmac[0]
	return &s.locks[int(h)%stripes]
}

func (s *Store) Insert(_ context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	k := key{id: id, hmac: hmac}
	lock := s.stripe(k)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	existing, ok := s.docs[k]
	s.mu.RUnlock()
	if ok && bytes.Equal(existing, data) {
		return nil
	}

	s.mu.Lock()
	s.docs[k] = append([]byte(nil), data...)
	s.mu.Unlock()
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
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key{id: id, hmac: hmac}]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID, hmac crypto.HMACDigest) error {
	k := key{id: id, hmac: hmac}
	lock := s.stripe(k)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	delete(s.docs, k)
	s.mu.Unlock()
	return nil
}
