// Package memory is an in-process store.Store, grounded on pkg/tree.MapTree
// ("the simplest TreeLikeMut ... backs ... the server's authoritative
// tree") plus a handful of maps for the account registry and usage
// counters. It is the default backing for tests and for a single-process
// server deployment; pkg/server/store/badger provides a durable one.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/server/store"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// Store is a goroutine-safe in-memory store.Store.
type Store struct {
	mu sync.Mutex

	usernameToPK map[string][]byte
	pkToRoot     map[string]uuid.UUID
	trees        map[string]*tree.MapTree
	writtenAtMs  map[string]map[uuid.UUID]int64
	usage        map[string]int64

	ownerLocks map[string]*sync.Mutex
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		usernameToPK: make(map[string][]byte),
		pkToRoot:     make(map[string]uuid.UUID),
		trees:        make(map[string]*tree.MapTree),
		writtenAtMs:  make(map[string]map[uuid.UUID]int64),
		usage:        make(map[string]int64),
		ownerLocks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) ownerTree(owner []byte) *tree.MapTree {
	key := string(owner)
	t, ok := s.trees[key]
	if !ok {
		t = tree.NewMapTree()
		s.trees[key] = t
		s.writtenAtMs[key] = make(map[uuid.UUID]int64)
	}
	return t
}

func (s *Store) CreateAccount(ctx context.Context, username string, pk []byte, rootID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernameToPK[username]; ok {
		return &store.StoreError{Code: store.ErrAlreadyExists, Message: "username taken: " + username}
	}
	s.usernameToPK[username] = pk
	s.pkToRoot[string(pk)] = rootID
	return nil
}

func (s *Store) PublicKey(ctx context.Context, username string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pk, ok := s.usernameToPK[username]
	if !ok {
		return nil, &store.StoreError{Code: store.ErrNotFound, Message: "no account for username: " + username}
	}
	return pk, nil
}

func (s *Store) RootID(ctx context.Context, pk []byte) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.pkToRoot[string(pk)]
	if !ok {
		return uuid.Nil, &store.StoreError{Code: store.ErrNotFound, Message: "no account for public key"}
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, owner []byte, id uuid.UUID) (tree.File, error) {
	f, ok, err := s.MaybeGet(ctx, owner, id)
	if err != nil {
		return tree.File{}, err
	}
	if !ok {
		return tree.File{}, &store.StoreError{Code: store.ErrNotFound, Message: "file does not exist: " + id.String()}
	}
	return f, nil
}

func (s *Store) MaybeGet(ctx context.Context, owner []byte, id uuid.UUID) (tree.File, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ownerTree(owner).MaybeFind(id)
}

func (s *Store) All(ctx context.Context, owner []byte) ([]tree.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return tree.AllFiles(s.ownerTree(owner))
}

func (s *Store) Since(ctx context.Context, owner []byte, sinceMs int64) ([]tree.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ownerTree(owner)
	writtenAt := s.writtenAtMs[string(owner)]

	files, err := tree.AllFiles(t)
	if err != nil {
		return nil, err
	}
	out := make([]tree.File, 0, len(files))
	for _, f := range files {
		if writtenAt[f.Value().ID] >= sinceMs {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, owner []byte, f tree.File, nowMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ownerTree(owner).Insert(f)
	s.writtenAtMs[string(owner)][f.Value().ID] = nowMs
	return nil
}

func (s *Store) UsedBytes(ctx context.Context, owner []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.usage[string(owner)], nil
}

func (s *Store) AddUsedBytes(ctx context.Context, owner []byte, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(owner)
	s.usage[key] += delta
	return s.usage[key], nil
}

// WithOwnerLock serializes callers per-owner, mirroring the single-writer
// lock §5 requires over the metadata DB, without serializing unrelated
// owners against each other.
func (s *Store) WithOwnerLock(ctx context.Context, owner []byte, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	key := string(owner)
	lock, ok := s.ownerLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.ownerLocks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}
