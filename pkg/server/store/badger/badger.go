// Package badger is a durable store.Store backed by BadgerDB, grounded on
// the teacher's pkg/metadata/store/badger: the same prefixed-key namespace
// idiom (encoding.go), the same db.View/db.Update + txn.Get/item.Value CRUD
// shape (crud.go), and the same per-resource in-memory lock wrapping a
// transaction the teacher's locks.go uses for cross-call serialization that
// a single Badger transaction can't express on its own.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/server/store"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// Config mirrors the teacher's BadgerMetadataStoreConfig: just the handful
// of knobs a deployment actually tunes, decoded from YAML via mapstructure
// at the pkg/config layer.
type Config struct {
	Path       string `mapstructure:"path"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// Store is a durable, goroutine-safe store.Store.
type Store struct {
	db *badgerdb.DB

	mu         sync.Mutex
	ownerLocks map[string]*sync.Mutex
}

// Open creates or opens a BadgerDB database at cfg.Path. cfg.InMemory opens
// a throwaway in-memory Badger instance instead, useful for tests that want
// the real codec/iterator paths exercised without touching disk.
func Open(cfg Config) (*Store, error) {
	opts := badgerdb.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("server/store/badger: open %s: %w", cfg.Path, err)
	}
	return &Store{db: db, ownerLocks: make(map[string]*sync.Mutex)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateAccount(ctx context.Context, username string, pk []byte, rootID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyUsername(username)); err == nil {
			return &store.StoreError{Code: store.ErrAlreadyExists, Message: "username taken: " + username}
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(keyUsername(username), pk); err != nil {
			return err
		}
		idBytes, err := rootID.MarshalBinary()
		if err != nil {
			return err
		}
		return txn.Set(keyRoot(pk), idBytes)
	})
}

func (s *Store) PublicKey(ctx context.Context, username string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pk []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyUsername(username))
		if err == badgerdb.ErrKeyNotFound {
			return &store.StoreError{Code: store.ErrNotFound, Message: "no account for username: " + username}
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			pk = append([]byte{}, val...)
			return nil
		})
	})
	return pk, err
}

func (s *Store) RootID(ctx context.Context, pk []byte) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyRoot(pk))
		if err == badgerdb.ErrKeyNotFound {
			return &store.StoreError{Code: store.ErrNotFound, Message: "no account for public key"}
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return id.UnmarshalBinary(val)
		})
	})
	return id, err
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
	if err := ctx.Err(); err != nil {
		return tree.File{}, false, err
	}
	var f tree.File
	found := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyFile(owner, id))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		})
	})
	if err != nil {
		return tree.File{}, false, err
	}
	return f, found, nil
}

func (s *Store) All(ctx context.Context, owner []byte) ([]tree.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []tree.File
	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := keyFilePrefix(owner)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var f tree.File
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			}); err != nil {
				return err
			}
			out = append(out, f)
		}
		return nil
	})
	return out, err
}

func (s *Store) Since(ctx context.Context, owner []byte, sinceMs int64) ([]tree.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := s.All(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]tree.File, 0, len(files))
	err = s.db.View(func(txn *badgerdb.Txn) error {
		for _, f := range files {
			item, err := txn.Get(keyWrittenAt(owner, f.Value().ID))
			if err == badgerdb.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var writtenAt int64
			if err := item.Value(func(val []byte) error {
				writtenAt = decodeInt64(val)
				return nil
			}); err != nil {
				return err
			}
			if writtenAt >= sinceMs {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) Put(ctx context.Context, owner []byte, f tree.File, nowMs int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyFile(owner, f.Value().ID), data); err != nil {
			return err
		}
		return txn.Set(keyWrittenAt(owner, f.Value().ID), encodeInt64(nowMs))
	})
}

func (s *Store) UsedBytes(ctx context.Context, owner []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var used int64
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyUsage(owner))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			used = decodeInt64(val)
			return nil
		})
	})
	return used, err
}

func (s *Store) AddUsedBytes(ctx context.Context, owner []byte, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var newTotal int64
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		var used int64
		item, err := txn.Get(keyUsage(owner))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				used = decodeInt64(val)
				return nil
			}); err != nil {
				return err
			}
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}
		newTotal = used + delta
		return txn.Set(keyUsage(owner), encodeInt64(newTotal))
	})
	return newTotal, err
}

// WithOwnerLock serializes callers per owner the same way
// pkg/server/store/memory does: a single Badger transaction already
// guarantees internal atomicity, but pkg/server's validate-then-commit
// flow spans a View (build the overlay) and an Update (write every diff)
// separated by in-process validation work, which no single Badger
// transaction can wrap.
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

var _ store.Store = (*Store)(nil)
