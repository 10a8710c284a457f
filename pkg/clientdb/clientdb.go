// Package clientdb is the per-account persisted client state of §6.2: the
// signed account record, root id, the Base/Local metadata mappings, the
// last-synced watermark, a cached username directory, and (via fsstore) the
// content-addressed document cache at docs/<id>/<hex(hmac)>. It is grounded
// on the teacher's badger-backed persistence idiom (pkg/metadata/store/badger,
// already adapted once for pkg/server/store/badger) applied to a
// single-account local store instead of a multi-tenant server tree.
package clientdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/account"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/fsstore"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

func tempDocsDir() (string, error) {
	dir, err := os.MkdirTemp("", "lockbook-clientdb-docs-*")
	if err != nil {
		return "", fmt.Errorf("clientdb: create temp docs dir: %w", err)
	}
	return dir, nil
}

// CurrentSchemaVersion is CORE_CODE_VERSION's Go-side counterpart (§6.2
// migrations): the on-disk shape this package's code reads and writes. Bump
// it and add a migrationStep whenever the shape changes.
const CurrentSchemaVersion = "1"

// Config points a DB at a directory: <dir>/state is the badger database,
// <dir>/docs is the fsstore document cache.
type Config struct {
	Dir      string
	InMemory bool
}

// DB is the on-disk state for one account.
type DB struct {
	badger *badgerdb.DB
	docs   *fsstore.Store
}

// Open opens (creating if absent) the client database at cfg.Dir.
func Open(cfg Config) (*DB, error) {
	opts := badgerdb.DefaultOptions(stateDir(cfg.Dir)).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("clientdb: open: %w", err)
	}

	docsDir := cfg.Dir + "/docs"
	if cfg.InMemory {
		// fsstore always touches disk; an in-memory clientdb (tests, or a
		// "try before you commit" preview) still gets a throwaway docs dir
		// under the OS temp directory rather than failing to open.
		docsDir, err = tempDocsDir()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	docs, err := fsstore.New(docsDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{badger: db, docs: docs}, nil
}

func stateDir(dir string) string {
	return dir + "/state"
}

// Close releases the underlying database handle.
func (db *DB) Close() error {
	return db.badger.Close()
}

// Docs returns the content-addressed document cache backing this account.
func (db *DB) Docs() docstore.Store {
	return db.docs
}

// ---- key-value primitives ----

func (db *DB) getBytes(key string) ([]byte, bool, error) {
	var val []byte
	found := false
	err := db.badger.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	return val, found, err
}

func (db *DB) setBytes(key string, val []byte) error {
	return db.badger.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

func (db *DB) deleteKey(key string) error {
	return db.badger.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// ---- schema state / migration ----
//
// Grounded on the original db_state_service.rs: a fresh database (no account
// yet) is stamped with the current schema version and reports Empty; an
// existing database compares its stamped version against
// CurrentSchemaVersion and is ReadyToUse, MigrationRequired (a path to
// current exists in migrationSteps), or StateRequiresClearing (no such
// path, or no version was ever stamped).

// State is the result of checking a database's on-disk schema version
// against the code's CurrentSchemaVersion, mirroring db_state_service.rs's
// State enum.
type State int

const (
	// Empty means no account has ever been created in this database; it has
	// just been stamped with CurrentSchemaVersion and is ready to use.
	Empty State = iota
	// ReadyToUse means the stored schema version already matches
	// CurrentSchemaVersion.
	ReadyToUse
	// MigrationRequired means the stored schema version is older than
	// CurrentSchemaVersion but a migration path to it exists; call
	// PerformMigration before using the database.
	MigrationRequired
	// StateRequiresClearing means the stored schema version is unrecognized
	// or has no migration path to CurrentSchemaVersion. The caller must
	// discard and recreate the local database (a fresh client re-pull from
	// the server never data-loses, since the server is authoritative).
	StateRequiresClearing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case ReadyToUse:
		return "ready_to_use"
	case MigrationRequired:
		return "migration_required"
	case StateRequiresClearing:
		return "requires_clearing"
	default:
		return "unknown"
	}
}

const keySchemaVersion = "schema_version"

// migrationSteps maps a stored schema version to the single next version a
// migration moves it to. Empty today because CurrentSchemaVersion is the
// only version that has ever shipped; a future schema change adds an entry
// here and a matching case in runMigrationStep.
var migrationSteps = map[string]string{}

// GetState reports whether db is ready to use, needs a migration, or has
// fallen off the end of the migration table and must be cleared. A fresh
// database (no account yet) is stamped with CurrentSchemaVersion and
// reported as Empty, matching db_state_service.rs's "no account yet"
// branch.
func (db *DB) GetState(ctx context.Context) (State, error) {
	_, hasAccount, err := db.GetAccount(ctx)
	if err != nil {
		return 0, err
	}
	if !hasAccount {
		if err := db.setBytes(keySchemaVersion, []byte(CurrentSchemaVersion)); err != nil {
			return 0, err
		}
		return Empty, nil
	}

	data, found, err := db.getBytes(keySchemaVersion)
	if err != nil {
		return 0, err
	}
	if !found {
		return StateRequiresClearing, nil
	}
	version := string(data)
	if version == CurrentSchemaVersion {
		return ReadyToUse, nil
	}
	if _, ok := migrationPath(version); ok {
		return MigrationRequired, nil
	}
	return StateRequiresClearing, nil
}

// migrationPath reports whether a chain of migrationSteps leads from from to
// CurrentSchemaVersion, returning the first hop of that chain.
func migrationPath(from string) (string, bool) {
	first, ok := migrationSteps[from]
	if !ok {
		return "", false
	}
	seen := map[string]bool{from: true}
	v := first
	for v != CurrentSchemaVersion {
		if seen[v] {
			return "", false // cycle in the migration table
		}
		seen[v] = true
		next, ok := migrationSteps[v]
		if !ok {
			return "", false
		}
		v = next
	}
	return first, true
}

// PerformMigration walks db's stored schema version forward one step at a
// time through migrationSteps until it reaches CurrentSchemaVersion. Each
// step is applied and persisted before the next is attempted, so a process
// that dies mid-migration resumes instead of redoing completed steps.
func (db *DB) PerformMigration(ctx context.Context) error {
	for {
		data, found, err := db.getBytes(keySchemaVersion)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("clientdb: perform migration: %w", ErrRequiresClearing)
		}
		version := string(data)
		if version == CurrentSchemaVersion {
			return nil
		}
		next, ok := migrationSteps[version]
		if !ok {
			return fmt.Errorf("clientdb: perform migration from %q: %w", version, ErrRequiresClearing)
		}
		if err := db.runMigrationStep(ctx, version, next); err != nil {
			return err
		}
		if err := db.setBytes(keySchemaVersion, []byte(next)); err != nil {
			return err
		}
	}
}

// runMigrationStep applies whatever data transformation moves the database
// from one schema version to the next. No versions have shipped past
// CurrentSchemaVersion yet, so this is a no-op switch waiting for its first
// case.
func (db *DB) runMigrationStep(_ context.Context, from, to string) error {
	switch from + "->" + to {
	default:
		return nil
	}
}

// ---- account / root ----

const (
	keyAccount = "account"
	keyRoot    = "root"
)

// PutAccount persists the signed account record (§6.2 "account: the signed
// account record (contains private key)").
func (db *DB) PutAccount(_ context.Context, acct account.Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("clientdb: encode account: %w", err)
	}
	return db.setBytes(keyAccount, data)
}

// GetAccount returns the persisted account, or ok=false if none has been
// stored yet (a fresh, empty database).
func (db *DB) GetAccount(_ context.Context) (account.Account, bool, error) {
	data, found, err := db.getBytes(keyAccount)
	if err != nil || !found {
		return account.Account{}, found, err
	}
	var acct account.Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return account.Account{}, false, fmt.Errorf("clientdb: decode account: %w", err)
	}
	return acct, true, nil
}

// PutRoot persists the user's root id.
func (db *DB) PutRoot(_ context.Context, id uuid.UUID) error {
	b, err := id.MarshalBinary()
	if err != nil {
		return err
	}
	return db.setBytes(keyRoot, b)
}

// GetRoot returns the persisted root id.
func (db *DB) GetRoot(_ context.Context) (uuid.UUID, bool, error) {
	data, found, err := db.getBytes(keyRoot)
	if err != nil || !found {
		return uuid.Nil, found, err
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(data); err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// ---- last_synced ----

const keyLastSynced = "last_synced"

// GetLastSynced returns the monotonic server-time watermark of the last
// successful sync, or 0 if the account has never synced.
func (db *DB) GetLastSynced(_ context.Context) (int64, error) {
	data, found, err := db.getBytes(keyLastSynced)
	if err != nil || !found {
		return 0, err
	}
	return decodeInt64(data), nil
}

// SetLastSynced persists the watermark after a successful sync.
func (db *DB) SetLastSynced(_ context.Context, serverTimeMs int64) error {
	return db.setBytes(keyLastSynced, encodeInt64(serverTimeMs))
}

// ---- public_key_lookup ----

// CachePublicKey remembers username's public key, so a later share-by-
// username doesn't require a round trip if the server was already asked
// once this session (§4.2 user access shares, §6.2 "public_key_lookup:
// cached directory").
func (db *DB) CachePublicKey(_ context.Context, username string, pk []byte) error {
	return db.setBytes(keyPublicKeyLookup(username), pk)
}

// LookupPublicKey returns a previously cached public key for username.
func (db *DB) LookupPublicKey(_ context.Context, username string) ([]byte, bool, error) {
	return db.getBytes(keyPublicKeyLookup(username))
}

func keyPublicKeyLookup(username string) string {
	return "pk_lookup:" + username
}

// ---- dismissed_shares ----

// DismissPendingShare records that the local user declined the pending
// share on id, so it no longer shows up in GetPendingShares even though the
// owner's signed user_access_keys entry (which only the owner may mutate)
// still lists this account.
func (db *DB) DismissPendingShare(_ context.Context, id uuid.UUID) error {
	return db.setBytes(keyDismissedShare(id), []byte{1})
}

// IsPendingShareDismissed reports whether id was previously passed to
// DismissPendingShare.
func (db *DB) IsPendingShareDismissed(_ context.Context, id uuid.UUID) (bool, error) {
	_, found, err := db.getBytes(keyDismissedShare(id))
	return found, err
}

func keyDismissedShare(id uuid.UUID) string {
	return "dismissed_share:" + id.String()
}

// ---- base_metadata / local_metadata ----

// PutBaseFile writes f into the Base mapping (§6.2 "base_metadata ...
// id -> signed metadata").
func (db *DB) PutBaseFile(ctx context.Context, f tree.File) error {
	return db.putFile(keyBase(f.Value().ID), f)
}

// DeleteBaseFile removes id from the Base mapping.
func (db *DB) DeleteBaseFile(_ context.Context, id uuid.UUID) error {
	return db.deleteKey(keyBase(id))
}

// AllBaseFiles returns every file currently in the Base mapping.
func (db *DB) AllBaseFiles(_ context.Context) ([]tree.File, error) {
	return db.allFiles(prefixBase)
}

// PutLocalFile writes f into the Local mapping.
func (db *DB) PutLocalFile(_ context.Context, f tree.File) error {
	return db.putFile(keyLocal(f.Value().ID), f)
}

// DeleteLocalFile removes id from the Local mapping.
func (db *DB) DeleteLocalFile(_ context.Context, id uuid.UUID) error {
	return db.deleteKey(keyLocal(id))
}

// AllLocalFiles returns every file currently in the Local mapping.
func (db *DB) AllLocalFiles(_ context.Context) ([]tree.File, error) {
	return db.allFiles(prefixLocal)
}

// LoadBaseTree builds an in-memory tree.MapTree from every persisted Base
// file, the way a Core loads state at startup.
func (db *DB) LoadBaseTree(ctx context.Context) (*tree.MapTree, error) {
	return db.loadTree(ctx, db.AllBaseFiles)
}

// LoadLocalTree builds an in-memory tree.MapTree from every persisted Local
// file.
func (db *DB) LoadLocalTree(ctx context.Context) (*tree.MapTree, error) {
	return db.loadTree(ctx, db.AllLocalFiles)
}

func (db *DB) loadTree(ctx context.Context, all func(context.Context) ([]tree.File, error)) (*tree.MapTree, error) {
	files, err := all(ctx)
	if err != nil {
		return nil, err
	}
	t := tree.NewMapTree()
	for _, f := range files {
		t.Insert(f)
	}
	return t, nil
}

const (
	prefixBase  = "base:"
	prefixLocal = "local:"
)

func keyBase(id uuid.UUID) string  { return prefixBase + id.String() }
func keyLocal(id uuid.UUID) string { return prefixLocal + id.String() }

func (db *DB) putFile(key string, f tree.File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("clientdb: encode file: %w", err)
	}
	return db.setBytes(key, data)
}

func (db *DB) allFiles(prefix string) ([]tree.File, error) {
	var out []tree.File
	err := db.badger.View(func(txn *badgerdb.Txn) error {
		p := []byte(prefix)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
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

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
