// Package lockbook is the public API surface of §6.3: the Core type every
// UI (desktop, mobile, CLI) is built around. It wires together the
// persisted client state (pkg/clientdb), the encrypted tree algebra
// (pkg/tree), the sync reconciler (pkg/syncer), and the network client
// (pkg/netclient) behind a single-writer lock, grounded on the teacher's
// pseudo-filesystem facade pattern (internal/protocol/nfs/v4/pseudofs) of a
// mutex-guarded in-memory tree consulted by every operation.
package lockbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/account"
	"github.com/lockbookapp/lockbook-core/pkg/clientdb"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	"github.com/lockbookapp/lockbook-core/pkg/netclient"
	"github.com/lockbookapp/lockbook-core/pkg/syncer"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// apiClient is everything Core needs from the server beyond the sync
// reconciler's own syncer.Client surface: registering a new account and
// looking up a username's public key for sharing. *netclient.Client
// satisfies this structurally; tests substitute an in-process fake.
type apiClient interface {
	syncer.Client
	NewAccount(ctx context.Context, username string, root tree.File) (uuid.UUID, error)
	GetPublicKey(ctx context.Context, username string) (*crypto.PublicKey, error)
}

// Core is the façade every UI drives. Its in-memory tree is guarded by a
// single-writer RWMutex (§5): metadata mutations and structural reads take
// it, while a separate flag (guarded by syncMu) keeps at most one sync
// reconciler in flight at a time.
type Core struct {
	mu      sync.RWMutex
	syncMu  sync.Mutex
	syncing bool

	db       *clientdb.DB
	client   apiClient
	account  account.Account
	hasAcct  bool
	rootID   uuid.UUID
	deviceID string

	base     *tree.MapTree
	local    *tree.MapTree
	staged   *tree.StagedTree[*tree.MapTree, *tree.MapTree]
	keychain *tree.Keychain
	lt       *tree.LazyTree

	syncMetrics metrics.SyncMetrics
}

// SetSyncMetrics attaches a metrics.SyncMetrics to every subsequent Sync
// call. Pass nil (the default) to disable instrumentation.
func (c *Core) SetSyncMetrics(m metrics.SyncMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncMetrics = m
}

// Open opens (creating if absent) the client database at cfg and loads
// whatever account/tree state it holds. A database with no account yet
// still opens successfully: call CreateAccount or ImportAccount on the
// result before any file operation.
func Open(cfg clientdb.Config) (*Core, error) {
	db, err := clientdb.Open(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	state, err := db.GetState(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	switch state {
	case clientdb.MigrationRequired:
		if err := db.PerformMigration(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	case clientdb.StateRequiresClearing:
		_ = db.Close()
		return nil, ErrDatabaseRequiresClearing
	}

	c := &Core{db: db, deviceID: newDeviceID()}

	acct, found, err := db.GetAccount(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if !found {
		return c, nil
	}
	if err := c.loadAccount(ctx, acct); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the underlying database handle.
func (c *Core) Close() error {
	return c.db.Close()
}

// HasAccount reports whether this Core has a signed-in account.
func (c *Core) HasAccount() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasAcct
}

// Account returns the loaded account (§6.3 get_account). The second return
// value is false if no account has been created or imported yet.
func (c *Core) Account() (account.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasAcct {
		return account.Account{}, false
	}
	return c.account, true
}

func newDeviceID() string {
	return uuid.New().String()
}

// loadAccount wires c.client/account/rootID/base/local/lt from a persisted
// (or freshly created) account, and is the single path both Open and
// CreateAccount/ImportAccount use to bring a Core to a ready state.
func (c *Core) loadAccount(ctx context.Context, acct account.Account) error {
	c.account = acct
	c.hasAcct = true
	c.client = netclient.New(acct.APIURL, acct.KeyPair)

	rootID, _, err := c.db.GetRoot(ctx)
	if err != nil {
		return err
	}
	c.rootID = rootID

	base, err := c.db.LoadBaseTree(ctx)
	if err != nil {
		return err
	}
	local, err := c.db.LoadLocalTree(ctx)
	if err != nil {
		return err
	}
	c.base, c.local = base, local
	c.rebuild()
	return nil
}

// rebuild reconstructs the staged view, keychain, and lazy wrapper from
// c.base/c.local. Called whenever either tree is replaced wholesale (account
// load, post-sync promotion), never after an in-place Insert/Remove, which
// already keep c.lt's own caches consistent.
func (c *Core) rebuild() {
	c.staged = tree.NewStagedTree(c.base, c.local)
	c.keychain = tree.NewKeychain(c.account.KeyPair)
	c.lt = tree.NewLazyTree(c.staged, c.keychain, c.account.PublicKey())
}

// CreateAccount registers a brand new account with the server at apiURL and
// mints its root folder (§6.3 create_account).
func (c *Core) CreateAccount(ctx context.Context, username, apiURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasAcct {
		return ErrAccountExists
	}

	acct, err := account.New(username, apiURL)
	if err != nil {
		return err
	}

	base := tree.NewMapTree()
	keychain := tree.NewKeychain(acct.KeyPair)
	lt := tree.NewLazyTree(base, keychain, acct.PublicKey())
	root, err := tree.CreateRoot(lt, uuid.New(), acct.KeyPair, time.Now())
	if err != nil {
		return err
	}

	client := netclient.New(apiURL, acct.KeyPair)
	if _, err := client.NewAccount(ctx, username, root); err != nil {
		return fmt.Errorf("lockbook: create account: %w", err)
	}

	if err := c.db.PutAccount(ctx, acct); err != nil {
		return err
	}
	if err := c.db.PutRoot(ctx, root.Value().ID); err != nil {
		return err
	}
	if err := c.db.PutBaseFile(ctx, root); err != nil {
		return err
	}

	return c.loadAccount(ctx, acct)
}

// ImportAccount restores an account from an exported key string (§6.3
// import_account). No tree state is fetched here; the caller's first Sync
// pulls the account's full history from the server.
func (c *Core) ImportAccount(ctx context.Context, key, apiURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasAcct {
		return ErrAccountExists
	}

	acct, err := account.ImportKey(key, apiURL)
	if err != nil {
		return err
	}

	client := netclient.New(acct.APIURL, acct.KeyPair)
	pk, err := client.GetPublicKey(ctx, acct.Username)
	if err != nil {
		return fmt.Errorf("lockbook: import account: verify registration: %w", err)
	}
	if string(crypto.EncodePublicKey(pk)) != string(acct.PublicKey()) {
		return fmt.Errorf("lockbook: import account: server's public key for %q does not match the imported key", acct.Username)
	}

	if err := c.db.PutAccount(ctx, acct); err != nil {
		return err
	}
	return c.loadAccount(ctx, acct)
}

func (c *Core) requireAccount() error {
	if !c.hasAcct {
		return ErrNoAccount
	}
	return nil
}

// persistLocal writes id's current entry in c.local (or its absence) to
// clientdb, the write-through half of every mutating operation. id's staged
// form already lives in c.local by the time this is called — StagedTree's
// Insert/Remove act directly on the Staged layer it was built over, which
// rebuild() always sets to c.local.
func (c *Core) persistLocal(ctx context.Context, id uuid.UUID) error {
	if f, ok := c.local.MaybeFind(id); ok {
		return c.db.PutLocalFile(ctx, f)
	}
	return c.db.DeleteLocalFile(ctx, id)
}
