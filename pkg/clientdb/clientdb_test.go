package clientdb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbookapp/lockbook-core/pkg/account"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestAccount(t *testing.T) account.Account {
	t.Helper()
	acct, err := account.New("alice", "https://api.example.com")
	require.NoError(t, err)
	return acct
}

func newTestRoot(t *testing.T, acct account.Account) tree.File {
	t.Helper()
	base := tree.NewMapTree()
	owner := crypto.EncodePublicKey(acct.KeyPair.Public)
	lt := tree.NewLazyTree(base, tree.NewKeychain(acct.KeyPair), owner)
	root, err := tree.CreateRoot(lt, uuid.New(), acct.KeyPair, time.Now())
	require.NoError(t, err)
	return root
}

func TestGetStateOnFreshDatabaseIsEmptyAndStampsVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	state, err := db.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, Empty, state)

	data, found, err := db.getBytes(keySchemaVersion)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, CurrentSchemaVersion, string(data))
}

func TestGetStateAfterAccountCreationIsReadyToUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	state, err := db.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, Empty, state)

	require.NoError(t, db.PutAccount(ctx, newTestAccount(t)))

	state, err = db.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReadyToUse, state)
}

func TestGetStateWithUnknownVersionRequiresClearing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutAccount(ctx, newTestAccount(t)))
	require.NoError(t, db.setBytes(keySchemaVersion, []byte("0.1.0")))

	state, err := db.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRequiresClearing, state)
}

func TestGetStateWithMigratableVersionRequiresMigration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutAccount(ctx, newTestAccount(t)))
	require.NoError(t, db.setBytes(keySchemaVersion, []byte("0")))

	migrationSteps["0"] = CurrentSchemaVersion
	defer delete(migrationSteps, "0")

	state, err := db.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationRequired, state)

	require.NoError(t, db.PerformMigration(ctx))

	state, err = db.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReadyToUse, state)
}

func TestPerformMigrationWithNoPathReturnsRequiresClearing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.PutAccount(ctx, newTestAccount(t)))
	require.NoError(t, db.setBytes(keySchemaVersion, []byte("unknown")))

	err := db.PerformMigration(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequiresClearing)
}

func TestAccountRoundTripPreservesKeyMaterial(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	acct := newTestAccount(t)

	require.NoError(t, db.PutAccount(ctx, acct))

	got, found, err := db.GetAccount(ctx)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, acct.Username, got.Username)
	assert.Equal(t, acct.APIURL, got.APIURL)
	assert.Equal(t, crypto.EncodePrivateKey(acct.KeyPair.Private), crypto.EncodePrivateKey(got.KeyPair.Private))
	assert.Equal(t, crypto.EncodePublicKey(acct.KeyPair.Public), crypto.EncodePublicKey(got.KeyPair.Public))
}

func TestGetAccountOnEmptyDatabaseReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, found, err := db.GetAccount(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRootRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, db.PutRoot(ctx, id))

	got, found, err := db.GetRoot(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, got)
}

func TestLastSyncedDefaultsToZeroAndPersists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ts, err := db.GetLastSynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, ts)

	require.NoError(t, db.SetLastSynced(ctx, 12345))

	ts, err = db.GetLastSynced(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, ts)
}

func TestPublicKeyLookupRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, found, err := db.LookupPublicKey(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.CachePublicKey(ctx, "bob", []byte("bobs-pk")))

	pk, found, err := db.LookupPublicKey(ctx, "bob")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("bobs-pk"), pk)
}

func TestBaseAndLocalFileCRUDAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	acct := newTestAccount(t)
	root := newTestRoot(t, acct)
	id := root.Value().ID

	require.NoError(t, db.PutBaseFile(ctx, root))

	baseFiles, err := db.AllBaseFiles(ctx)
	require.NoError(t, err)
	require.Len(t, baseFiles, 1)
	assert.Equal(t, id, baseFiles[0].Value().ID)

	localFiles, err := db.AllLocalFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, localFiles)

	require.NoError(t, db.PutLocalFile(ctx, root))
	localFiles, err = db.AllLocalFiles(ctx)
	require.NoError(t, err)
	require.Len(t, localFiles, 1)

	require.NoError(t, db.DeleteBaseFile(ctx, id))
	baseFiles, err = db.AllBaseFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, baseFiles)

	localFiles, err = db.AllLocalFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, localFiles, 1)

	require.NoError(t, db.DeleteLocalFile(ctx, id))
	localFiles, err = db.AllLocalFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, localFiles)
}

func TestLoadBaseTreeAndLoadLocalTreeMaterializeMapTree(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	acct := newTestAccount(t)
	root := newTestRoot(t, acct)

	require.NoError(t, db.PutBaseFile(ctx, root))

	base, err := db.LoadBaseTree(ctx)
	require.NoError(t, err)
	ids := base.IDs()
	require.Len(t, ids, 1)
	assert.Equal(t, root.Value().ID, ids[0])

	local, err := db.LoadLocalTree(ctx)
	require.NoError(t, err)
	assert.Empty(t, local.IDs())
}

func TestDocsIsUsableImmediatelyAfterOpen(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	acct := newTestAccount(t)
	root := newTestRoot(t, acct)
	id := root.Value().ID

	content := []byte("hello lockbook")
	var key crypto.AESKey
	hmac := crypto.HMAC(key, content)

	require.NoError(t, db.Docs().Insert(ctx, id, hmac, content))

	got, err := db.Docs().Get(ctx, id, hmac)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
