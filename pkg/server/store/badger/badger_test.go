package badger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/server/store"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// newTestStore opens an in-memory Badger instance so these tests exercise
// the real codec/iterator paths without touching disk, mirroring the
// teacher's own badger_conformance_test.go approach of running the same
// conformance suite against every MetadataStore backend.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func signedFile(t *testing.T, kp crypto.KeyPair, id uuid.UUID) tree.File {
	t.Helper()
	m := tree.FileMetadata{ID: id, Parent: id, FileType: tree.Folder, Owner: crypto.EncodePublicKey(kp.Public)}
	f, err := crypto.Sign(kp, m, time.Now())
	require.NoError(t, err)
	return f
}

func TestCreateAccountRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	pk := crypto.EncodePublicKey(kp.Public)

	require.NoError(t, s.CreateAccount(ctx, "alice", pk, uuid.New()))
	err = s.CreateAccount(ctx, "alice", pk, uuid.New())
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrAlreadyExists))
}

func TestPublicKeyAndRootIDLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	pk := crypto.EncodePublicKey(kp.Public)
	rootID := uuid.New()

	require.NoError(t, s.CreateAccount(ctx, "alice", pk, rootID))

	gotPK, err := s.PublicKey(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pk, gotPK)

	gotRoot, err := s.RootID(ctx, pk)
	require.NoError(t, err)
	assert.Equal(t, rootID, gotRoot)

	_, err = s.PublicKey(ctx, "bob")
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrNotFound))
}

func TestPutGetAndSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	owner := crypto.EncodePublicKey(kp.Public)

	f := signedFile(t, kp, uuid.New())
	require.NoError(t, s.Put(ctx, owner, f, 100))

	got, err := s.Get(ctx, owner, f.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, f.Value().ID, got.Value().ID)

	changes, err := s.Since(ctx, owner, 100)
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	changes, err = s.Since(ctx, owner, 101)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = s.Get(ctx, owner, uuid.New())
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrNotFound))
}

func TestAllListsEveryFileForOwnerOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	owner := crypto.EncodePublicKey(kp.Public)

	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherOwner := crypto.EncodePublicKey(other.Public)

	require.NoError(t, s.Put(ctx, owner, signedFile(t, kp, uuid.New()), 1))
	require.NoError(t, s.Put(ctx, owner, signedFile(t, kp, uuid.New()), 2))
	require.NoError(t, s.Put(ctx, otherOwner, signedFile(t, other, uuid.New()), 1))

	files, err := s.All(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestUsageAccumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := []byte("owner-key")

	total, err := s.AddUsedBytes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	total, err = s.AddUsedBytes(ctx, owner, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	used, err := s.UsedBytes(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(15), used)
}

func TestWithOwnerLockSerializesSameOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := []byte("owner-key")

	order := make(chan int, 2)
	done := make(chan struct{})
	go func() {
		_ = s.WithOwnerLock(ctx, owner, func(ctx context.Context) error {
			order <- 1
			<-done
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	go func() { close(done) }()

	require.NoError(t, s.WithOwnerLock(ctx, owner, func(ctx context.Context) error {
		order <- 2
		return nil
	}))

	assert.Equal(t, 1, <-order)
	assert.Equal(t, 2, <-order)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	owner := crypto.EncodePublicKey(kp.Public)

	s1, err := Open(Config{Path: dir})
	require.NoError(t, err)
	f := signedFile(t, kp, uuid.New())
	require.NoError(t, s1.Put(ctx, owner, f, 1))
	require.NoError(t, s1.Close())

	s2, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, err := s2.Get(ctx, owner, f.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, f.Value().ID, got.Value().ID)
}
