package syncer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// MetadataDiff is one entry of a push batch (§4.6.1 phase 5, §6.1 Upsert):
// the value the client last observed (nil if it believes the id is new)
// and the value it wants to set.
type MetadataDiff struct {
	Old *tree.File
	New tree.File
}

// Client is the server-facing port the reconciler drives. pkg/netclient
// implements this against the real wire protocol (§6.1); tests substitute
// an in-process fake or an httptest.Server-backed implementation.
type Client interface {
	// GetUpdates returns every metadata change observed since sinceMs, and
	// the server time to record as the new watermark.
	GetUpdates(ctx context.Context, sinceMs int64) (changes []tree.File, serverTimeMs int64, err error)

	// Upsert pushes a metadata diff batch. It must apply atomically
	// (§4.7): either every diff lands or the whole batch is rejected with
	// the CAS-mismatch sentinel ErrCASMismatch.
	Upsert(ctx context.Context, diffs []MetadataDiff) error

	// ChangeDoc uploads a document body, content-addressed by hmac.
	ChangeDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error

	// GetDoc downloads a document body by content address.
	GetDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error)
}

// ErrCASMismatch is returned by Client.Upsert when the server's CAS check
// failed on at least one diff in the batch (§4.6.5, §4.7 step 5).
var ErrCASMismatch = errors.New("syncer: server rejected push, CAS mismatch")

// ErrOutOfSpace is returned by Client.ChangeDoc or Client.Upsert when the
// push would exceed the account's data cap (§4.6.5, §4.7 usage check).
var ErrOutOfSpace = errors.New("syncer: account is over its data cap")
