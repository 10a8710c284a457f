package docstore

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

// Store is the content-addressed document cache contract (§4.5). insert is
// idempotent: writing identical bytes to the same (id, hmac) is a no-op.
// Implementations must serialize concurrent writers on the same key while
// letting distinct keys proceed in parallel (§5).
type Store interface {
	Insert(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest, bytes []byte) error
	Get(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error)
	MaybeGet(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, bool, error)
	Delete(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) error
}

// Key identifies one document body. It is used as a map/lock-stripe key by
// implementations, and as the string form used by fsstore's path layout.
type Key struct {
	ID   uuid.UUID
	HMAC crypto.HMACDigest
}

// Hex returns the lowercase hex encoding of the HMAC, used as the leaf
// component of fsstore's and s3store's on-disk/object key layout.
func (k Key) Hex() string {
	return hex.EncodeToString(k.HMAC[:])
}
