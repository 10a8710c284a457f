// Package store defines the authoritative per-owner persistence contract
// the validator in pkg/server is built on (§4.7, §6.2's server-side
// counterpart). It mirrors the teacher's pkg/metadata.MetadataStore split
// into Accounts/Tree/Usage facets, plus WithOwnerLock to serialize writers
// per owner; there is no batch transaction, so each Put lands on its own.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// ErrorCode categorizes a StoreError, mirroring tree.ErrorCode's closed-set
// idiom so callers can switch without string matching.
type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1
	ErrAlreadyExists
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// StoreError is the domain error type for this package.
type StoreError struct {
	Code    ErrorCode
	Message string
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %s", e.Code, e.Message) }

func newErr(code ErrorCode, format string, args ...any) *StoreError {
	return &StoreError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a *StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*StoreError)
	return ok && se.Code == code
}

// Accounts is the username/public-key registry (§4.1, §6.1 NewAccount /
// GetPublicKey). NO validation of username shape or public key encoding -
// callers are responsible.
type Accounts interface {
	// CreateAccount binds username to pk and records rootID as its root
	// file's id. Returns ErrAlreadyExists if username is already taken.
	CreateAccount(ctx context.Context, username string, pk []byte, rootID uuid.UUID) error

	// PublicKey looks up the public key bound to username. Returns
	// ErrNotFound if no such account exists.
	PublicKey(ctx context.Context, username string) ([]byte, error)

	// RootID looks up the root file id owned by pk. Returns ErrNotFound if
	// pk has no account.
	RootID(ctx context.Context, pk []byte) (uuid.UUID, error)
}

// Tree is raw per-owner metadata storage. NO validation and NO access
// checking - the validator in pkg/server is the only caller, and it is
// responsible for enforcing §4.7 before ever calling Put.
type Tree interface {
	// Get returns the current record for id, scoped to owner's tree.
	// Returns ErrNotFound if id does not exist under owner.
	Get(ctx context.Context, owner []byte, id uuid.UUID) (tree.File, error)

	// MaybeGet is Get without the not-found error.
	MaybeGet(ctx context.Context, owner []byte, id uuid.UUID) (tree.File, bool, error)

	// All returns every file owned by owner, unordered.
	All(ctx context.Context, owner []byte) ([]tree.File, error)

	// Since returns every file owned by owner last written at or after
	// sinceMs (server-clock milliseconds), for GetUpdates (§6.1).
	Since(ctx context.Context, owner []byte, sinceMs int64) ([]tree.File, error)

	// Put unconditionally stores f, stamped with the server-clock time
	// nowMs it landed at. Overwrites any existing record for the same id.
	Put(ctx context.Context, owner []byte, f tree.File, nowMs int64) error
}

// Usage tracks document ciphertext bytes held per owner, for the data cap
// check in §4.7.
type Usage interface {
	// UsedBytes returns the total document ciphertext bytes currently
	// charged to owner.
	UsedBytes(ctx context.Context, owner []byte) (int64, error)

	// AddUsedBytes adjusts owner's usage by delta (negative on document
	// deletion/overwrite-shrink), returning the new total.
	AddUsedBytes(ctx context.Context, owner []byte, delta int64) (int64, error)
}

// Store is the full persistence contract a pkg/server.Server is built
// against.
type Store interface {
	Accounts
	Tree
	Usage

	// WithOwnerLock runs fn while holding the single-writer lock for
	// owner's tree (§5: "the metadata DB ... is the sole mutation channel
	// for tree state; all writers hold a single-writer lock"), so that two
	// concurrent pushes from the same owner's devices cannot interleave
	// their CAS checks with their applies.
	WithOwnerLock(ctx context.Context, owner []byte, fn func(ctx context.Context) error) error
}
