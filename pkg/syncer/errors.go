// Package syncer implements the pull/merge/repair/download/push/promote/
// prune reconciler that settles a client's Local staged tree against a
// server's Remote changes onto a new Base (§4.6).
package syncer

import "errors"

// ReReadRequired is returned after exhausting the bounded CAS-retry budget
// on push (§4.6.5): the caller should fully re-pull before trying again.
var ReReadRequired = errors.New("syncer: too many CAS conflicts, re-read required")

// ServerUnreachable wraps, with the Client's error text, every Client error
// other than ErrCASMismatch and ErrOutOfSpace: a failed connection as well
// as any error the server itself reported. Reconcile leaves its base and
// local inputs unchanged.
var ServerUnreachable = errors.New("syncer: server unreachable")

// ClientUpdateRequired names the server's rejection of this client's
// version. Reconcile does not return it: a Client error reporting that
// rejection is wrapped as ServerUnreachable like any other.
var ClientUpdateRequired = errors.New("syncer: client update required")

// OutOfSpace is returned when a push was rejected because it would exceed
// the account's data cap, after document uploads were attempted.
var OutOfSpace = errors.New("syncer: account is over its data cap")

// maxCASRetries bounds how many rounds Reconcile runs, the first one
// included, each starting from the pull phase, before a CAS race surfaces
// as ReReadRequired (§5).
const maxCASRetries = 3
