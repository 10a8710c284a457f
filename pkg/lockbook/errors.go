package lockbook

import "errors"

// ErrNoAccount is returned by any operation that needs a signed-in account
// before one has been created or imported into this Core.
var ErrNoAccount = errors.New("lockbook: no account; call CreateAccount or ImportAccount first")

// ErrAccountExists is returned by CreateAccount/ImportAccount when this Core
// already has an account persisted.
var ErrAccountExists = errors.New("lockbook: account already exists")

// ErrSyncInFlight is returned by Sync when another sync is already running
// on this Core (§5's single reconciler-in-flight rule).
var ErrSyncInFlight = errors.New("lockbook: a sync is already in progress")

// ErrNoDocumentContent is returned by ReadDocument when id has never had
// content written to it (document_hmac is unset).
var ErrNoDocumentContent = errors.New("lockbook: document has no content yet")

// ErrStaleHMAC is returned by SafeWrite when the caller's expected hmac does
// not match the document's current hmac, signalling a concurrent writer.
var ErrStaleHMAC = errors.New("lockbook: expected document hmac is stale")

// ErrDatabaseRequiresClearing surfaces clientdb.ErrRequiresClearing at the
// public API boundary: Open found a schema version with no migration path.
var ErrDatabaseRequiresClearing = errors.New("lockbook: local database requires clearing; re-import the account")
