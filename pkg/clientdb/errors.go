package clientdb

import "errors"

// ErrRequiresClearing is returned by PerformMigration (and wrapped by
// GetState's callers) when the stored schema version is unrecognized or has
// no migration path to CurrentSchemaVersion. The caller must discard the
// local database and re-pull from the server.
var ErrRequiresClearing = errors.New("clientdb: local database requires clearing")
