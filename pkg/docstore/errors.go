// Package docstore implements the content-addressed document cache of
// §4.5: a (id, hmac) → ciphertext mapping consulted by the sync reconciler
// to decide whether a document body needs upload or download.
package docstore

import "errors"

// ErrNotFound is returned by Get when the (id, hmac) pair is absent.
var ErrNotFound = errors.New("docstore: document not found")
