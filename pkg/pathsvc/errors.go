// Package pathsvc resolves Unix-style paths against a tree (§4.4):
// path_to_id, id_to_path, and create_at_path.
package pathsvc

import "errors"

// ErrPathNotFound is returned when a path segment does not resolve to any
// child of the current position.
var ErrPathNotFound = errors.New("pathsvc: no file at this path")

// ErrEmptyPath is returned for a path with no segments other than the
// leading slash.
var ErrEmptyPath = errors.New("pathsvc: path resolves to the root, which has no name to create")
