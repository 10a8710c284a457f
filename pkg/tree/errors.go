// Package tree implements the encrypted file metadata model and the
// layered tree algebra (§3.3-§3.7, §4.2-§4.3) every higher-level operation
// — path resolution, sync, server validation — is built on.
package tree

import "fmt"

// ErrorCode categorizes a TreeError the way StoreError's ErrorCode does for
// the teacher's metadata store: a small closed set upper layers can switch
// on without string matching.
type ErrorCode int

const (
	ErrFileNonexistent ErrorCode = iota + 1
	ErrParentNonexistent
	ErrParentIsDocument
	ErrTargetParentIsDocument
	ErrNameEmpty
	ErrNameContainsSlash
	ErrNameTooLong
	ErrDuplicateSiblingName
	ErrNotPermissioned
	ErrCannotRenameRoot
	ErrCannotMoveRoot
	ErrCannotDeleteRoot
	ErrCannotShareRoot
	ErrFolderMovedIntoItself
	ErrAlreadyShared
	ErrDecryptionFailed
	ErrHMACMismatch
	ErrLinkTargetNonexistent
	ErrValidationFailed
	ErrNotADocument
)

func (c ErrorCode) String() string {
	switch c {
	case ErrFileNonexistent:
		return "FileNonexistent"
	case ErrParentNonexistent:
		return "ParentNonexistent"
	case ErrParentIsDocument:
		return "ParentIsDocument"
	case ErrTargetParentIsDocument:
		return "TargetParentIsDocument"
	case ErrNameEmpty:
		return "NameEmpty"
	case ErrNameContainsSlash:
		return "NameContainsSlash"
	case ErrNameTooLong:
		return "NameTooLong"
	case ErrDuplicateSiblingName:
		return "DuplicateSiblingName"
	case ErrNotPermissioned:
		return "NotPermissioned"
	case ErrCannotRenameRoot:
		return "CannotRenameRoot"
	case ErrCannotMoveRoot:
		return "CannotMoveRoot"
	case ErrCannotDeleteRoot:
		return "CannotDeleteRoot"
	case ErrCannotShareRoot:
		return "CannotShareRoot"
	case ErrFolderMovedIntoItself:
		return "FolderMovedIntoItself"
	case ErrAlreadyShared:
		return "AlreadyShared"
	case ErrDecryptionFailed:
		return "DecryptionFailed"
	case ErrHMACMismatch:
		return "HMACMismatch"
	case ErrLinkTargetNonexistent:
		return "LinkTargetNonexistent"
	case ErrValidationFailed:
		return "ValidationFailed"
	case ErrNotADocument:
		return "NotADocument"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// TreeError is the domain error type for every tree-algebra and
// metadata-construction operation in this package.
type TreeError struct {
	Code    ErrorCode
	Message string
	FileID  string
}

func (e *TreeError) Error() string {
	if e.FileID != "" {
		return fmt.Sprintf("%s: %s (id: %s)", e.Code, e.Message, e.FileID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newErr(code ErrorCode, fileID, format string, args ...any) *TreeError {
	return &TreeError{Code: code, Message: fmt.Sprintf(format, args...), FileID: fileID}
}

// IsCode reports whether err is a *TreeError with the given code.
func IsCode(err error, code ErrorCode) bool {
	te, ok := err.(*TreeError)
	return ok && te.Code == code
}
