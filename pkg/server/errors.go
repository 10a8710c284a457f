package server

import "fmt"

// ErrorCode is the closed set of semantic rejections the validator can
// produce (§4.7, §7 State/Access). It is the server-side counterpart of
// netclient.ErrorKind/Code: pkg/server/api translates a *Error into the
// wire's tagged error shape, naming Code after these exact identifiers.
type ErrorCode int

const (
	ErrDiffMalformed ErrorCode = iota + 1
	ErrRootModificationInvalid
	ErrHmacModificationInvalid
	ErrOldVersionIncorrect
	ErrOldVersionRequired
	ErrNotPermissioned
	ErrDeletedFileUpdated
	ErrValidationFailed
	ErrUsageIsOverDataCap
	ErrRootNonexistent
	ErrAccountNonexistent
	ErrUsernameTaken
)

func (c ErrorCode) String() string {
	switch c {
	case ErrDiffMalformed:
		return "DiffMalformed"
	case ErrRootModificationInvalid:
		return "RootModificationInvalid"
	case ErrHmacModificationInvalid:
		return "HmacModificationInvalid"
	case ErrOldVersionIncorrect:
		return "OldVersionIncorrect"
	case ErrOldVersionRequired:
		return "OldVersionRequired"
	case ErrNotPermissioned:
		return "NotPermissioned"
	case ErrDeletedFileUpdated:
		return "DeletedFileUpdated"
	case ErrValidationFailed:
		return "ValidationFailed"
	case ErrUsageIsOverDataCap:
		return "UsageIsOverDataCap"
	case ErrRootNonexistent:
		return "RootNonexistent"
	case ErrAccountNonexistent:
		return "AccountNonexistent"
	case ErrUsernameTaken:
		return "UsernameTaken"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error is the validator's domain error type, the server-side analog of
// tree.TreeError.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("server: %s: %s", e.Code, e.Message) }

func newErr(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*Error)
	return ok && se.Code == code
}
