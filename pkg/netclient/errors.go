package netclient

import "fmt"

// ErrorKind categorizes a server response the way tree.ErrorCode does for
// tree-algebra errors (§7): a small closed set the reconciler and the
// lockbook façade can switch on without string matching, mirroring the wire
// protocol's tagged error shape (§6.1): `Endpoint(E) | ClientUpdateRequired
// | InvalidAuth | ExpiredAuth | InternalError | BadRequest`.
type ErrorKind int

const (
	// KindEndpoint wraps an endpoint-specific error code, e.g.
	// "RootNonexistent", "UsernameTaken", "UsageIsOverDataCap" (§7 State).
	KindEndpoint ErrorKind = iota + 1
	KindClientUpdateRequired
	KindInvalidAuth
	KindExpiredAuth
	KindInternalError
	KindBadRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindEndpoint:
		return "Endpoint"
	case KindClientUpdateRequired:
		return "ClientUpdateRequired"
	case KindInvalidAuth:
		return "InvalidAuth"
	case KindExpiredAuth:
		return "ExpiredAuth"
	case KindInternalError:
		return "InternalError"
	case KindBadRequest:
		return "BadRequest"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Error is the decoded form of a server's tagged error response. Code is
// only meaningful when Kind is KindEndpoint, carrying the endpoint-specific
// state name (e.g. "RootNonexistent").
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("netclient: %s(%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("netclient: %s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ne, ok := err.(*Error)
	return ok && ne.Kind == kind
}

// IsCode reports whether err is a KindEndpoint *Error carrying the given
// endpoint-specific code.
func IsCode(err error, code string) bool {
	ne, ok := err.(*Error)
	return ok && ne.Kind == KindEndpoint && ne.Code == code
}
