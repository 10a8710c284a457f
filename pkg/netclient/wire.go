package netclient

import (
	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// wireError is the tagged error shape of §6.1. The request/response
// envelope itself (signed_request/client_version, result/error) is built
// and parsed directly in client.go, since Go cannot express "unmarshal
// into whatever the caller's Resp type is" without either generics-in-
// methods (not allowed) or a raw json.RawMessage intermediate — client.go
// uses the latter.
type wireError struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (w *wireError) toError() *Error {
	e := &Error{Code: w.Code, Message: w.Message}
	switch w.Kind {
	case "client_update_required":
		e.Kind = KindClientUpdateRequired
	case "invalid_auth":
		e.Kind = KindInvalidAuth
	case "expired_auth":
		e.Kind = KindExpiredAuth
	case "internal_error":
		e.Kind = KindInternalError
	case "bad_request":
		e.Kind = KindBadRequest
	default:
		e.Kind = KindEndpoint
	}
	return e
}

// Per-endpoint request/response payloads (§6.1).

type newAccountRequest struct {
	Username string    `json:"username"`
	Root     tree.File `json:"root"`
}

type newAccountResponse struct {
	RootID uuid.UUID `json:"root_id"`
}

type getPublicKeyRequest struct {
	Username string `json:"username"`
}

type getPublicKeyResponse struct {
	PublicKey []byte `json:"public_key"`
}

type getUpdatesRequest struct {
	SinceMs int64 `json:"since_ms"`
}

type getUpdatesResponse struct {
	Changes      []tree.File `json:"changes"`
	ServerTimeMs int64       `json:"server_time_ms"`
}

// wireDiff mirrors syncer.MetadataDiff for the wire: Old is nil when the
// client believes id is new.
type wireDiff struct {
	Old *tree.File `json:"old,omitempty"`
	New tree.File  `json:"new"`
}

type upsertRequest struct {
	Diffs []wireDiff `json:"diffs"`
}

type upsertResponse struct{}

type changeDocRequest struct {
	ID   uuid.UUID         `json:"id"`
	HMAC crypto.HMACDigest `json:"hmac"`
	Data []byte            `json:"data"`
}

type changeDocResponse struct{}

type getDocRequest struct {
	ID   uuid.UUID         `json:"id"`
	HMAC crypto.HMACDigest `json:"hmac"`
}

type getDocResponse struct {
	Data []byte `json:"data"`
}

type getUsageRequest struct{}

type getUsageResponse struct {
	UsedBytes int64 `json:"used_bytes"`
	CapBytes  int64 `json:"cap_bytes"`
}
