package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

// wireRequest is the request envelope every protocol endpoint receives
// (§6.1): a signed payload plus the client version that produced it. The
// payload is decoded as json.RawMessage first so its concrete shape can be
// resolved per endpoint without a generic net/http handler signature.
type wireRequest struct {
	SignedRequest crypto.SignedEnvelope[json.RawMessage] `json:"signed_request"`
	ClientVersion string                                 `json:"client_version"`
}

// decodeAndVerify reads a wireRequest from r's body, verifies its signature
// against the public key it carries, and unmarshals the signed payload into
// req. On success it returns that public key - the authenticated identity
// of the caller every handler downstream keys its store lookups on. On
// failure it writes the appropriate tagged error response itself and
// returns ok=false, so a handler's only job on a false return is to stop.
func decodeAndVerify(w http.ResponseWriter, r *http.Request, req any) (pk []byte, ok bool) {
	var wr wireRequest
	if err := json.NewDecoder(r.Body).Decode(&wr); err != nil {
		writeError(w, http.StatusBadRequest, wireError{Kind: "bad_request", Message: "malformed request body"})
		return nil, false
	}

	pubKey, err := crypto.DecodePublicKey(wr.SignedRequest.PublicKey)
	if err != nil {
		writeError(w, http.StatusUnauthorized, wireError{Kind: "invalid_auth", Message: "malformed public key"})
		return nil, false
	}

	if err := crypto.Verify(pubKey, wr.SignedRequest, 0, 0, time.Now()); err != nil {
		if errors.Is(err, crypto.ErrSignatureExpired) || errors.Is(err, crypto.ErrSignatureInTheFuture) {
			writeError(w, http.StatusUnauthorized, wireError{Kind: "expired_auth", Message: err.Error()})
		} else {
			writeError(w, http.StatusUnauthorized, wireError{Kind: "invalid_auth", Message: err.Error()})
		}
		return nil, false
	}

	if len(wr.SignedRequest.Value()) > 0 {
		if err := json.Unmarshal(wr.SignedRequest.Value(), req); err != nil {
			writeError(w, http.StatusBadRequest, wireError{Kind: "bad_request", Message: "malformed request payload"})
			return nil, false
		}
	}
	return wr.SignedRequest.PublicKey, true
}
