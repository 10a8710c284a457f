package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/internal/telemetry"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/server"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// Handlers implements the protocol endpoints of §6.1 against a Server.
// Every handler's only auth is the request envelope's own signature -
// there is no session/cookie/JWT layer on this surface, by design (§3.2:
// every signed envelope is self-authenticating).
type Handlers struct {
	srv *server.Server
}

func NewHandlers(srv *server.Server) *Handlers {
	return &Handlers{srv: srv}
}

type newAccountRequest struct {
	Username string    `json:"username"`
	Root     tree.File `json:"root"`
}

type newAccountResponse struct {
	RootID uuid.UUID `json:"root_id"`
}

func (h *Handlers) NewAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.NewAccount")
	defer span.End()

	var req newAccountRequest
	pk, ok := decodeAndVerify(w, r, &req)
	if !ok {
		return
	}

	if err := h.srv.NewAccount(ctx, req.Username, pk, req.Root); err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, newAccountResponse{RootID: req.Root.Value().ID})
}

type getPublicKeyRequest struct {
	Username string `json:"username"`
}

type getPublicKeyResponse struct {
	PublicKey []byte `json:"public_key"`
}

func (h *Handlers) GetPublicKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.GetPublicKey")
	defer span.End()

	var req getPublicKeyRequest
	if _, ok := decodeAndVerify(w, r, &req); !ok {
		return
	}

	pk, err := h.srv.GetPublicKey(ctx, req.Username)
	if err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, getPublicKeyResponse{PublicKey: pk})
}

type getUpdatesRequest struct {
	SinceMs int64 `json:"since_ms"`
}

type getUpdatesResponse struct {
	Changes      []tree.File `json:"changes"`
	ServerTimeMs int64       `json:"server_time_ms"`
}

func (h *Handlers) GetUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.GetUpdates")
	defer span.End()

	var req getUpdatesRequest
	pk, ok := decodeAndVerify(w, r, &req)
	if !ok {
		return
	}

	changes, serverTimeMs, err := h.srv.GetUpdates(ctx, pk, req.SinceMs)
	if err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, getUpdatesResponse{Changes: changes, ServerTimeMs: serverTimeMs})
}

type wireDiff struct {
	Old *tree.File `json:"old,omitempty"`
	New tree.File  `json:"new"`
}

type upsertRequest struct {
	Diffs []wireDiff `json:"diffs"`
}

type upsertResponse struct{}

func (h *Handlers) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.Upsert")
	defer span.End()

	var req upsertRequest
	pk, ok := decodeAndVerify(w, r, &req)
	if !ok {
		return
	}

	diffs := make([]server.Diff, len(req.Diffs))
	for i, d := range req.Diffs {
		diffs[i] = server.Diff{Old: d.Old, New: d.New}
	}

	if err := h.srv.Upsert(ctx, pk, diffs); err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, upsertResponse{})
}

type changeDocRequest struct {
	ID   uuid.UUID         `json:"id"`
	HMAC crypto.HMACDigest `json:"hmac"`
	Data []byte            `json:"data"`
}

type changeDocResponse struct{}

func (h *Handlers) ChangeDoc(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.ChangeDoc")
	defer span.End()

	var req changeDocRequest
	pk, ok := decodeAndVerify(w, r, &req)
	if !ok {
		return
	}

	if err := h.srv.ChangeDoc(ctx, pk, req.ID, req.HMAC, req.Data); err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, changeDocResponse{})
}

type getDocRequest struct {
	ID   uuid.UUID         `json:"id"`
	HMAC crypto.HMACDigest `json:"hmac"`
}

type getDocResponse struct {
	Data []byte `json:"data"`
}

func (h *Handlers) GetDoc(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.GetDoc")
	defer span.End()

	var req getDocRequest
	if _, ok := decodeAndVerify(w, r, &req); !ok {
		return
	}

	data, err := h.srv.GetDoc(ctx, req.ID, req.HMAC)
	if err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, getDocResponse{Data: data})
}

type getUsageRequest struct{}

type getUsageResponse struct {
	UsedBytes int64 `json:"used_bytes"`
	CapBytes  int64 `json:"cap_bytes"`
}

func (h *Handlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "server.api.GetUsage")
	defer span.End()

	var req getUsageRequest
	pk, ok := decodeAndVerify(w, r, &req)
	if !ok {
		return
	}

	used, capBytes, err := h.srv.Usage(ctx, pk)
	if err != nil {
		telemetry.RecordError(ctx, err)
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, getUsageResponse{UsedBytes: used, CapBytes: capBytes})
}
