package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lockbookapp/lockbook-core/pkg/server"
)

// AdminHandlers exposes read-only operator endpoints, protected by
// AdminAuth rather than by the protocol's per-request signature - an
// operator inspects account/usage metadata, never decrypted content.
type AdminHandlers struct {
	srv *server.Server
}

func NewAdminHandlers(srv *server.Server) *AdminHandlers {
	return &AdminHandlers{srv: srv}
}

type adminUsageResponse struct {
	Username  string `json:"username"`
	UsedBytes int64  `json:"used_bytes"`
	CapBytes  int64  `json:"cap_bytes"`
}

// Usage reports an account's current storage usage, looked up by username
// rather than by public key since an operator doesn't carry key material.
func (h *AdminHandlers) Usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	pk, err := h.srv.GetPublicKey(ctx, username)
	if err != nil {
		writeServerError(w, err)
		return
	}
	used, capBytes, err := h.srv.Usage(ctx, pk)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeResult(w, http.StatusOK, adminUsageResponse{Username: username, UsedBytes: used, CapBytes: capBytes})
}
