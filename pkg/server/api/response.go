package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lockbookapp/lockbook-core/internal/logger"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/server"
	"github.com/lockbookapp/lockbook-core/pkg/server/store"
)

// wireError is the tagged error shape of §6.1, the server's side of
// netclient's wireError. The two are independently defined rather than
// shared, the way this codebase's client and server sides already treat
// every other wire type (pkg/netclient's wire.go vs. this package's
// handlers.go).
type wireError struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Result any `json:"result"`
	}{Result: result})
}

func writeError(w http.ResponseWriter, status int, e wireError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error wireError `json:"error"`
	}{Error: e})
}

// writeServerError translates a Server/store error into the wire's tagged
// shape and an appropriate HTTP status, logging anything that isn't one of
// the known domain errors as a defect (§7 Unexpected: "never causes silent
// corruption").
func writeServerError(w http.ResponseWriter, err error) {
	if se, ok := err.(*server.Error); ok {
		status := http.StatusBadRequest
		switch se.Code {
		case server.ErrNotPermissioned:
			status = http.StatusForbidden
		case server.ErrUsageIsOverDataCap:
			status = http.StatusForbidden
		case server.ErrRootNonexistent, server.ErrAccountNonexistent:
			status = http.StatusNotFound
		case server.ErrUsernameTaken, server.ErrOldVersionIncorrect, server.ErrOldVersionRequired:
			status = http.StatusConflict
		}
		writeError(w, status, wireError{Kind: "endpoint", Code: se.Code.String(), Message: se.Message})
		return
	}
	if store.IsCode(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, wireError{Kind: "endpoint", Code: "NotFound", Message: err.Error()})
		return
	}
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, wireError{Kind: "endpoint", Code: "DocNotFound", Message: err.Error()})
		return
	}

	logger.Error("server/api: unexpected error", "error", err)
	writeError(w, http.StatusInternalServerError, wireError{Kind: "internal_error", Message: "internal error"})
}
