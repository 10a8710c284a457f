package netclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/syncer"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

func newTestAccount(t *testing.T) crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

// newTestRoot builds a signed root file the way a client would before its
// first NewAccount call.
func newTestRoot(t *testing.T, account crypto.KeyPair) tree.File {
	t.Helper()
	base := tree.NewMapTree()
	owner := crypto.EncodePublicKey(account.Public)
	lt := tree.NewLazyTree(base, tree.NewKeychain(account), owner)
	root, err := tree.CreateRoot(lt, uuid.New(), account, time.Now())
	require.NoError(t, err)
	return root
}

func TestNewAccountSignsRequestAndDecodesResult(t *testing.T) {
	account := newTestAccount(t)
	root := newTestRoot(t, account)
	rootID := root.Value().ID

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got struct {
			SignedRequest crypto.SignedEnvelope[newAccountRequest] `json:"signed_request"`
			ClientVersion string                                   `json:"client_version"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "alice", got.SignedRequest.Value().Username)
		assert.Equal(t, rootID, got.SignedRequest.Value().Root.Value().ID)
		assert.Equal(t, Version, got.ClientVersion)

		require.NoError(t, crypto.Verify(account.Public, got.SignedRequest, 0, 0, time.Now()))

		writeResult(t, w, newAccountResponse{RootID: rootID})
	}))
	defer server.Close()

	client := New(server.URL, account)
	id, err := client.NewAccount(t.Context(), "alice", root)
	require.NoError(t, err)
	assert.Equal(t, rootID, id)
}

func TestGetUpdatesDecodesChangesAndServerTime(t *testing.T) {
	account := newTestAccount(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, getUpdatesResponse{ServerTimeMs: 42})
	}))
	defer server.Close()

	client := New(server.URL, account)
	changes, serverTimeMs, err := client.GetUpdates(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, int64(42), serverTimeMs)
}

func TestUpsertMapsCASMismatchToSentinel(t *testing.T) {
	account := newTestAccount(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(t, w, http.StatusConflict, wireError{Kind: "endpoint", Code: "CASMismatch", Message: "stale"})
	}))
	defer server.Close()

	client := New(server.URL, account)
	err := client.Upsert(t.Context(), nil)
	assert.ErrorIs(t, err, syncer.ErrCASMismatch)
}

func TestUpsertMapsUsageOverCapToOutOfSpace(t *testing.T) {
	account := newTestAccount(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(t, w, http.StatusForbidden, wireError{Kind: "endpoint", Code: "UsageIsOverDataCap", Message: "full"})
	}))
	defer server.Close()

	client := New(server.URL, account)
	err := client.Upsert(t.Context(), nil)
	assert.ErrorIs(t, err, syncer.ErrOutOfSpace)
}

func TestClientUpdateRequiredIsNotRetried(t *testing.T) {
	account := newTestAccount(t)
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeError(t, w, http.StatusBadRequest, wireError{Kind: "client_update_required", Message: "upgrade"})
	}))
	defer server.Close()

	client := New(server.URL, account)
	_, _, err := client.GetUpdates(t.Context(), 0)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindClientUpdateRequired))
	assert.Equal(t, 1, calls)
}

func TestExpiredAuthIsRetriedExactlyOnce(t *testing.T) {
	account := newTestAccount(t)
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeError(t, w, http.StatusUnauthorized, wireError{Kind: "expired_auth", Message: "stale timestamp"})
			return
		}
		writeResult(t, w, getUsageResponse{UsedBytes: 10, CapBytes: 100})
	}))
	defer server.Close()

	client := New(server.URL, account)
	usage, err := client.GetUsage(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage.UsedBytes)
	assert.Equal(t, 2, calls)
}

func TestExpiredAuthTwiceIsNotRetriedAgain(t *testing.T) {
	account := newTestAccount(t)
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeError(t, w, http.StatusUnauthorized, wireError{Kind: "expired_auth", Message: "still stale"})
	}))
	defer server.Close()

	client := New(server.URL, account)
	_, err := client.GetUsage(t.Context())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindExpiredAuth))
	assert.Equal(t, 2, calls)
}

func TestTransportFailureRetriesThenGivesUp(t *testing.T) {
	account := newTestAccount(t)
	client := New("http://127.0.0.1:1", account)

	savedBackoff := retryBackoff
	retryBackoff = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	defer func() { retryBackoff = savedBackoff }()

	_, err := client.GetUsage(t.Context())
	require.Error(t, err)

	_, isSemanticError := err.(*Error)
	assert.False(t, isSemanticError, "a connection-refused failure should not decode as a semantic *Error")
}

func writeResult[T any](t *testing.T, w http.ResponseWriter, result T) {
	t.Helper()
	w.WriteHeader(http.StatusOK)
	require.NoError(t, json.NewEncoder(w).Encode(struct {
		Result T `json:"result"`
	}{Result: result}))
}

func writeError(t *testing.T, w http.ResponseWriter, status int, wireErr wireError) {
	t.Helper()
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(struct {
		Error wireError `json:"error"`
	}{Error: wireErr}))
}

