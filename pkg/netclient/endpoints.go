package netclient

import (
	"context"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/syncer"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// NewAccount registers username with the server, binding it to this
// client's public key, and pushing the root file the caller has already
// created and signed locally (§4.1). It returns the root's id, echoed back
// by the server for convenience.
func (c *Client) NewAccount(ctx context.Context, username string, root tree.File) (uuid.UUID, error) {
	resp, err := doRequest[newAccountRequest, newAccountResponse](ctx, c, "NewAccount", "/new-account", newAccountRequest{
		Username: username,
		Root:     root,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return resp.RootID, nil
}

// GetPublicKey looks up the public key bound to username (§3.1, §4.2 user
// access shares).
func (c *Client) GetPublicKey(ctx context.Context, username string) (*crypto.PublicKey, error) {
	resp, err := doRequest[getPublicKeyRequest, getPublicKeyResponse](ctx, c, "GetPublicKey", "/get-public-key", getPublicKeyRequest{
		Username: username,
	})
	if err != nil {
		return nil, err
	}
	return crypto.DecodePublicKey(resp.PublicKey)
}

// GetUpdates implements syncer.Client.
func (c *Client) GetUpdates(ctx context.Context, sinceMs int64) ([]tree.File, int64, error) {
	resp, err := doRequest[getUpdatesRequest, getUpdatesResponse](ctx, c, "GetUpdates", "/get-updates", getUpdatesRequest{
		SinceMs: sinceMs,
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.Changes, resp.ServerTimeMs, nil
}

// Upsert implements syncer.Client. A KindEndpoint error whose Code is
// "CASMismatch", "OldVersionIncorrect" or "OldVersionRequired" (the codes
// pkg/server/api sends for a failed CAS check) is surfaced to the
// reconciler as syncer.ErrCASMismatch so the push-phase retry loop
// recognizes it without depending on this package; the
// "UsageIsOverDataCap" code maps to syncer.ErrOutOfSpace.
func (c *Client) Upsert(ctx context.Context, diffs []syncer.MetadataDiff) error {
	wd := make([]wireDiff, len(diffs))
	for i, d := range diffs {
		wd[i] = wireDiff{Old: d.Old, New: d.New}
	}
	_, err := doRequest[upsertRequest, upsertResponse](ctx, c, "Upsert", "/upsert", upsertRequest{Diffs: wd})
	return mapPushError(err)
}

// ChangeDoc implements syncer.Client.
func (c *Client) ChangeDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	_, err := doRequest[changeDocRequest, changeDocResponse](ctx, c, "ChangeDoc", "/change-doc", changeDocRequest{
		ID:   id,
		HMAC: hmac,
		Data: data,
	})
	return mapPushError(err)
}

// GetDoc implements syncer.Client.
func (c *Client) GetDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error) {
	resp, err := doRequest[getDocRequest, getDocResponse](ctx, c, "GetDoc", "/get-doc", getDocRequest{ID: id, HMAC: hmac})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Usage reports the account's current storage usage and cap (§6.1
// GetUsage).
type Usage struct {
	UsedBytes int64
	CapBytes  int64
}

// GetUsage returns the account's current data usage against its cap.
func (c *Client) GetUsage(ctx context.Context) (Usage, error) {
	resp, err := doRequest[getUsageRequest, getUsageResponse](ctx, c, "GetUsage", "/get-usage", getUsageRequest{})
	if err != nil {
		return Usage{}, err
	}
	return Usage{UsedBytes: resp.UsedBytes, CapBytes: resp.CapBytes}, nil
}

// mapPushError narrows a decoded server error down to the structural
// sentinels pkg/syncer's Client port promises (§4.6.5, §4.7): everything
// else passes through unchanged so the reconciler wraps it as
// ServerUnreachable.
func mapPushError(err error) error {
	if err == nil {
		return nil
	}
	if IsCode(err, "CASMismatch") || IsCode(err, "OldVersionIncorrect") || IsCode(err, "OldVersionRequired") {
		return syncer.ErrCASMismatch
	}
	if IsCode(err, "UsageIsOverDataCap") {
		return syncer.ErrOutOfSpace
	}
	return err
}
