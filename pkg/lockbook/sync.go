package lockbook

import (
	"context"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/syncer"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// SyncResult summarizes one completed sync round (§6.3 sync_all).
type SyncResult struct {
	DocsDownloaded int
	DocsUploaded   int
}

// Sync runs one full sync round against the server (§5, §6.3 sync_all). At
// most one sync runs at a time per Core; a concurrent call returns
// ErrSyncInFlight rather than queuing.
func (c *Core) Sync(ctx context.Context, progress syncer.ProgressFunc, cancelled syncer.Cancelled) (SyncResult, error) {
	c.syncMu.Lock()
	if c.syncing {
		c.syncMu.Unlock()
		return SyncResult{}, ErrSyncInFlight
	}
	c.syncing = true
	c.syncMu.Unlock()
	defer func() {
		c.syncMu.Lock()
		c.syncing = false
		c.syncMu.Unlock()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAccount(); err != nil {
		return SyncResult{}, err
	}

	lastSyncedMs, err := c.db.GetLastSynced(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	r := &syncer.Reconciler{
		Account:  c.account.KeyPair,
		RootID:   c.rootID,
		DeviceID: c.deviceID,
		Client:   c.client,
		Docs:     c.db.Docs(),
		Metrics:  c.syncMetrics,
	}

	res, err := r.Reconcile(ctx, c.base, c.local, lastSyncedMs, progress, cancelled)
	if err != nil {
		return SyncResult{}, err
	}

	if err := c.applySyncResult(ctx, res); err != nil {
		return SyncResult{}, err
	}

	return SyncResult{DocsDownloaded: res.DocsDownloaded, DocsUploaded: res.DocsUploaded}, nil
}

// applySyncResult persists the reconciler's output and rebuilds the
// in-memory views over the new base/local pair.
func (c *Core) applySyncResult(ctx context.Context, res syncer.Result) error {
	oldIDs := make(map[string]bool, len(c.base.IDs()))
	for _, id := range c.base.IDs() {
		oldIDs[id.String()] = true
	}
	for _, id := range res.Base.IDs() {
		f, ok := res.Base.MaybeFind(id)
		if !ok {
			continue
		}
		if err := c.db.PutBaseFile(ctx, f); err != nil {
			return err
		}
		delete(oldIDs, id.String())
	}
	for idStr := range oldIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		if err := c.db.DeleteBaseFile(ctx, id); err != nil {
			return err
		}
	}

	c.base = res.Base

	if res.ClearLocal {
		staleLocalIDs := c.local.IDs()
		c.local.Clear()
		for _, id := range staleLocalIDs {
			if err := c.db.DeleteLocalFile(ctx, id); err != nil {
				return err
			}
		}
	}

	if err := c.db.SetLastSynced(ctx, res.LastSyncedMs); err != nil {
		return err
	}

	c.rebuild()
	return nil
}

// GetLastSyncedHumanString returns a human-readable relative time ("3
// minutes ago") for the watermark of the last successful sync, or "never"
// if this account has not yet synced.
func (c *Core) GetLastSyncedHumanString(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return "", err
	}

	ms, err := c.db.GetLastSynced(ctx)
	if err != nil {
		return "", err
	}
	if ms == 0 {
		return "never", nil
	}
	return humanize.Time(time.UnixMilli(ms)), nil
}

// GetLocalChanges returns the ids of every file with a staged local edit
// not yet pushed to the server.
func (c *Core) GetLocalChanges(ctx context.Context) ([]uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}
	return c.local.IDs(), nil
}

// CalculateWork reports how many metadata changes are pending in each
// direction without performing them: local edits awaiting push, and
// remote changes awaiting pull. A remote record identical to the local
// base copy is not counted.
func (c *Core) CalculateWork(ctx context.Context) (localChanges, remoteChanges int, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return 0, 0, err
	}

	lastSyncedMs, err := c.db.GetLastSynced(ctx)
	if err != nil {
		return 0, 0, err
	}
	changes, _, err := c.client.GetUpdates(ctx, lastSyncedMs)
	if err != nil {
		return 0, 0, err
	}
	remote := 0
	for _, f := range changes {
		if known, ok := c.base.MaybeFind(f.Value().ID); ok && tree.FileEqual(known, f) {
			continue
		}
		remote++
	}
	return len(c.local.IDs()), remote, nil
}
