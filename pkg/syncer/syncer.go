package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	"github.com/lockbookapp/lockbook-core/pkg/tree"

	"github.com/lockbookapp/lockbook-core/internal/logger"
)

// syncsInFlight counts Reconcile calls currently running across every
// Reconciler in this process, for SetSyncsInFlight's process-wide gauge.
var syncsInFlight int32

// Reconciler drives one account's sync against one Client, holding
// everything the phases of §4.6.1 need beyond the trees themselves.
type Reconciler struct {
	Account  crypto.KeyPair
	RootID   uuid.UUID
	DeviceID string
	Client   Client
	Docs     docstore.Store

	// Metrics is optional; nil disables instrumentation.
	Metrics metrics.SyncMetrics
}

// Result is everything Reconcile produces (§4.6.1's stated outputs).
type Result struct {
	Base           *tree.MapTree
	ClearLocal     bool
	LastSyncedMs   int64
	DocsDownloaded int
	DocsUploaded   int
}

// Reconcile runs one full sync round: pull, merge, structural repair,
// document download, push, and (on success) promote and prune. base is
// the client's last-synced tree; local is the staged layer of edits made
// since then. Neither is mutated; the caller applies Result.Base and
// clears its local layer when Result.ClearLocal is true.
func (r *Reconciler) Reconcile(ctx context.Context, base, local *tree.MapTree, lastSyncedMs int64, progress ProgressFunc, cancelled Cancelled) (Result, error) {
	start := time.Now()
	if r.Metrics != nil {
		r.Metrics.SetSyncsInFlight(atomic.AddInt32(&syncsInFlight, 1))
		defer func() { r.Metrics.SetSyncsInFlight(atomic.AddInt32(&syncsInFlight, -1)) }()
	}

	for attempt := 0; ; attempt++ {
		if isCancelled(cancelled) {
			r.recordOutcome("cancelled", start)
			return Result{}, ErrCancelled
		}

		res, err := r.attempt(ctx, base, local, lastSyncedMs, progress, cancelled)
		if err == nil {
			r.recordOutcome("success", start)
			return res, nil
		}
		if err != ErrCASMismatch {
			r.recordOutcome("error", start)
			return Result{}, err
		}
		if attempt+1 >= maxCASRetries {
			r.recordOutcome("cas_conflict", start)
			return Result{}, ReReadRequired
		}
		if r.Metrics != nil {
			r.Metrics.RecordCASRetry()
		}
		logger.Warn("sync: CAS conflict, retrying", "attempt", attempt+1)
	}
}

func (r *Reconciler) recordOutcome(outcome string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.RecordSync(outcome, time.Since(start))
	}
}

func (r *Reconciler) recordPhase(phase string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.RecordSyncPhase(phase, time.Since(start))
	}
}

func (r *Reconciler) attempt(ctx context.Context, base, local *tree.MapTree, lastSyncedMs int64, progress ProgressFunc, cancelled Cancelled) (Result, error) {
	now := time.Now()
	phaseStart := now

	// Phase 1: pull.
	remoteChanges, serverTimeMs, err := r.Client.GetUpdates(ctx, lastSyncedMs)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ServerUnreachable, err)
	}
	report(progress, PullMetadata, "", len(remoteChanges), len(remoteChanges))

	remote := make(map[uuid.UUID]tree.File, len(remoteChanges))
	for _, f := range remoteChanges {
		remote[f.Value().ID] = f
	}

	if isCancelled(cancelled) {
		return Result{}, ErrCancelled
	}

	// Phase 2: merge metadata.
	merged := tree.NewMapTree()
	for _, id := range base.IDs() {
		if f, ok := base.MaybeFind(id); ok {
			merged.Insert(f)
		}
	}

	keychain := tree.NewKeychain(r.Account)
	mergedLT := tree.NewLazyTree(merged, keychain, crypto.EncodePublicKey(r.Account.Public))

	localView := tree.NewLazyTree(
		tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local),
		tree.NewKeychain(r.Account),
		crypto.EncodePublicKey(r.Account.Public),
	)

	type pendingConflict struct {
		id uuid.UUID
		fm fieldMerge
	}
	var conflicts []pendingConflict
	var conflictDocIDs []uuid.UUID

	ids := unionIDs(base, local, remote)
	for _, id := range ids {
		bf, bOK := base.MaybeFind(id)
		lf, lOK := local.MaybeFind(id)
		rf, rOK := remote[id]
		if rOK && bOK && tree.FileEqual(rf, bf) {
			// The pulled record is the one Base already holds: no remote change.
			rOK = false
		}

		switch {
		case lOK && rOK:
			if tree.FileEqual(lf, rf) {
				merged.Insert(rf)
				continue
			}
			var baseMeta tree.FileMetadata
			if bOK {
				baseMeta = bf.Value()
			}
			fm := mergeMetadata(baseMeta, lf.Value(), rf.Value(), bOK)
			env, err := crypto.Sign(r.Account, fm.metadata, now)
			if err != nil {
				return Result{}, err
			}
			merged.Insert(env)
			if fm.parentConflict || fm.nameConflict || fm.docConflict {
				conflicts = append(conflicts, pendingConflict{id: id, fm: fm})
			}
		case rOK:
			merged.Insert(rf)
		case lOK:
			merged.Insert(lf)
		case bOK:
			merged.Insert(bf)
		}
	}

	// Apply deferred per-field conflict resolutions now that every id
	// exists in the merged tree.
	for _, c := range conflicts {
		if c.fm.parentConflict {
			if _, ok := merged.MaybeFind(c.fm.localParent); ok {
				if _, err := tree.MoveFile(mergedLT, c.id, c.fm.localParent, r.Account, now); err != nil {
					logger.Debug("sync: secondary move no longer legal, dropped", "id", c.id, "error", err)
				}
			}
		}
		if c.fm.nameConflict {
			localName, err := localView.Name(c.id)
			if err == nil {
				if _, err := renameWithSuffix(mergedLT, c.id, localName, r.Account, now); err != nil {
					logger.Debug("sync: secondary rename failed, dropped", "id", c.id, "error", err)
				}
			}
		}
		if c.fm.docConflict {
			newID, err := r.materializeConflictCopy(ctx, mergedLT, localView, c.id, c.fm, now)
			if err != nil {
				return Result{}, err
			}
			if newID != uuid.Nil {
				conflictDocIDs = append(conflictDocIDs, newID)
			}
		}
	}

	// Phase 3: structural repair.
	if err := repairStructure(mergedLT, r.RootID, r.Account, now); err != nil {
		return Result{}, err
	}
	if err := tree.Validate(merged, now); err != nil {
		return Result{}, err
	}
	r.recordPhase("merge", phaseStart)
	phaseStart = time.Now()

	if isCancelled(cancelled) {
		return Result{}, ErrCancelled
	}

	// Phase 4: download documents.
	downloadedBytes := int64(0)
	downloaded := 0
	for _, id := range merged.IDs() {
		f, _ := merged.MaybeFind(id)
		m := f.Value()
		if m.FileType != tree.Document || m.DocumentHMAC == nil || m.IsDeleted {
			continue
		}
		if _, ok, err := r.Docs.MaybeGet(ctx, id, *m.DocumentHMAC); err == nil && ok {
			continue
		}
		if isCancelled(cancelled) {
			return Result{}, ErrCancelled
		}
		data, err := r.Client.GetDoc(ctx, id, *m.DocumentHMAC)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ServerUnreachable, err)
		}
		if err := r.Docs.Insert(ctx, id, *m.DocumentHMAC, data); err != nil {
			return Result{}, err
		}
		downloaded++
		downloadedBytes += int64(len(data))
		name, _ := mergedLT.Name(id)
		report(progress, PullDocument, name, downloaded, downloaded)
	}
	if downloaded > 0 {
		metrics.RecordDocsTransferred(r.Metrics, "download", downloaded, downloadedBytes)
	}
	r.recordPhase("pull", phaseStart)
	phaseStart = time.Now()

	if isCancelled(cancelled) {
		return Result{}, ErrCancelled
	}

	// Phase 5: push. Upload documents the local side changed (and any new
	// conflict siblings just created) whose body the merge kept, then
	// push the metadata diff batch.
	uploaded := 0
	uploadedBytes := int64(0)
	for _, id := range local.IDs() {
		lf, _ := local.MaybeFind(id)
		lm := lf.Value()
		if lm.DocumentHMAC == nil {
			continue
		}
		mf, ok := merged.MaybeFind(id)
		if !ok || mf.Value().DocumentHMAC == nil || *mf.Value().DocumentHMAC != *lm.DocumentHMAC {
			continue
		}
		if isCancelled(cancelled) {
			return Result{}, ErrCancelled
		}
		n, err := r.uploadDoc(ctx, id, *lm.DocumentHMAC)
		if err != nil {
			return Result{}, err
		}
		uploaded++
		uploadedBytes += n
		name, _ := mergedLT.Name(id)
		report(progress, PushDocument, name, uploaded, uploaded)
	}
	for _, id := range conflictDocIDs {
		mf, ok := merged.MaybeFind(id)
		if !ok || mf.Value().DocumentHMAC == nil {
			continue
		}
		if isCancelled(cancelled) {
			return Result{}, ErrCancelled
		}
		n, err := r.uploadDoc(ctx, id, *mf.Value().DocumentHMAC)
		if err != nil {
			return Result{}, err
		}
		uploaded++
		uploadedBytes += n
		name, _ := mergedLT.Name(id)
		report(progress, PushDocument, name, uploaded, uploaded)
	}
	if uploaded > 0 {
		metrics.RecordDocsTransferred(r.Metrics, "upload", uploaded, uploadedBytes)
	}

	diffs := make([]MetadataDiff, 0)
	for _, id := range merged.IDs() {
		mf, _ := merged.MaybeFind(id)
		bf, bOK := base.MaybeFind(id)
		// Old is the server's current record: the pulled one where this
		// round pulled it, otherwise the Base copy.
		if rf, ok := remote[id]; ok {
			bf, bOK = rf, true
		}
		if bOK && tree.FileEqual(bf, mf) {
			continue
		}
		d := MetadataDiff{New: mf}
		if bOK {
			old := bf
			d.Old = &old
		}
		diffs = append(diffs, d)
	}
	if len(diffs) > 0 {
		if isCancelled(cancelled) {
			return Result{}, ErrCancelled
		}
		report(progress, PushMetadata, "", 0, len(diffs))
		if err := r.Client.Upsert(ctx, diffs); err != nil {
			if err == ErrCASMismatch {
				return Result{}, ErrCASMismatch
			}
			if err == ErrOutOfSpace {
				return Result{}, OutOfSpace
			}
			return Result{}, fmt.Errorf("%w: %v", ServerUnreachable, err)
		}
		report(progress, PushMetadata, "", len(diffs), len(diffs))
	}
	r.recordPhase("push", phaseStart)

	// Phase 7: prune obsolete document versions whose hmac changed.
	for _, id := range base.IDs() {
		bf, _ := base.MaybeFind(id)
		bm := bf.Value()
		if bm.DocumentHMAC == nil {
			continue
		}
		mf, ok := merged.MaybeFind(id)
		if ok && mf.Value().DocumentHMAC != nil && *mf.Value().DocumentHMAC == *bm.DocumentHMAC {
			continue
		}
		_ = r.Docs.Delete(ctx, id, *bm.DocumentHMAC)
	}

	// Phase 6: promote.
	return Result{
		Base:           merged,
		ClearLocal:     true,
		LastSyncedMs:   serverTimeMs,
		DocsDownloaded: downloaded,
		DocsUploaded:   uploaded,
	}, nil
}

func (r *Reconciler) uploadDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) (int64, error) {
	data, err := r.Docs.Get(ctx, id, hmac)
	if err != nil {
		return 0, err
	}
	if err := r.Client.ChangeDoc(ctx, id, hmac, data); err != nil {
		if err == ErrOutOfSpace {
			return 0, OutOfSpace
		}
		return 0, fmt.Errorf("%w: %v", ServerUnreachable, err)
	}
	return int64(len(data)), nil
}

// materializeConflictCopy implements the document_hmac row of §4.6.2: the
// merged record already kept R's body, so a fresh sibling file is created
// owning L's body, named "<name>-conflict-<device-id>", and its content is
// uploaded alongside the rest of the push.
func (r *Reconciler) materializeConflictCopy(ctx context.Context, mergedLT *tree.LazyTree, localView *tree.LazyTree, id uuid.UUID, fm fieldMerge, now time.Time) (uuid.UUID, error) {
	rawCT, err := r.Docs.Get(ctx, id, fm.localDocHMAC)
	if err != nil {
		// The local body was never fetched into this client's document
		// store (shouldn't happen for content the client itself wrote,
		// but is not fatal to the rest of the merge).
		logger.Warn("sync: local conflict body unavailable, dropping conflict copy", "id", id, "error", err)
		return uuid.Nil, nil
	}
	ct, err := crypto.UnmarshalCiphertext(rawCT)
	if err != nil {
		return uuid.Nil, err
	}
	plaintext, err := tree.ReadDocument(localView, id, ct)
	if err != nil {
		return uuid.Nil, err
	}

	name, err := mergedLT.Name(id)
	if err != nil {
		return uuid.Nil, err
	}
	mf, ok := mergedLT.MaybeFind(id)
	if !ok {
		return uuid.Nil, nil
	}
	parent := mf.Value().Parent

	conflictName := fmt.Sprintf("%s-conflict-%s", name, r.DeviceID)
	newID := uuid.New()
	newFile, err := renameOnCollisionCreate(mergedLT, newID, parent, conflictName, r.Account, now)
	if err != nil {
		return uuid.Nil, err
	}

	newCT, newHMAC, err := tree.WriteDocument(mergedLT, newID, plaintext)
	if err != nil {
		return uuid.Nil, err
	}
	meta := newFile.Value()
	size := int64(len(plaintext))
	meta.DocumentHMAC = &newHMAC
	meta.DocumentSize = &size
	env, err := crypto.Sign(r.Account, meta, now)
	if err != nil {
		return uuid.Nil, err
	}
	mergedLT.Insert(env)

	raw, err := crypto.MarshalCiphertext(newCT)
	if err != nil {
		return uuid.Nil, err
	}
	if err := r.Docs.Insert(ctx, newID, newHMAC, raw); err != nil {
		return uuid.Nil, err
	}
	return newID, nil
}

// renameOnCollisionCreate creates a document at parent named name,
// appending a "-N" suffix if a sibling already holds that name.
func renameOnCollisionCreate(lt *tree.LazyTree, id, parent uuid.UUID, name string, actor crypto.KeyPair, now time.Time) (tree.File, error) {
	candidate := name
	for n := 0; ; n++ {
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", name, n)
		}
		f, err := tree.Create(lt, id, parent, candidate, tree.Document, actor, now)
		if err == nil {
			return f, nil
		}
		if !tree.IsCode(err, tree.ErrDuplicateSiblingName) {
			return tree.File{}, err
		}
	}
}

func unionIDs(base, local *tree.MapTree, remote map[uuid.UUID]tree.File) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range base.IDs() {
		add(id)
	}
	for _, id := range local.IDs() {
		add(id)
	}
	for id := range remote {
		add(id)
	}
	return out
}
