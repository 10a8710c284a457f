// Package server implements the authoritative per-owner validator (§4.7):
// the only place a push batch is accepted or rejected. It never decrypts
// anything - every check it performs (CAS, access control, structural
// invariants) is computable from the plaintext fields the signed envelope
// already carries in the clear (id, parent, file_type, owner, the
// access-key list's mode/recipient/deleted bits).
package server

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/internal/logger"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	"github.com/lockbookapp/lockbook-core/pkg/server/store"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// Diff is one entry of a push batch, the server-side counterpart of
// syncer.MetadataDiff. The two packages deliberately don't share a type:
// the client's Diff is keyed to its own Local/Base layers, the server's to
// whatever owner each target file's metadata names, which is not
// necessarily the pusher (§3.4 shared files keep their creator as Owner).
type Diff struct {
	Old *tree.File
	New tree.File
}

// Server validates and applies push batches, and answers the account and
// document-usage queries pkg/server/api exposes over the wire.
type Server struct {
	store    store.Store
	docs     docstore.Store
	usageCap int64
	metrics  metrics.ServerMetrics
}

// New constructs a Server backed by st for metadata and docs for document
// bodies, refusing any account's usage above capBytes (§4.7 usage check).
func New(st store.Store, docs docstore.Store, capBytes int64) *Server {
	return &Server{store: st, docs: docs, usageCap: capBytes}
}

// SetMetrics attaches m to every subsequent Upsert/ChangeDoc call. Passing
// nil (the default) disables instrumentation.
func (s *Server) SetMetrics(m metrics.ServerMetrics) {
	s.metrics = m
}

// NewAccount registers username bound to pk, and stores rootID as the
// owner's root. Callers (pkg/server/api) are responsible for having
// verified the request's signature against pk before calling this.
func (s *Server) NewAccount(ctx context.Context, username string, pk []byte, root tree.File) error {
	m := root.Value()
	if !m.IsRoot() {
		return newErr(ErrDiffMalformed, "root file %s is not its own parent", m.ID)
	}
	if string(m.Owner) != string(pk) {
		return newErr(ErrDiffMalformed, "root file owner does not match account public key")
	}

	if err := s.store.CreateAccount(ctx, username, pk, m.ID); err != nil {
		if store.IsCode(err, store.ErrAlreadyExists) {
			return newErr(ErrUsernameTaken, "username taken: %s", username)
		}
		return err
	}
	return s.store.Put(ctx, pk, root, time.Now().UnixMilli())
}

// GetPublicKey looks up the public key bound to username.
func (s *Server) GetPublicKey(ctx context.Context, username string) ([]byte, error) {
	pk, err := s.store.PublicKey(ctx, username)
	if err != nil {
		if store.IsCode(err, store.ErrNotFound) {
			return nil, newErr(ErrAccountNonexistent, "no account for username: %s", username)
		}
		return nil, err
	}
	return pk, nil
}

// GetUpdates returns every change to owner's tree observed at or after
// sinceMs, and the server time to record as the new watermark (§6.1).
func (s *Server) GetUpdates(ctx context.Context, owner []byte, sinceMs int64) ([]tree.File, int64, error) {
	changes, err := s.store.Since(ctx, owner, sinceMs)
	if err != nil {
		return nil, 0, err
	}
	return changes, time.Now().UnixMilli(), nil
}

// Usage reports owner's current document-byte usage and cap.
func (s *Server) Usage(ctx context.Context, owner []byte) (usedBytes, capBytes int64, err error) {
	usedBytes, err = s.store.UsedBytes(ctx, owner)
	return usedBytes, s.usageCap, err
}

// GetDoc downloads a document body by content address. NO access checking
// beyond HMAC match - pkg/server/api is responsible for verifying the
// requester holds Read-or-greater on id before calling this.
func (s *Server) GetDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error) {
	return s.docs.Get(ctx, id, hmac)
}

// ChangeDoc uploads a document body, content-addressed by (id, hmac),
// rejecting the write if it would push owner's usage over its cap.
func (s *Server) ChangeDoc(ctx context.Context, owner []byte, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	used, err := s.store.UsedBytes(ctx, owner)
	if err != nil {
		return err
	}
	if used+int64(len(data)) > s.usageCap {
		if s.metrics != nil {
			s.metrics.RecordUsageRejection(string(owner))
		}
		return newErr(ErrUsageIsOverDataCap, "owner usage %d + %d exceeds cap %d", used, len(data), s.usageCap)
	}
	if err := s.docs.Insert(ctx, id, hmac, data); err != nil {
		return err
	}
	newUsed, err := s.store.AddUsedBytes(ctx, owner, int64(len(data)))
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordUsageBytes(string(owner), newUsed)
	}
	return nil
}

// Upsert validates and applies a push batch atomically: either every diff
// lands or none does (§4.7). Diffs are grouped by each target file's Owner
// field - not necessarily requester, since a collaborator with Write
// access pushes diffs against a share owned by someone else - and every
// group is staged against an in-memory overlay of its owner's tree before
// anything is committed to the store, so a failure in one owner's group
// can never leave another's partially applied.
func (s *Server) Upsert(ctx context.Context, requester []byte, diffs []Diff) (err error) {
	start := time.Now()
	outcome := "applied"
	defer func() {
		if err != nil {
			outcome = upsertOutcome(err)
		}
		if s.metrics != nil {
			s.metrics.ObserveUpsert(outcome, len(diffs), time.Since(start))
		}
	}()

	groups := make(map[string][]Diff)
	var owners [][]byte
	for _, d := range diffs {
		key := string(d.New.Value().Owner)
		if _, ok := groups[key]; !ok {
			owners = append(owners, d.New.Value().Owner)
		}
		groups[key] = append(groups[key], d)
	}
	sort.Slice(owners, func(i, j int) bool { return string(owners[i]) < string(owners[j]) })

	return s.withOwnerLocks(ctx, owners, func(ctx context.Context) error {
		now := time.Now()
		staged := make(map[string]*tree.MapTree, len(owners))
		for _, owner := range owners {
			overlay, err := s.buildOverlay(ctx, owner)
			if err != nil {
				return err
			}
			if err := s.stageGroup(ctx, overlay, requester, groups[string(owner)], now); err != nil {
				return err
			}
			invariantsStart := time.Now()
			if err := tree.Validate(overlay, now); err != nil {
				return newErr(ErrValidationFailed, "%v", err)
			}
			s.observePhase("invariants", invariantsStart)
			staged[string(owner)] = overlay
		}

		nowMs := now.UnixMilli()
		for _, owner := range owners {
			for _, d := range groups[string(owner)] {
				if err := s.store.Put(ctx, owner, d.New, nowMs); err != nil {
					return err
				}
			}
		}
		logger.Info("server: applied push batch", "owners", len(owners), "diffs", len(diffs))
		return nil
	})
}

// upsertOutcome classifies a failed Upsert for ObserveUpsert's outcome
// label, collapsing the closed ErrorCode set down to the handful of
// outcomes worth alerting on separately.
func upsertOutcome(err error) string {
	var se *Error
	if e, ok := err.(*Error); ok {
		se = e
	}
	if se == nil {
		return "error"
	}
	switch se.Code {
	case ErrValidationFailed:
		return "validation_failed"
	case ErrUsageIsOverDataCap:
		return "usage_over_cap"
	case ErrNotPermissioned:
		return "not_permissioned"
	case ErrOldVersionIncorrect, ErrOldVersionRequired:
		return "cas_mismatch"
	default:
		return "error"
	}
}

// buildOverlay materializes owner's current tree as a fresh in-memory
// TreeLikeMut, so staging a batch against it never mutates s.store until
// every group in the batch has validated.
func (s *Server) buildOverlay(ctx context.Context, owner []byte) (*tree.MapTree, error) {
	existing, err := s.store.All(ctx, owner)
	if err != nil {
		return nil, err
	}
	overlay := tree.NewMapTree()
	for _, f := range existing {
		overlay.Insert(f)
	}
	return overlay, nil
}

// stageGroup applies one owner's diffs to overlay in order, enforcing
// validation steps 1-7 of §4.7 on each diff before inserting it. Processing
// in order is what makes "creating descendants of a not-yet-existing
// ancestor within the same batch" work: by the time a child's diff is
// checked, its freshly-created parent is already in overlay.
func (s *Server) stageGroup(ctx context.Context, overlay *tree.MapTree, requester []byte, diffs []Diff, now time.Time) error {
	lt := tree.NewLazyTree(overlay, nil, requester)

	for _, d := range diffs {
		newMeta := d.New.Value()

		// Step 1: new.id == old.id when old is present.
		if d.Old != nil && d.Old.Value().ID != newMeta.ID {
			return newErr(ErrDiffMalformed, "diff id mismatch: old=%s new=%s", d.Old.Value().ID, newMeta.ID)
		}

		// Step 2: no structural change to the root's id.
		if oldFile, ok := overlay.MaybeFind(newMeta.ID); ok {
			om := oldFile.Value()
			if om.IsRoot() && (newMeta.Parent != newMeta.ID || newMeta.FileType != om.FileType || string(newMeta.Owner) != string(om.Owner)) {
				return newErr(ErrRootModificationInvalid, "root %s cannot change parent/type/owner", newMeta.ID)
			}
		}

		// Step 3: no diff creates a new root (parent == id) via Upsert;
		// roots are only created through NewAccount.
		if d.Old == nil && newMeta.IsRoot() {
			return newErr(ErrDiffMalformed, "cannot create a new root via upsert: %s", newMeta.ID)
		}

		phaseStart := time.Now()
		if err := s.checkHMAC(d); err != nil {
			return err
		}
		s.observePhase("hmac", phaseStart)

		phaseStart = time.Now()
		if err := s.checkCAS(overlay, d); err != nil {
			return err
		}
		s.observePhase("cas", phaseStart)

		phaseStart = time.Now()
		if err := s.checkAccess(lt, d); err != nil {
			return err
		}
		s.observePhase("access", phaseStart)

		phaseStart = time.Now()
		if err := s.checkDeleted(lt, d); err != nil {
			return err
		}
		s.observePhase("deleted", phaseStart)

		lt.Insert(d.New)
	}
	return nil
}

// observePhase is a nil-safe wrapper around metrics.ServerMetrics's
// ObserveValidationPhase.
func (s *Server) observePhase(phase string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveValidationPhase(phase, time.Since(start))
	}
}

// checkHMAC enforces step 4: document_hmac only changes through ChangeDoc.
func (s *Server) checkHMAC(d Diff) error {
	newMeta := d.New.Value()
	if d.Old == nil {
		if newMeta.DocumentHMAC != nil {
			return newErr(ErrHmacModificationInvalid, "new file %s cannot be created with a document_hmac", newMeta.ID)
		}
		return nil
	}
	oldMeta := d.Old.Value()
	oldHMAC, newHMAC := "", ""
	if oldMeta.DocumentHMAC != nil {
		oldHMAC = string(oldMeta.DocumentHMAC[:])
	}
	if newMeta.DocumentHMAC != nil {
		newHMAC = string(newMeta.DocumentHMAC[:])
	}
	if oldHMAC != newHMAC {
		return newErr(ErrHmacModificationInvalid, "document_hmac of %s can only change via ChangeDoc", newMeta.ID)
	}
	return nil
}

// checkCAS enforces step 5 against overlay's current state.
func (s *Server) checkCAS(overlay *tree.MapTree, d Diff) error {
	newMeta := d.New.Value()
	current, exists := overlay.MaybeFind(newMeta.ID)

	if d.Old != nil {
		if !exists {
			return newErr(ErrOldVersionIncorrect, "diff for %s names an old version but file does not exist", newMeta.ID)
		}
		if !tree.FileEqual(current, *d.Old) {
			return newErr(ErrOldVersionIncorrect, "diff for %s does not match current server record", newMeta.ID)
		}
	} else if exists {
		return newErr(ErrOldVersionRequired, "diff for %s creates a file that already exists", newMeta.ID)
	}
	return nil
}

// checkAccess enforces step 6.
func (s *Server) checkAccess(lt *tree.LazyTree, d Diff) error {
	newMeta := d.New.Value()

	if d.Old == nil {
		mode, err := lt.AccessMode(newMeta.Parent)
		if err != nil {
			return newErr(ErrNotPermissioned, "cannot resolve access to parent %s: %v", newMeta.Parent, err)
		}
		if mode < tree.Write {
			return newErr(ErrNotPermissioned, "no write access to parent %s", newMeta.Parent)
		}
		return nil
	}

	oldMeta := d.Old.Value()
	mode, err := lt.AccessMode(oldMeta.ID)
	if err != nil {
		return newErr(ErrNotPermissioned, "cannot resolve access to %s: %v", oldMeta.ID, err)
	}
	if mode < tree.Write {
		return newErr(ErrNotPermissioned, "no write access to %s", oldMeta.ID)
	}

	if newMeta.Parent != oldMeta.Parent {
		oldParentMode, err := lt.AccessMode(oldMeta.Parent)
		if err != nil || oldParentMode < tree.Write {
			return newErr(ErrNotPermissioned, "no write access to source parent %s", oldMeta.Parent)
		}
		newParentMode, err := lt.AccessMode(newMeta.Parent)
		if err != nil {
			return newErr(ErrNotPermissioned, "cannot resolve access to destination parent %s: %v", newMeta.Parent, err)
		}
		if newParentMode < tree.Write {
			return newErr(ErrNotPermissioned, "no write access to destination parent %s", newMeta.Parent)
		}
	}
	return nil
}

// checkDeleted enforces step 7, using the deletion closure as it stands
// before this diff's own insertion.
func (s *Server) checkDeleted(lt *tree.LazyTree, d Diff) error {
	if d.Old == nil {
		return nil
	}
	deleted, err := lt.Deleted(d.Old.Value().ID)
	if err != nil {
		return fmt.Errorf("server: checking deletion closure: %w", err)
	}
	if deleted {
		return newErr(ErrDeletedFileUpdated, "file %s is deleted", d.Old.Value().ID)
	}
	return nil
}

// withOwnerLocks acquires every owner's single-writer lock, in the sorted
// order the caller already produced, before running fn. Sorted acquisition
// avoids deadlock between two concurrent batches that touch an overlapping
// set of owners in different orders.
func (s *Server) withOwnerLocks(ctx context.Context, owners [][]byte, fn func(ctx context.Context) error) error {
	if len(owners) == 0 {
		return fn(ctx)
	}
	return s.store.WithOwnerLock(ctx, owners[0], func(ctx context.Context) error {
		return s.withOwnerLocks(ctx, owners[1:], fn)
	})
}
