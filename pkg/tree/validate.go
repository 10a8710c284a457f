package tree

import (
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

// Validate re-checks the tree invariants of §3.5 against every file in t.
// It has no side effects and is deterministic. The operations in ops.go do
// not call it; the syncer runs it on a merged tree, pkg/server on a staged
// upsert, and pkg/lockbook's integrity check on the local tree.
func Validate(t TreeLike, now time.Time) error {
	files, err := AllFiles(t)
	if err != nil {
		return err
	}

	roots := make(map[string]uuid.UUID) // owner (as string) -> root id
	byParent := make(map[uuid.UUID][]FileMetadata)

	for _, env := range files {
		m := env.Value()

		// Invariant 8 (client-side clause): the envelope's signature is
		// valid under its own embedded public key. This only proves the
		// envelope is self-consistent - it does not require the signer to
		// be m.Owner, since a collaborator with Write access legitimately
		// signs edits to files owned by someone else. The stronger check
		// (signer is the owner or a Write-access holder) is the server
		// validator's job, which alone can consult the share graph the
		// signer is asserting membership in.
		signerPK, err := crypto.DecodePublicKey(env.PublicKey)
		if err != nil {
			return newErr(ErrValidationFailed, m.ID.String(), "signer key malformed: %v", err)
		}
		if err := crypto.Verify(signerPK, env, 0, 0, now); err != nil {
			return newErr(ErrValidationFailed, m.ID.String(), "signature invalid: %v", err)
		}

		if m.IsRoot() {
			owner := string(m.Owner)
			if existing, ok := roots[owner]; ok && existing != m.ID {
				return newErr(ErrValidationFailed, m.ID.String(), "owner has more than one root")
			}
			roots[owner] = m.ID
		} else {
			byParent[m.Parent] = append(byParent[m.Parent], m)
		}

		// Invariant 5 (partial, syntactic): a document_hmac can only be
		// present on a document.
		if m.DocumentHMAC != nil && m.FileType != Document {
			return newErr(ErrValidationFailed, m.ID.String(), "document_hmac present on a non-document")
		}

		// Invariant 7's link-resolves check only applies when the target
		// happens to live in this same tree; a target under a different
		// owner's tree is legitimately invisible here and unverifiable
		// without cross-tree context.
	}

	// Invariant 2: no cycles.
	for _, env := range files {
		m := env.Value()
		if m.IsRoot() {
			continue
		}
		seen := map[uuid.UUID]bool{m.ID: true}
		cur := m.Parent
		for {
			if seen[cur] {
				return newErr(ErrValidationFailed, m.ID.String(), "cycle detected in parent chain")
			}
			seen[cur] = true
			parentEnv, ok := t.MaybeFind(cur)
			if !ok {
				// Dangling parent: not a cycle, handled by orphan
				// adoption during structural repair, not a hard failure
				// here.
				break
			}
			pm := parentEnv.Value()
			if pm.IsRoot() {
				break
			}
			cur = pm.Parent
		}
	}

	// Invariant 3: siblings within the same parent have distinct name_hmac.
	for parent, children := range byParent {
		seen := make(map[crypto.HMACDigest]uuid.UUID)
		for _, m := range children {
			if prev, ok := seen[m.NameHMAC]; ok && prev != m.ID {
				return newErr(ErrValidationFailed, m.ID.String(), "duplicate sibling name under parent %s", parent)
			}
			seen[m.NameHMAC] = m.ID
		}
	}

	return nil
}
