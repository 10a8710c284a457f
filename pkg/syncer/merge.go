package syncer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// fieldMerge is the outcome of merging one id present in both the Local and
// Remote staged layers (§4.6.2): the merged metadata plus any secondary
// work the merge implies, deferred until the merged tree exists to act on.
type fieldMerge struct {
	metadata tree.FileMetadata

	// parentConflict is set when L and R both re-parented the file to
	// different places; R's parent was kept, and localParent is queued as
	// a secondary move attempted after the merge settles, if still legal.
	parentConflict bool
	localParent    uuid.UUID

	// nameConflict is set when L and R both renamed the file differently.
	// metadata tentatively carries R's name, but the reconciler replays
	// L's rename intent against the merged tree afterward (suffixed on
	// collision), so the net result favors L unless the replay is no
	// longer legal — the same secondary-replay pattern parentConflict
	// uses for moves.
	nameConflict bool

	// docConflict is set when L and R both wrote new document content;
	// R's body was kept, and localDocHMAC/localDocSize name the body the
	// merge should materialize as a new conflict-sibling document.
	docConflict  bool
	localDocHMAC crypto.HMACDigest
	localDocSize int64
}

// mergeMetadata implements the §4.6.2 field table for one id that both L
// and R modified relative to B. baseExists is false, and base the zero
// value, when the id did not exist in Base (both sides independently created it, a pathological but handled
// case: R's creation wins outright and the rest of the table does not
// apply).
func mergeMetadata(base, local, remote tree.FileMetadata, baseExists bool) fieldMerge {
	merged := remote

	merged.IsDeleted = local.IsDeleted || remote.IsDeleted

	result := fieldMerge{metadata: merged}

	if !baseExists {
		return result
	}

	if local.Parent != remote.Parent {
		result.parentConflict = true
		result.localParent = local.Parent
	}

	if local.NameHMAC != remote.NameHMAC && local.NameHMAC != base.NameHMAC {
		result.nameConflict = true
	}

	if docChanged(base.DocumentHMAC, local.DocumentHMAC) && docChanged(base.DocumentHMAC, remote.DocumentHMAC) &&
		docChanged(local.DocumentHMAC, remote.DocumentHMAC) {
		result.docConflict = true
		result.localDocHMAC = *local.DocumentHMAC
		if local.DocumentSize != nil {
			result.localDocSize = *local.DocumentSize
		}
	}

	merged.UserAccessKeys = mergeAccessKeys(base.UserAccessKeys, local.UserAccessKeys, remote.UserAccessKeys)
	result.metadata = merged
	return result
}

func docChanged(base, other *crypto.HMACDigest) bool {
	if base == nil && other == nil {
		return false
	}
	if base == nil || other == nil {
		return true
	}
	return *base != *other
}

// mergeAccessKeys unions the three sides' user_access_keys by recipient
// public key, per-entry: an entry is deleted iff it is deleted on either
// side that has it (§4.6.2).
func mergeAccessKeys(base, local, remote []tree.UserAccessKey) []tree.UserAccessKey {
	byRecipient := make(map[string]tree.UserAccessKey)
	order := make([]string, 0)

	add := func(keys []tree.UserAccessKey) {
		for _, k := range keys {
			recipient := string(k.EncryptedForPK)
			existing, ok := byRecipient[recipient]
			if !ok {
				byRecipient[recipient] = k
				order = append(order, recipient)
				continue
			}
			if k.Deleted || existing.Deleted {
				existing.Deleted = true
				byRecipient[recipient] = existing
			}
		}
	}
	add(base)
	add(local)
	add(remote)

	out := make([]tree.UserAccessKey, 0, len(order))
	for _, recipient := range order {
		out = append(out, byRecipient[recipient])
	}
	return out
}

// renameWithSuffix replays id's rename to baseName against lt, appending
// "-1", "-2", ... on a sibling-name collision until one is free — the
// deterministic tie-break §4.6.2/§4.6.3 both specify.
func renameWithSuffix(lt *tree.LazyTree, id uuid.UUID, baseName string, actor crypto.KeyPair, now time.Time) (tree.File, error) {
	name := baseName
	for n := 0; ; n++ {
		if n > 0 {
			name = fmt.Sprintf("%s-%d", baseName, n)
		}
		f, err := tree.Rename(lt, id, name, actor, now)
		if err == nil {
			return f, nil
		}
		if !tree.IsCode(err, tree.ErrDuplicateSiblingName) {
			return tree.File{}, err
		}
	}
}
