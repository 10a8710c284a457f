package syncer

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// repairStructure applies the §4.6.3 rules in their mandated order against
// the tentative merged tree, re-signing anything it touches as actor.
func repairStructure(lt *tree.LazyTree, rootID uuid.UUID, actor crypto.KeyPair, now time.Time) error {
	if err := breakCycles(lt, rootID, actor, now); err != nil {
		return err
	}
	if err := renameDuplicateSiblings(lt, actor, now); err != nil {
		return err
	}
	// Deleted-ancestor cleanup is a no-op at the tree level: the deletion
	// closure is derived by LazyTree.Deleted, never materialized, so
	// there is nothing here to repair. Document-store GC for settled
	// deletions happens in Prune.
	if err := adoptOrphans(lt, rootID, actor, now); err != nil {
		return err
	}
	return nil
}

// breakCycles finds every cycle among {a -> b -> ... -> a} and re-parents
// the file with the lexicographically smallest id in each cycle to the
// actor's root.
func breakCycles(lt *tree.LazyTree, rootID uuid.UUID, actor crypto.KeyPair, now time.Time) error {
	ids := lt.IDs()
	visited := make(map[uuid.UUID]bool)

	for _, start := range ids {
		if visited[start] {
			continue
		}
		path := []uuid.UUID{}
		cur := start
		onPath := make(map[uuid.UUID]int)
		for {
			if visited[cur] {
				break
			}
			if idx, ok := onPath[cur]; ok {
				cycle := path[idx:]
				smallest := cycle[0]
				for _, id := range cycle[1:] {
					if less(id, smallest) {
						smallest = id
					}
				}
				if _, err := tree.MoveFile(lt, smallest, rootID, actor, now); err != nil {
					return err
				}
				break
			}
			f, ok := lt.MaybeFind(cur)
			if !ok {
				break
			}
			m := f.Value()
			if m.IsRoot() {
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)
			cur = m.Parent
		}
		for _, id := range path {
			visited[id] = true
		}
	}
	return nil
}

func less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// renameDuplicateSiblings finds, for every parent, files that share both a
// parent and a name_hmac and renames every one but the smallest id,
// appending the minimal numeric suffix that clears the collision.
func renameDuplicateSiblings(lt *tree.LazyTree, actor crypto.KeyPair, now time.Time) error {
	files, err := tree.AllFiles(lt)
	if err != nil {
		return err
	}

	byParentHMAC := make(map[uuid.UUID]map[crypto.HMACDigest][]uuid.UUID)
	for _, f := range files {
		m := f.Value()
		if m.IsRoot() {
			continue
		}
		byHMAC := byParentHMAC[m.Parent]
		if byHMAC == nil {
			byHMAC = make(map[crypto.HMACDigest][]uuid.UUID)
			byParentHMAC[m.Parent] = byHMAC
		}
		byHMAC[m.NameHMAC] = append(byHMAC[m.NameHMAC], m.ID)
	}

	for _, byHMAC := range byParentHMAC {
		for _, ids := range byHMAC {
			if len(ids) < 2 {
				continue
			}
			smallest := ids[0]
			for _, id := range ids[1:] {
				if less(id, smallest) {
					smallest = id
				}
			}
			for _, id := range ids {
				if id == smallest {
					continue
				}
				name, err := lt.Name(id)
				if err != nil {
					return err
				}
				if _, err := renameWithSuffix(lt, id, name, actor, now); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// adoptOrphans re-parents any file whose parent does not exist in the
// merged tree to the actor's root; defensive against a remote deletion
// that removed a folder whose child arrived unrelated.
func adoptOrphans(lt *tree.LazyTree, rootID uuid.UUID, actor crypto.KeyPair, now time.Time) error {
	files, err := tree.AllFiles(lt)
	if err != nil {
		return err
	}
	for _, f := range files {
		m := f.Value()
		if m.IsRoot() {
			continue
		}
		if _, ok := lt.MaybeFind(m.Parent); ok {
			continue
		}
		if _, err := tree.MoveFile(lt, m.ID, rootID, actor, now); err != nil {
			return err
		}
	}
	return nil
}
