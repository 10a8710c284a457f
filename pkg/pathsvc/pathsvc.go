package pathsvc

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
	"golang.org/x/text/unicode/norm"
)

func segments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func normalize(s string) string { return norm.NFC.String(s) }

// resolveChild finds the child of parent whose decrypted name matches
// segment, transparently following a Link if that child happens to be one
// (§4.4's "traverses links transparently").
func resolveChild(lt *tree.LazyTree, parent uuid.UUID, segment string) (uuid.UUID, error) {
	children, err := lt.Children(parent)
	if err != nil {
		return uuid.Nil, err
	}
	segment = normalize(segment)
	for _, childID := range children {
		name, err := lt.Name(childID)
		if err != nil {
			continue
		}
		if normalize(name) != segment {
			continue
		}
		f, err := tree.Find(lt, childID)
		if err != nil {
			return uuid.Nil, err
		}
		if f.Value().FileType == tree.LinkType {
			return f.Value().LinkTarget, nil
		}
		return childID, nil
	}
	return uuid.Nil, ErrPathNotFound
}

// PathToID walks path from root, resolving each segment by decrypted name.
func PathToID(lt *tree.LazyTree, path string, root uuid.UUID) (uuid.UUID, error) {
	cur := root
	for _, seg := range segments(path) {
		next, err := resolveChild(lt, cur, seg)
		if err != nil {
			return uuid.Nil, err
		}
		cur = next
	}
	return cur, nil
}

// IDToPath ascends from id to root, decrypting each name; the root yields
// "/". A folder's path always carries a trailing slash.
func IDToPath(lt *tree.LazyTree, id uuid.UUID) (string, error) {
	var parts []string
	cur := id
	for {
		f, err := tree.Find(lt, cur)
		if err != nil {
			return "", err
		}
		m := f.Value()
		if m.IsRoot() {
			break
		}
		name, err := lt.Name(cur)
		if err != nil {
			return "", err
		}
		parts = append([]string{name}, parts...)
		cur = m.Parent
	}

	if len(parts) == 0 {
		return "/", nil
	}

	path := "/" + strings.Join(parts, "/")
	f, err := tree.Find(lt, id)
	if err != nil {
		return "", err
	}
	if f.Value().FileType == tree.Folder {
		path += "/"
	}
	return path, nil
}

// CreateAtPath creates every intermediate folder named by path that does
// not yet exist, returning the id of the terminal segment. A trailing
// slash makes the terminal segment a Folder; otherwise it is a Document
// (§4.4).
func CreateAtPath(lt *tree.LazyTree, path string, root uuid.UUID, actor crypto.KeyPair, now time.Time) (uuid.UUID, error) {
	segs := segments(path)
	if len(segs) == 0 {
		return uuid.Nil, ErrEmptyPath
	}
	isFolder := strings.HasSuffix(path, "/")

	cur := root
	for i, seg := range segs {
		last := i == len(segs)-1
		existing, err := resolveChild(lt, cur, seg)
		if err == nil {
			cur = existing
			continue
		}
		if err != ErrPathNotFound {
			return uuid.Nil, err
		}

		fileType := tree.Folder
		if last && !isFolder {
			fileType = tree.Document
		}

		id := uuid.New()
		if _, err := tree.Create(lt, id, cur, seg, fileType, actor, now); err != nil {
			return uuid.Nil, err
		}
		cur = id
	}
	return cur, nil
}
