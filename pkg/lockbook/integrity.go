package lockbook

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// utf8CheckedSuffixes mirrors the original integrity service's extension
// allowlist: file types where non-UTF-8 content is almost certainly a
// sign of corruption rather than a legitimate binary document.
var utf8CheckedSuffixes = map[string]bool{
	"md": true, "txt": true, "text": true, "markdown": true,
	"sh": true, "zsh": true, "bash": true, "html": true,
	"css": true, "js": true, "csv": true, "rs": true, "go": true,
}

// WarningKind categorizes one TestRepoIntegrity finding.
type WarningKind int

const (
	EmptyFile WarningKind = iota
	InvalidUTF8
)

func (k WarningKind) String() string {
	switch k {
	case EmptyFile:
		return "EmptyFile"
	case InvalidUTF8:
		return "InvalidUTF8"
	default:
		return "Unknown"
	}
}

// Warning is one non-fatal integrity finding about a document's content.
type Warning struct {
	Kind WarningKind
	ID   uuid.UUID
}

// TestRepoIntegrity re-validates the tree's structural invariants and
// scans every non-deleted document for content-level problems (§6.3
// test_repo_integrity): empty documents and documents whose extension
// implies UTF-8 text but whose content fails to decode as such.
func (c *Core) TestRepoIntegrity(ctx context.Context) ([]Warning, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	if err := tree.Validate(c.lt, time.Now()); err != nil {
		return nil, err
	}

	for _, id := range c.lt.IDs() {
		f, err := tree.Find(c.lt, id)
		if err != nil {
			return nil, err
		}
		m := f.Value()
		if m.IsRoot() {
			continue
		}
		if _, ok := c.lt.MaybeFind(m.Parent); !ok {
			return nil, fmt.Errorf("lockbook: integrity: file %s is orphaned, its parent does not exist", id)
		}

		name, err := c.lt.Name(id)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("lockbook: integrity: file %s has an empty name", id)
		}
		if strings.Contains(name, "/") {
			return nil, fmt.Errorf("lockbook: integrity: file %s has a name containing a slash", id)
		}

		if m.FileType == tree.Document {
			children, err := c.lt.Children(id)
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				return nil, fmt.Errorf("lockbook: integrity: document %s has children", id)
			}
		}
	}

	var warnings []Warning
	for _, id := range c.lt.IDs() {
		f, err := tree.Find(c.lt, id)
		if err != nil {
			return nil, err
		}
		m := f.Value()
		if m.FileType != tree.Document {
			continue
		}
		deleted, err := c.lt.Deleted(id)
		if err != nil {
			return nil, err
		}
		if deleted || m.DocumentHMAC == nil {
			continue
		}

		content, err := c.readDocumentLocked(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lockbook: integrity: read document %s: %w", id, err)
		}
		if len(content) == 0 {
			warnings = append(warnings, Warning{Kind: EmptyFile, ID: id})
			continue
		}

		name, err := c.lt.Name(id)
		if err != nil {
			return nil, err
		}
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		if utf8CheckedSuffixes[ext] && !utf8.Valid(content) {
			warnings = append(warnings, Warning{Kind: InvalidUTF8, ID: id})
		}
	}

	return warnings, nil
}
