package share

import "github.com/lockbookapp/lockbook-core/pkg/tree"

func accessModeLabel(m tree.AccessMode) string {
	switch m {
	case tree.Read:
		return "read"
	case tree.Write:
		return "write"
	case tree.Owner:
		return "owner"
	default:
		return "none"
	}
}
