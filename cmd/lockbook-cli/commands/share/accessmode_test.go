package share

import (
	"testing"

	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

func TestAccessModeLabel(t *testing.T) {
	cases := []struct {
		mode tree.AccessMode
		want string
	}{
		{tree.NoAccess, "none"},
		{tree.Read, "read"},
		{tree.Write, "write"},
		{tree.Owner, "owner"},
	}

	for _, tt := range cases {
		if got := accessModeLabel(tt.mode); got != tt.want {
			t.Errorf("accessModeLabel(%v) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
