package commands

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"version", "sync", "integrity-check", "account", "file", "share", "completion"}

	got := make(map[string]bool)
	for _, cmd := range GetRootCmd().Commands() {
		got[cmd.Name()] = true
	}

	for _, name := range want {
		if !got[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}
