package cmd

import (
	"strings"
	"testing"
)

func TestNewRootCommandDefaults(t *testing.T) {
	t.Parallel()

	command := NewRootCommand()
	if command == nil {
		t.Fatal("NewRootCommand() returned nil")
	}
	if command.Name() != "kaban" {
		t.Fatalf("name = %q, expected kaban", command.Name())
	}
	if command.Version() != Version {
		t.Fatalf("version = %q, expected %q", command.Version(), Version)
	}

	usage := command.Usage()
	if !strings.HasPrefix(usage, "Usage: kaban <command>") {
		t.Fatalf("usage = %q, expected kaban banner", usage)
	}
	if !strings.Contains(usage, "push") || !strings.Contains(usage, "kaban help <command>") {
		t.Fatalf("usage = %q, expected command list and help pointer", usage)
	}

	if !command.IsKnownCommand("init") {
		t.Fatal("init should be known command")
	}
	if command.IsKnownCommand("format") {
		t.Fatal("reserved names should not be known commands")
	}

	names := command.Commands()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Commands() not sorted: %v", names)
		}
	}
	names[0] = "mutated"
	if command.Commands()[0] == "mutated" {
		t.Fatal("Commands() should return a copy")
	}
}
