package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaban-cli/kaban/internal/commands"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.3.0"

// RootCommand captures shared CLI metadata and the supported command list.
type RootCommand struct {
	name     string
	version  string
	commands []string
}

func NewRootCommand() *RootCommand {
	names := commands.All()
	sort.Strings(names)

	return &RootCommand{
		name:     "kaban",
		version:  Version,
		commands: names,
	}
}

func (r *RootCommand) Name() string {
	return r.name
}

func (r *RootCommand) Version() string {
	return r.version
}

func (r *RootCommand) Commands() []string {
	out := append([]string{}, r.commands...)
	sort.Strings(out)
	return out
}

func (r *RootCommand) IsKnownCommand(candidate string) bool {
	for _, command := range r.commands {
		if command == candidate {
			return true
		}
	}
	return false
}

func (r *RootCommand) Usage() string {
	return fmt.Sprintf(`Usage: %s <command> [<object>] [values...] [options]

Commands:
  %s

Run '%s help <command>' for detailed usage on a command.`, r.name, strings.Join(r.commands, ", "), r.name)
}
