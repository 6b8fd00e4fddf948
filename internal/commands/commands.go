package commands

// Command names accepted by kaban.
const (
	CmdInit     = "init"
	CmdHelp     = "help"
	CmdVersion  = "version"
	CmdConfig   = "config"
	CmdRemote   = "remote"
	CmdUser     = "user"
	CmdToken    = "token"
	CmdAdd      = "add"
	CmdBag      = "bag"
	CmdList     = "list"
	CmdShow     = "show"
	CmdLog      = "log"
	CmdEstimate = "estimate"
	CmdDone     = "done"
	CmdRm       = "rm"
	CmdPush     = "push"
	CmdPull     = "pull"
)

// Reserved names are settings attributes rather than commands. They are
// recognized so that typing one prints help instead of a "did you mean".
const (
	ReservedFormat = "format"
	ReservedLocal  = "local"
	ReservedQuiet  = "quiet"
	ReservedPath   = "path"
)

// Aliases map shorthand names onto commands.
var Aliases = map[string]string{
	"ls":     CmdList,
	"new":    CmdAdd,
	"remove": CmdRm,
	"del":    CmdRm,
	"est":    CmdEstimate,
}

// All lists every invocable command.
func All() []string {
	return []string{
		CmdInit, CmdHelp, CmdVersion, CmdConfig, CmdRemote, CmdUser, CmdToken,
		CmdAdd, CmdBag, CmdList, CmdShow, CmdLog, CmdEstimate, CmdDone, CmdRm,
		CmdPush, CmdPull,
	}
}

// Reserved lists the non-invocable names.
func Reserved() []string {
	return []string{ReservedFormat, ReservedLocal, ReservedQuiet, ReservedPath}
}

// IsReserved reports whether name is a reserved, non-invocable name.
func IsReserved(name string) bool {
	for _, reserved := range Reserved() {
		if reserved == name {
			return true
		}
	}
	return false
}

// Resolve maps an alias onto its command. The bool reports whether an
// alias was used.
func Resolve(name string) (string, bool) {
	if target, ok := Aliases[name]; ok {
		return target, true
	}
	return name, false
}
