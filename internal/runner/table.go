package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kaban-cli/kaban/internal/app"
	"github.com/kaban-cli/kaban/internal/commands"
	"github.com/kaban-cli/kaban/internal/guard"
)

type objectArity int

const (
	objectNone objectArity = iota
	objectOptional
	objectRequired
)

const (
	flagConfig   = "config"
	flagLocal    = "local"
	flagQuiet    = "quiet"
	flagHelp     = "help"
	flagMerge    = "merge"
	flagBag      = "bag"
	flagEstimate = "estimate"
	flagNotes    = "notes"
	flagEvery    = "every"
)

// Flags every command accepts.
var globalFlags = map[string]bool{flagConfig: true, flagLocal: true, flagQuiet: true, flagHelp: true}

type handler func(r *Runner, inv *invocation) error

// commandSpec declares a command: what it accepts, which guards protect
// it, and what runs once they pass.
type commandSpec struct {
	name   string
	object objectArity
	values int
	flags  []string
	guards []guard.Guard
	// locks takes the directory lock before the handler runs.
	locks bool
	run   handler
	usage commandUsageSpec
}

func (s commandSpec) chain() guard.Chain {
	return guard.NewChain(s.guards...)
}

func (s commandSpec) allowsFlag(name string) bool {
	if globalFlags[name] {
		return true
	}
	for _, allowed := range s.flags {
		if allowed == name {
			return true
		}
	}
	return false
}

type commandUsageSpec struct {
	summary  string
	usage    string
	options  []string
	examples []string
}

type invocationFlags struct {
	config   string
	local    bool
	quiet    bool
	help     bool
	merge    bool
	bag      string
	estimate string
	notes    string
	every    string
}

// invocation is one parsed command line plus the state handlers share.
type invocation struct {
	command  string
	object   string
	values   []string
	trailing []string
	flags    invocationFlags

	env           *app.Env
	now           time.Time
	commitMessage string
}

func (inv *invocation) value(i int) (string, bool) {
	if i < len(inv.values) {
		return inv.values[i], true
	}
	return "", false
}

var (
	baseGuards   = []guard.Guard{guard.NoTrailingArgs, guard.RepoInitialized}
	remoteGuards = []guard.Guard{guard.NoTrailingArgs, guard.RepoInitialized, guard.NotLocalMode, guard.RemoteConfigured}
	syncGuards   = []guard.Guard{guard.ObjectExpected(false), guard.NoTrailingArgs, guard.RepoInitialized, guard.NotLocalMode, guard.RemoteConfigured, guard.CredentialsPresent}
)

var commandTable map[string]commandSpec

func init() {
	specs := []commandSpec{
		{
			name:   commands.CmdInit,
			guards: []guard.Guard{guard.ObjectExpected(false), guard.NoTrailingArgs},
			run:    runInit,
			usage: commandUsageSpec{
				summary:  "Create the kaban directory with an empty task file, a default config and a git repository.",
				usage:    "kaban init [--local]",
				options:  []string{"--local    Keep task data only on this machine"},
				examples: []string{"kaban init", "KABAN_DIR=~/work-tasks kaban init --local"},
			},
		},
		{
			name:   commands.CmdHelp,
			object: objectOptional,
			guards: []guard.Guard{guard.NoTrailingArgs},
			run:    runHelp,
			usage: commandUsageSpec{
				summary:  "Print general usage, or help about one command.",
				usage:    "kaban help [COMMAND]",
				examples: []string{"kaban help", "kaban help push"},
			},
		},
		{
			name:   commands.CmdVersion,
			guards: []guard.Guard{guard.ObjectExpected(false), guard.NoTrailingArgs},
			run:    runVersion,
			usage: commandUsageSpec{
				summary: "Print the kaban version.",
				usage:   "kaban version",
			},
		},
		{
			name:   commands.CmdConfig,
			object: objectOptional,
			values: 1,
			guards: baseGuards,
			locks:  true,
			run:    runConfig,
			usage: commandUsageSpec{
				summary: "Show or change persistent settings.",
				usage:   "kaban config [KEY [VALUE]]",
				options: []string{
					"format   Data file format: toml or yaml",
					"local    Keep task data on this machine only: true or false",
					"quiet    Print messages only for query commands like list and show: true or false",
					"--config PATH   Read and write settings at PATH",
				},
				examples: []string{"kaban config", "kaban config format yaml", "kaban config local true"},
			},
		},
		{
			name:   commands.CmdRemote,
			object: objectOptional,
			guards: []guard.Guard{guard.NoTrailingArgs, guard.RepoInitialized, guard.NotLocalMode},
			locks:  true,
			run:    runRemote,
			usage: commandUsageSpec{
				summary:  "Set or print the git URL changes are pushed to. Tokens are never printed.",
				usage:    "kaban remote [URL]",
				examples: []string{"kaban remote https://github.com/mreynolds/tasks.git"},
			},
		},
		{
			name:   commands.CmdUser,
			object: objectOptional,
			guards: remoteGuards,
			locks:  true,
			run:    runUser,
			usage: commandUsageSpec{
				summary:  "Set or print the username stored in the remote URL.",
				usage:    "kaban user [NAME]",
				examples: []string{"kaban user mreynolds"},
			},
		},
		{
			name:   commands.CmdToken,
			object: objectOptional,
			guards: remoteGuards,
			locks:  true,
			run:    runToken,
			usage: commandUsageSpec{
				summary:  "Store an access token in the remote URL, or report whether one is set. Requires a username.",
				usage:    "kaban token [TOKEN]",
				examples: []string{"kaban token ghp_03K64Firefly"},
			},
		},
		{
			name:   commands.CmdAdd,
			object: objectRequired,
			flags:  []string{flagBag, flagEstimate, flagNotes, flagEvery},
			guards: baseGuards,
			locks:  true,
			run:    runAdd,
			usage: commandUsageSpec{
				summary: "Add a task at the top level or to a bag.",
				usage:   "kaban add TITLE [--bag BAG] [--estimate DURATION] [--notes TEXT] [--every RECURRENCE]",
				options: []string{
					"--bag BAG               Add to this bag instead of the top level",
					"--estimate DURATION     Expected effort, e.g. 45m or 1h30m",
					"--notes TEXT            Free-form notes",
					"--every RECURRENCE      daily, weekdays, weekly, monthly or yearly",
				},
				examples: []string{`kaban add "Buy milk"`, `kaban add "Write report" --bag Work --estimate 2h`},
			},
		},
		{
			name:   commands.CmdBag,
			object: objectRequired,
			flags:  []string{flagNotes},
			guards: baseGuards,
			locks:  true,
			run:    runBag,
			usage: commandUsageSpec{
				summary:  "Create a bag to group related tasks.",
				usage:    "kaban bag TITLE [--notes TEXT]",
				examples: []string{"kaban bag Work"},
			},
		},
		{
			name:   commands.CmdList,
			flags:  []string{flagBag},
			guards: append([]guard.Guard{guard.ObjectExpected(false)}, baseGuards...),
			run:    runList,
			usage: commandUsageSpec{
				summary:  "List top-level tasks, then every bag with its tasks.",
				usage:    "kaban list [--bag BAG]",
				examples: []string{"kaban list", "kaban list --bag Work"},
			},
		},
		{
			name:   commands.CmdShow,
			object: objectRequired,
			guards: baseGuards,
			run:    runShow,
			usage: commandUsageSpec{
				summary: "Show one task or bag in detail.",
				usage:   "kaban show REF",
				options: []string{
					"REF is a position (3), a position in a bag (Work/2), a title, or an id prefix",
					"Positions win over numeric titles; exact titles win over id prefixes",
				},
				examples: []string{"kaban show 1", `kaban show "Work/Call Kaylee"`},
			},
		},
		{
			name:   commands.CmdLog,
			object: objectRequired,
			values: 1,
			guards: baseGuards,
			locks:  true,
			run:    runLog,
			usage: commandUsageSpec{
				summary:  "Record time spent on a task. Fails if it would exceed the estimate.",
				usage:    "kaban log REF DURATION",
				examples: []string{"kaban log 2 30m", "kaban log Work/1 1h15m"},
			},
		},
		{
			name:   commands.CmdEstimate,
			object: objectRequired,
			values: 1,
			guards: baseGuards,
			locks:  true,
			run:    runEstimate,
			usage: commandUsageSpec{
				summary:  "Set or clear (with 0) the estimate of a task.",
				usage:    "kaban estimate REF DURATION",
				examples: []string{"kaban estimate 2 3h", "kaban estimate 2 0"},
			},
		},
		{
			name:   commands.CmdDone,
			object: objectRequired,
			guards: baseGuards,
			locks:  true,
			run:    runDone,
			usage: commandUsageSpec{
				summary:  "Mark a task complete. Recurring tasks reset and stay on the list.",
				usage:    "kaban done REF",
				examples: []string{"kaban done 1"},
			},
		},
		{
			name:   commands.CmdRm,
			object: objectRequired,
			guards: baseGuards,
			locks:  true,
			run:    runRemove,
			usage: commandUsageSpec{
				summary:  "Remove a task, or a bag together with its tasks.",
				usage:    "kaban rm REF",
				examples: []string{"kaban rm 3", "kaban rm Work"},
			},
		},
		{
			name:   commands.CmdPush,
			guards: syncGuards,
			locks:  true,
			run:    runPush,
			usage: commandUsageSpec{
				summary: "Upload committed task data to the remote.",
				usage:   "kaban push",
			},
		},
		{
			name:   commands.CmdPull,
			flags:  []string{flagMerge},
			guards: syncGuards,
			locks:  true,
			run:    runPull,
			usage: commandUsageSpec{
				summary: "Download task data from the remote. Only fast-forwards unless --merge is given.",
				usage:   "kaban pull [--merge]",
				options: []string{"--merge    Merge diverged histories instead of failing"},
			},
		},
	}

	commandTable = make(map[string]commandSpec, len(specs))
	for _, spec := range specs {
		commandTable[spec.name] = spec
	}
}

// parseInvocation splits args into object, values and leftovers. Unknown
// flags, and known flags the command does not take, become trailing
// tokens so the NoTrailingArgs guard reports them.
func parseInvocation(spec commandSpec, args []string) (*invocation, error) {
	inv := &invocation{command: spec.name}

	fs := pflag.NewFlagSet(spec.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.StringVar(&inv.flags.config, flagConfig, "", "config file path")
	fs.BoolVar(&inv.flags.local, flagLocal, false, "local mode for this invocation")
	fs.BoolVarP(&inv.flags.quiet, flagQuiet, "q", false, "suppress non-query output")
	fs.BoolVarP(&inv.flags.help, flagHelp, "h", false, "show command help")
	fs.BoolVar(&inv.flags.merge, flagMerge, false, "merge on pull")
	fs.StringVar(&inv.flags.bag, flagBag, "", "bag title")
	fs.StringVar(&inv.flags.estimate, flagEstimate, "", "estimate duration")
	fs.StringVar(&inv.flags.notes, flagNotes, "", "notes")
	fs.StringVar(&inv.flags.every, flagEvery, "", "recurrence")

	known, unknown := splitUnknownFlags(fs, args)
	if err := fs.Parse(known); err != nil {
		return nil, fmt.Errorf("%w: %v", guard.ErrUnknownOptions, err)
	}
	fs.Visit(func(f *pflag.Flag) {
		if !spec.allowsFlag(f.Name) {
			unknown = append(unknown, "--"+f.Name)
		}
	})

	positional := fs.Args()
	if len(positional) > 0 {
		inv.object = positional[0]
		positional = positional[1:]
	}
	if spec.object != objectNone {
		take := min(spec.values, len(positional))
		inv.values = positional[:take]
		positional = positional[take:]
	}
	inv.trailing = append(positional, unknown...)
	return inv, nil
}

// splitUnknownFlags moves flags fs does not define out of args.
func splitUnknownFlags(fs *pflag.FlagSet, args []string) ([]string, []string) {
	known := make([]string, 0, len(args))
	var unknown []string
	for i, arg := range args {
		if arg == "--" {
			known = append(known, args[i:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			known = append(known, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		name, _, _ = strings.Cut(name, "=")
		var flag *pflag.Flag
		if strings.HasPrefix(arg, "--") {
			flag = fs.Lookup(name)
		} else if len(name) == 1 {
			flag = fs.ShorthandLookup(name)
		}
		if flag == nil {
			unknown = append(unknown, arg)
			continue
		}
		known = append(known, arg)
	}
	return known, unknown
}
