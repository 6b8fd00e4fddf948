package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kaban-cli/kaban/cmd"
	"github.com/kaban-cli/kaban/internal/app"
	"github.com/kaban-cli/kaban/internal/commands"
	"github.com/kaban-cli/kaban/internal/config"
	"github.com/kaban-cli/kaban/internal/guard"
	"github.com/kaban-cli/kaban/internal/vcs"
)

const debugEnvVar = "KABAN_DEBUG"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrReservedName   = errors.New("not a command")
	errMissingObject  = errors.New("missing object")
	errMissingValue   = errors.New("missing value")
)

// Runner executes one kaban command line. The zero value runs against the
// real environment: ~/.kaban (or $KABAN_DIR), git, stdout and stderr.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Paths overrides the kaban directory layout.
	Paths *config.Paths
	// Repo overrides the git collaborator.
	Repo vcs.Repository
	Now  func() time.Time

	root   *cmd.RootCommand
	style  styles
	logger *slog.Logger
	quiet  bool
}

// Run executes the CLI entrypoint with the default environment.
func Run(rawArgs ...string) error {
	return (&Runner{}).Run(rawArgs...)
}

// Run parses rawArgs, checks the command's guards, runs its handler and
// saves at the commit point. The returned error is already reported to the
// user.
func (r *Runner) Run(rawArgs ...string) error {
	r.setDefaults()
	args := make([]string, len(rawArgs))
	copy(args, rawArgs)
	filtered, mode, err := parseCommandColorFlags(args)
	r.style = newStyles(r.Stdout, mode)
	if err != nil {
		r.printf("%s\n", r.style.Error(err.Error()))
		return err
	}
	args = filtered

	if len(args) == 0 || (len(args) == 1 && (args[0] == "-h" || args[0] == "--help")) {
		r.printf("%s\n", r.style.Header(r.root.Usage()))
		return nil
	}
	if len(args) == 1 && (args[0] == "-v" || args[0] == "--version") {
		r.printf("%s version %s\n", r.style.Success(r.root.Name()), r.root.Version())
		return nil
	}

	normalized := normalizeCommand(args[0])
	command, aliasUsed := commands.Resolve(normalized)
	if aliasUsed {
		r.logger.Debug("alias", "from", normalized, "to", command)
	}
	if commands.IsReserved(command) {
		r.printf("%s\n", r.style.Warning(fmt.Sprintf("`%s` is a setting, not a command. Try `kaban config %s`.", command, command)))
		r.printGeneralHelp()
		return fmt.Errorf("%w: %s", ErrReservedName, command)
	}
	spec, ok := commandTable[command]
	if !ok || !r.root.IsKnownCommand(command) {
		r.printUnknownCommandSuggestion(normalized, r.root.Commands())
		return fmt.Errorf("%w: %s", ErrUnknownCommand, normalized)
	}

	inv, err := parseInvocation(spec, args[1:])
	if err != nil {
		return r.printUsageError(command, err)
	}
	if inv.flags.help {
		r.printUsageForCommand(command)
		return nil
	}
	return r.execute(spec, inv)
}

func (r *Runner) setDefaults() {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.root == nil {
		r.root = cmd.NewRootCommand()
	}
	level := slog.LevelWarn
	if parseBoolEnv(debugEnvVar) {
		level = slog.LevelDebug
	}
	r.logger = slog.New(slog.NewTextHandler(r.Stderr, &slog.HandlerOptions{Level: level}))
}

func (r *Runner) execute(spec commandSpec, inv *invocation) error {
	paths := config.DefaultPaths()
	if r.Paths != nil {
		paths = *r.Paths
	}
	paths = paths.WithConfigFile(inv.flags.config)

	opts := app.Options{Paths: paths, Repo: r.Repo, Logger: r.logger}
	if inv.flags.local {
		local := true
		opts.LocalOverride = &local
	}
	env, err := app.New(context.Background(), opts)
	if err != nil {
		r.printf("%s\n", r.style.Error(err.Error()))
		r.printHelpPointer(spec.name)
		return err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			r.logger.Warn("failed to release lock", "err", cerr)
		}
	}()
	r.quiet = inv.flags.quiet || env.Settings.Quiet
	inv.env = env
	inv.now = r.Now()
	env.SetInvocation(inv.object, inv.trailing)

	if err := spec.chain().Check(env); err != nil {
		r.reportRejection(spec.name, inv, err)
		return err
	}
	if spec.locks {
		if err := env.Lock(); err != nil {
			r.printf("%s\n", r.style.Error(err.Error()))
			return err
		}
	}

	if err := spec.run(r, inv); err != nil {
		r.reportFailure(spec.name, err)
		return err
	}

	message := inv.commitMessage
	if message == "" {
		message = strings.TrimSpace("kaban " + spec.name + " " + inv.object)
	}
	if err := env.Commit(message); err != nil {
		r.printf("%s\n", r.style.Error(err.Error()))
		return err
	}
	return nil
}

// say prints chatter that quiet mode suppresses.
func (r *Runner) say(format string, args ...any) {
	if r.quiet {
		return
	}
	r.printf(format, args...)
}

// printf prints query output and diagnostics. Never suppressed.
func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.Stdout, format, args...)
}

func (r *Runner) reportRejection(command string, inv *invocation, err error) {
	switch {
	case errors.Is(err, guard.ErrUnexpectedObject):
		r.printf("%s\n", r.style.Error(fmt.Sprintf("Not sure what you mean by '%s'.", inv.object)))
		r.printf("%s\n", r.style.Muted(fmt.Sprintf("Check out `kaban help %s` for a list of options.", command)))
	case errors.Is(err, guard.ErrUnknownOptions):
		r.printf("%s\n", r.style.Error(fmt.Sprintf("`%s` doesn't look like a valid set of options.", strings.Join(inv.trailing, " "))))
		r.printf("%s\n", r.style.Muted(fmt.Sprintf("`kaban help %s` will hook you up if you need a refresher.", command)))
	case errors.Is(err, guard.ErrNotInitialized):
		r.printf("%s\n", r.style.Error(fmt.Sprintf("No kaban repo found at '%s'.", inv.env.Paths.Dir)))
		r.printf("%s\n", r.style.Muted("Pretty sure you need to run `kaban init` first."))
	case errors.Is(err, guard.ErrLocalModeRestricted):
		r.printf("%s\n", r.style.Error("Uh, that command is not available in local mode."))
		r.printf("%s\n", r.style.Muted("You might want to go `kaban config local false` first."))
	case errors.Is(err, guard.ErrNoRemoteURL):
		r.printf("%s\n", r.style.Error("No remote URL has been set."))
		r.printf("%s\n", r.style.Muted("Set one with `kaban remote URL`."))
	case errors.Is(err, guard.ErrNoCredentials):
		r.printf("%s\n", r.style.Error("The remote URL has no credentials in it."))
		r.printf("%s\n", r.style.Muted("Add them with `kaban user NAME` and `kaban token TOKEN`."))
	default:
		r.reportFailure(command, err)
	}
}

func (r *Runner) reportFailure(command string, err error) {
	r.printf("%s\n", r.style.Error(err.Error()))
	r.printHelpPointer(command)
}

func (r *Runner) printHelpPointer(command string) {
	r.printf("%s\n", r.style.Muted(fmt.Sprintf("See `kaban help %s` for usage.", command)))
}

func (r *Runner) printUsageError(command string, err error) error {
	r.printUsageForCommand(command)
	if err != nil {
		r.printf("%s\n", r.style.Error(err.Error()))
	}
	return err
}

func (r *Runner) printUnknownCommandSuggestion(raw string, known []string) {
	r.printf("%s\n", r.style.Error(fmt.Sprintf("I don't think `%s` is a valid command to be honest.", raw)))
	suggestions := suggestCommands(raw, known, 4)
	if len(suggestions) > 0 {
		r.printf("%s\n", r.style.SubHeader("Did you mean:"))
		for _, suggestion := range suggestions {
			r.printf("  %s\n", r.style.Success(suggestion))
		}
	}
	r.printf("%s\n", r.style.Muted("Take a look at `kaban help` if you need a list of commands."))
}

func normalizeCommand(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func suggestCommands(raw string, candidates []string, limit int) []string {
	target := normalizeCommand(raw)
	if target == "" {
		return nil
	}

	type suggestion struct {
		command string
		score   int
	}
	candidateScores := make([]suggestion, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = normalizeCommand(candidate)
		if candidate == "" {
			continue
		}
		switch {
		case strings.HasPrefix(candidate, target), strings.HasPrefix(target, candidate):
			candidateScores = append(candidateScores, suggestion{command: candidate, score: 0})
		case strings.Contains(candidate, target), strings.Contains(target, candidate):
			candidateScores = append(candidateScores, suggestion{command: candidate, score: 1})
		default:
			distance := commandDistance(candidate, target)
			if distance > 2 {
				continue
			}
			candidateScores = append(candidateScores, suggestion{command: candidate, score: distance + 1})
		}
	}

	sort.Slice(candidateScores, func(i, j int) bool {
		if candidateScores[i].score == candidateScores[j].score {
			return candidateScores[i].command < candidateScores[j].command
		}
		return candidateScores[i].score < candidateScores[j].score
	})

	if len(candidateScores) > limit {
		candidateScores = candidateScores[:limit]
	}
	out := make([]string, 0, len(candidateScores))
	for _, suggestion := range candidateScores {
		out = append(out, suggestion.command)
	}
	return out
}

// commandDistance is the Levenshtein distance between a and b.
func commandDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	cache := make([][]int, len(a)+1)
	for i := range cache {
		cache[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		cache[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		cache[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cache[i][j] = min(
				cache[i-1][j]+1,
				cache[i][j-1]+1,
				cache[i-1][j-1]+cost,
			)
		}
	}
	return cache[len(a)][len(b)]
}
