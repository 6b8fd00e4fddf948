// Package vcs drives the git repository that backs a kaban directory.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kaban-cli/kaban/internal/credentials"
)

const (
	DefaultRemote  = "origin"
	DefaultTimeout = 30 * time.Second
	// Network operations get longer.
	NetworkTimeout = 2 * time.Minute

	fallbackUserName  = "kaban"
	fallbackUserEmail = "kaban@localhost"
)

// ErrGitUnavailable means the git binary could not be found.
var ErrGitUnavailable = errors.New("git executable not found")

// Repository is the narrow surface kaban needs from version control.
type Repository interface {
	Exists(ctx context.Context) bool
	Init(ctx context.Context) error
	Commit(ctx context.Context, message string, files ...string) error
	RemoteURL(ctx context.Context) (string, bool, error)
	SetRemoteURL(ctx context.Context, url string) error
	Push(ctx context.Context) error
	Pull(ctx context.Context, merge bool) error
}

// CommandError is a failed git invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), detail)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Git implements Repository with the git binary, run inside Dir.
type Git struct {
	Dir     string
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

var _ Repository = (*Git)(nil)

func NewGit(dir string, logger *slog.Logger) *Git {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Git{Dir: dir, Binary: "git", Timeout: DefaultTimeout, Logger: logger}
}

// Exists reports whether Dir is the top of a git work tree.
func (g *Git) Exists(ctx context.Context) bool {
	_, err := os.Stat(filepath.Join(g.Dir, ".git"))
	return err == nil
}

// Init creates the repository. Running it on an existing repository is
// harmless.
func (g *Git) Init(ctx context.Context) error {
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", g.Dir, err)
	}
	_, err := g.run(ctx, g.Timeout, "init")
	return err
}

// Commit stages files and commits them. Nothing staged is not an error.
func (g *Git) Commit(ctx context.Context, message string, files ...string) error {
	if len(files) == 0 {
		files = []string{"."}
	}
	addArgs := append([]string{"add", "--"}, files...)
	if _, err := g.run(ctx, g.Timeout, addArgs...); err != nil {
		return err
	}

	if _, err := g.run(ctx, g.Timeout, "diff", "--cached", "--quiet"); err == nil {
		g.Logger.Debug("nothing to commit", "dir", g.Dir)
		return nil
	} else if !isExitCode(err, 1) {
		return err
	}

	args := []string{"commit", "--quiet", "-m", message}
	if !g.hasIdentity(ctx) {
		args = append([]string{"-c", "user.name=" + fallbackUserName, "-c", "user.email=" + fallbackUserEmail}, args...)
	}
	_, err := g.run(ctx, g.Timeout, args...)
	return err
}

// RemoteURL returns the origin URL. The bool is false when none is set.
func (g *Git) RemoteURL(ctx context.Context) (string, bool, error) {
	out, err := g.run(ctx, g.Timeout, "config", "--get", "remote."+DefaultRemote+".url")
	if err != nil {
		if isExitCode(err, 1) {
			return "", false, nil
		}
		return "", false, err
	}
	url := strings.TrimSpace(out)
	return url, url != "", nil
}

// SetRemoteURL points origin at url, adding the remote if needed.
func (g *Git) SetRemoteURL(ctx context.Context, url string) error {
	_, exists, err := g.RemoteURL(ctx)
	if err != nil {
		return err
	}
	if exists {
		_, err = g.run(ctx, g.Timeout, "remote", "set-url", DefaultRemote, url)
	} else {
		_, err = g.run(ctx, g.Timeout, "remote", "add", DefaultRemote, url)
	}
	return err
}

func (g *Git) Push(ctx context.Context) error {
	_, err := g.run(ctx, NetworkTimeout, "push", "--set-upstream", DefaultRemote, "HEAD")
	return err
}

// Pull fetches origin's copy of the current branch. Without merge only a
// fast-forward is accepted.
func (g *Git) Pull(ctx context.Context, merge bool) error {
	branch, err := g.run(ctx, g.Timeout, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return err
	}
	mode := "--ff-only"
	if merge {
		mode = "--no-rebase"
	}
	_, err = g.run(ctx, NetworkTimeout, "pull", mode, DefaultRemote, strings.TrimSpace(branch))
	return err
}

func (g *Git) hasIdentity(ctx context.Context) bool {
	name, err := g.run(ctx, g.Timeout, "config", "user.name")
	if err != nil || strings.TrimSpace(name) == "" {
		return false
	}
	email, err := g.run(ctx, g.Timeout, "config", "user.email")
	return err == nil && strings.TrimSpace(email) != ""
}

func (g *Git) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "git"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGitUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.Logger.Debug("git", "args", redactArgs(args), "dir", g.Dir)
	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{Args: redactArgs(args), Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.String(), cmdErr
	}
	return stdout.String(), nil
}

func isExitCode(err error, code int) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.ExitCode == code
}

// redactArgs masks tokens embedded in remote URLs so they never reach logs
// or error messages.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if strings.Contains(arg, "://") {
			arg = credentials.Redact(arg)
		}
		out[i] = arg
	}
	return out
}
