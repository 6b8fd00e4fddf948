package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kaban-cli/kaban/internal/config"
	"github.com/kaban-cli/kaban/internal/guard"
	"github.com/kaban-cli/kaban/internal/loader"
	"github.com/kaban-cli/kaban/internal/models"
	"github.com/kaban-cli/kaban/internal/vcs"
)

// ErrLocked means another kaban command holds the directory lock.
var ErrLocked = errors.New("another kaban command is running")

const gitignore = config.LockFileName + "\n*.tmp\n"

// Options configure a new Env.
type Options struct {
	Paths  config.Paths
	Repo   vcs.Repository
	Logger *slog.Logger
	// LocalOverride forces local mode for this invocation without saving it.
	LocalOverride *bool
}

// Env is the state of one kaban invocation: resolved paths, settings, the
// git collaborator, and the task store once loaded. It implements
// guard.State.
type Env struct {
	Paths    config.Paths
	Settings config.Settings
	Repo     vcs.Repository
	Logger   *slog.Logger

	ctx      context.Context
	object   string
	trailing []string
	local    *bool

	store         *models.TaskStore
	storeDirty    bool
	settingsDirty bool

	repoChecked bool
	repoExists  bool
	remote      *remoteState

	lockFile *flock.Flock
}

type remoteState struct {
	url string
	ok  bool
}

var _ guard.State = (*Env)(nil)

// New loads settings and prepares an Env. Nothing is locked or written.
func New(ctx context.Context, opts Options) (*Env, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	settings, err := config.LoadSettings(opts.Paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	repo := opts.Repo
	if repo == nil {
		repo = vcs.NewGit(opts.Paths.Dir, logger)
	}
	return &Env{
		Paths:    opts.Paths,
		Settings: settings,
		Repo:     repo,
		Logger:   logger,
		ctx:      ctx,
		local:    opts.LocalOverride,
	}, nil
}

func (e *Env) Context() context.Context {
	return e.ctx
}

// SetInvocation records the object and the unconsumed tokens of the
// command line for the guards.
func (e *Env) SetInvocation(object string, trailing []string) {
	e.object = object
	e.trailing = trailing
}

func (e *Env) Object() string {
	return e.object
}

func (e *Env) Trailing() []string {
	return e.trailing
}

func (e *Env) DataFileExists() bool {
	return e.loader().Exists()
}

func (e *Env) LocalMode() bool {
	if e.local != nil {
		return *e.local
	}
	return e.Settings.Local
}

func (e *Env) RepoExists() bool {
	if !e.repoChecked {
		e.repoExists = e.Repo.Exists(e.ctx)
		e.repoChecked = true
	}
	return e.repoExists
}

func (e *Env) RemoteURL() (string, bool) {
	if e.remote == nil {
		url, ok, err := e.Repo.RemoteURL(e.ctx)
		if err != nil {
			e.Logger.Debug("remote lookup failed", "err", err)
		}
		e.remote = &remoteState{url: url, ok: ok && err == nil}
	}
	return e.remote.url, e.remote.ok
}

// SetRemoteURL updates origin and the cached value the guards see.
func (e *Env) SetRemoteURL(url string) error {
	if err := e.Repo.SetRemoteURL(e.ctx, url); err != nil {
		return err
	}
	e.remote = &remoteState{url: url, ok: url != ""}
	return nil
}

func (e *Env) loader() *loader.Loader {
	return loader.New(e.Paths, e.Settings.Format, e.Logger)
}

// Store loads the task store on first use. A missing data file yields an
// empty store.
func (e *Env) Store() (*models.TaskStore, error) {
	if e.store != nil {
		return e.store, nil
	}
	store, err := e.loader().Load()
	if err != nil && !errors.Is(err, loader.ErrNotFound) {
		return nil, err
	}
	e.store = store
	return e.store, nil
}

// MarkDirty schedules the store for saving at the commit point.
func (e *Env) MarkDirty() {
	e.storeDirty = true
}

// UpdateSettings applies fn and schedules the settings for saving. A
// format change also rewrites the store in the new format.
func (e *Env) UpdateSettings(fn func(*config.Settings) error) error {
	next := e.Settings
	if err := fn(&next); err != nil {
		return err
	}
	if next == e.Settings {
		return nil
	}
	if next.Format != e.Settings.Format && e.DataFileExists() {
		if _, err := e.Store(); err != nil {
			return err
		}
		e.storeDirty = true
	}
	e.Settings = next
	e.settingsDirty = true
	return nil
}

// Lock takes the directory lock. The kaban directory must exist.
func (e *Env) Lock() error {
	if err := config.ValidateDataDir(e.Paths.Dir); err != nil {
		return err
	}
	e.lockFile = flock.New(e.Paths.LockFile())
	locked, err := e.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock held on %s)", ErrLocked, e.Paths.LockFile())
	}
	e.Logger.Debug("lock acquired", "path", e.Paths.LockFile())
	return nil
}

// Close releases the lock.
func (e *Env) Close() error {
	if e.lockFile == nil {
		return nil
	}
	return e.lockFile.Unlock()
}

// Initialize creates and locks the kaban directory, writes an empty data
// file and the default config when they are missing, then a git repository. Existing
// files are left untouched. Git failures are only warnings in local mode.
func (e *Env) Initialize() (bool, error) {
	if err := os.MkdirAll(e.Paths.Dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", e.Paths.Dir, err)
	}
	if e.lockFile == nil {
		if err := e.Lock(); err != nil {
			return false, err
		}
	}
	created := false
	if !e.DataFileExists() {
		e.store = models.NewTaskStore()
		e.storeDirty = true
		created = true
	}
	if !config.FileExists(e.Paths.ConfigFile) {
		e.settingsDirty = true
		created = true
	}
	ignorePath := filepath.Join(e.Paths.Dir, ".gitignore")
	if !config.FileExists(ignorePath) {
		if err := os.WriteFile(ignorePath, []byte(gitignore), 0o644); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", ignorePath, err)
		}
	}
	if !e.RepoExists() {
		if err := e.Repo.Init(e.ctx); err != nil {
			if !e.LocalMode() {
				return false, fmt.Errorf("failed to initialize git repository: %w", err)
			}
			e.Logger.Warn("git init failed, continuing in local mode", "err", err)
		} else {
			e.repoChecked, e.repoExists = true, true
			created = true
			// Files from an earlier local-only init go into the first commit.
			if _, err := e.Store(); err != nil {
				return false, err
			}
			e.storeDirty, e.settingsDirty = true, true
		}
	}
	return created, nil
}

// Commit is the single write point of a command: the store and settings
// are saved when changed, then committed to git when a repository exists.
func (e *Env) Commit(message string) error {
	var files []string
	if e.storeDirty && e.store != nil {
		l := e.loader()
		if err := l.Save(e.store); err != nil {
			return err
		}
		files = append(files, l.Path())
		e.storeDirty = false
	}
	if e.settingsDirty {
		if err := config.SaveSettings(e.Paths.ConfigFile, e.Settings); err != nil {
			return err
		}
		if filepath.Dir(e.Paths.ConfigFile) == filepath.Clean(e.Paths.Dir) {
			files = append(files, e.Paths.ConfigFile)
		}
		e.settingsDirty = false
	}
	if len(files) == 0 || !e.RepoExists() {
		return nil
	}
	if ignorePath := filepath.Join(e.Paths.Dir, ".gitignore"); config.FileExists(ignorePath) {
		files = append(files, ignorePath)
	}
	if err := e.Repo.Commit(e.ctx, message, files...); err != nil {
		if e.LocalMode() {
			e.Logger.Warn("git commit failed", "err", err)
			return nil
		}
		return fmt.Errorf("failed to commit changes: %w", err)
	}
	return nil
}
