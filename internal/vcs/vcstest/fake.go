// Package vcstest provides an in-memory vcs.Repository for tests.
package vcstest

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/kaban-cli/kaban/internal/vcs"
)

// Commit records one call to Fake.Commit.
type Commit struct {
	Message string
	Files   []string
}

// Fake records calls instead of running git. A repository "exists" once
// Init succeeds; Init also creates Dir/.git so that other code inspecting
// the directory agrees.
type Fake struct {
	Dir string

	InitErr   error
	CommitErr error
	PushErr   error
	PullErr   error

	mu      sync.Mutex
	exists  bool
	remote  string
	commits []Commit
	pushes  int
	pulls   []bool
}

var _ vcs.Repository = (*Fake)(nil)

func New(dir string) *Fake {
	return &Fake{Dir: dir}
}

func (f *Fake) Exists(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exists || f.Dir == "" {
		return f.exists
	}
	_, err := os.Stat(filepath.Join(f.Dir, ".git"))
	return err == nil
}

func (f *Fake) Init(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitErr != nil {
		return f.InitErr
	}
	if f.Dir != "" {
		if err := os.MkdirAll(filepath.Join(f.Dir, ".git"), 0o755); err != nil {
			return err
		}
	}
	f.exists = true
	return nil
}

func (f *Fake) Commit(_ context.Context, message string, files ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.commits = append(f.commits, Commit{Message: message, Files: append([]string{}, files...)})
	return nil
}

func (f *Fake) RemoteURL(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote, f.remote != "", nil
}

func (f *Fake) SetRemoteURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = url
	return nil
}

func (f *Fake) Push(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PushErr != nil {
		return f.PushErr
	}
	f.pushes++
	return nil
}

func (f *Fake) Pull(_ context.Context, merge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PullErr != nil {
		return f.PullErr
	}
	f.pulls = append(f.pulls, merge)
	return nil
}

// Remote returns the current origin URL.
func (f *Fake) Remote() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote
}

// Commits returns a copy of the recorded commits.
func (f *Fake) Commits() []Commit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Commit{}, f.commits...)
}

func (f *Fake) Pushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes
}

// Pulls returns the merge flag of every Pull call.
func (f *Fake) Pulls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool{}, f.pulls...)
}
