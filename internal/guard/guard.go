// Package guard holds the preconditions commands declare before they run.
//
// Guards are evaluated in a fixed order and evaluation stops at the first
// failure, so a command is never told about a missing remote when kaban
// has not been initialized at all.
package guard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kaban-cli/kaban/internal/credentials"
)

var (
	ErrUnexpectedObject    = errors.New("this command does not take an object")
	ErrUnknownOptions      = errors.New("unexpected arguments")
	ErrNotInitialized      = errors.New("no kaban repo found")
	ErrLocalModeRestricted = errors.New("not available in local mode")
	ErrNoRemoteURL         = errors.New("no remote url configured")
	ErrNoCredentials       = errors.New("no credentials in the remote url")
)

// Kind identifies a guard. The numeric order is the evaluation order.
type Kind int

const (
	KindObjectExpected Kind = iota
	KindNoTrailingArgs
	KindRepoInitialized
	KindNotLocalMode
	KindRemoteConfigured
	KindCredentialsPresent
)

func (k Kind) String() string {
	switch k {
	case KindObjectExpected:
		return "object-expected"
	case KindNoTrailingArgs:
		return "no-trailing-args"
	case KindRepoInitialized:
		return "repo-initialized"
	case KindNotLocalMode:
		return "not-local-mode"
	case KindRemoteConfigured:
		return "remote-configured"
	case KindCredentialsPresent:
		return "credentials-present"
	default:
		return fmt.Sprintf("guard(%d)", int(k))
	}
}

// State is what guards inspect. Implementations should compute values
// lazily; a guard that is never reached never asks.
type State interface {
	Object() string
	Trailing() []string
	DataFileExists() bool
	LocalMode() bool
	RepoExists() bool
	RemoteURL() (string, bool)
}

// Guard is one precondition.
type Guard struct {
	Kind Kind
	// allowObject only applies to KindObjectExpected.
	allowObject bool
}

func ObjectExpected(allowed bool) Guard {
	return Guard{Kind: KindObjectExpected, allowObject: allowed}
}

var (
	NoTrailingArgs     = Guard{Kind: KindNoTrailingArgs}
	RepoInitialized    = Guard{Kind: KindRepoInitialized}
	NotLocalMode       = Guard{Kind: KindNotLocalMode}
	RemoteConfigured   = Guard{Kind: KindRemoteConfigured}
	CredentialsPresent = Guard{Kind: KindCredentialsPresent}
)

// Check evaluates the guard against state.
func (g Guard) Check(state State) error {
	switch g.Kind {
	case KindObjectExpected:
		if !g.allowObject && state.Object() != "" {
			return fmt.Errorf("%w (got %q)", ErrUnexpectedObject, state.Object())
		}
	case KindNoTrailingArgs:
		if trailing := state.Trailing(); len(trailing) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownOptions, strings.Join(trailing, " "))
		}
	case KindRepoInitialized:
		if !state.DataFileExists() {
			return ErrNotInitialized
		}
		if !state.LocalMode() && !state.RepoExists() {
			return fmt.Errorf("%w: the kaban directory is not a git repository", ErrNotInitialized)
		}
	case KindNotLocalMode:
		if state.LocalMode() {
			return ErrLocalModeRestricted
		}
	case KindRemoteConfigured:
		if url, ok := state.RemoteURL(); !ok || url == "" {
			return ErrNoRemoteURL
		}
	case KindCredentialsPresent:
		url, _ := state.RemoteURL()
		if _, ok := credentials.Decode(url); !ok {
			return ErrNoCredentials
		}
	default:
		return fmt.Errorf("unknown guard %s", g.Kind)
	}
	return nil
}

// Rejection is returned by Chain.Check when a guard fails.
type Rejection struct {
	Guard Kind
	Err   error
}

func (r *Rejection) Error() string {
	return r.Err.Error()
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Chain is an ordered list of guards.
type Chain []Guard

// NewChain sorts guards into evaluation order. A later duplicate of a
// kind replaces the earlier one.
func NewChain(guards ...Guard) Chain {
	byKind := map[Kind]Guard{}
	for _, g := range guards {
		byKind[g.Kind] = g
	}
	chain := make(Chain, 0, len(byKind))
	for _, g := range byKind {
		chain = append(chain, g)
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].Kind < chain[j].Kind })
	return chain
}

// Check runs the guards in order and stops at the first failure.
func (c Chain) Check(state State) error {
	for _, g := range c {
		if err := g.Check(state); err != nil {
			return &Rejection{Guard: g.Kind, Err: err}
		}
	}
	return nil
}

// Has reports whether the chain contains a guard of kind k.
func (c Chain) Has(k Kind) bool {
	for _, g := range c {
		if g.Kind == k {
			return true
		}
	}
	return false
}
