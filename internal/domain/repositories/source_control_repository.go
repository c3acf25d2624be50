package repositories

import (
	"errors"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// ErrNoMoreHistory is returned by CheckoutPreviousCommitAtPaths when the walk
// has reached the first commit touching the given paths.
var ErrNoMoreHistory = errors.New("no more history for the given paths")

// ErrFileNotFound is returned by FileContentAt when the path does not exist
// in the commit's tree.
var ErrFileNotFound = errors.New("file not found at commit")

// SourceControlRepository is the gateway to the workspace's version control.
// The diff engine owns the working copy through this interface for the
// duration of a run; every checkout-style method mutates shared state and
// must not be called concurrently.
type SourceControlRepository interface {
	// Root returns the absolute path of the working copy.
	Root() string

	// IsClean reports whether the working copy has no uncommitted changes.
	IsClean() (bool, error)

	// Head returns the commit id the working copy pointed at before any
	// walking started.
	Head() (string, error)

	// CheckoutHead restores the working copy to the original head.
	CheckoutHead() error

	// CheckoutLastCommitAtPaths checks out the most recent commit touching
	// any of the given path prefixes and returns it. ErrNoMoreHistory is
	// returned when no commit ever touched the paths.
	CheckoutLastCommitAtPaths(paths []string) (entities.Commit, error)

	// CheckoutPreviousCommitAtPaths steps one commit further into the past,
	// relative to the given commit, restricted to the path prefixes.
	CheckoutPreviousCommitAtPaths(current string, paths []string) (entities.Commit, error)

	// FilesChangedIn lists the paths touched by the given commit.
	FilesChangedIn(commit string) ([]string, error)

	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(ancestor, descendant string) (bool, error)

	// TagCommit resolves a tag name to the commit it points at. Returns an
	// empty string when the tag does not exist.
	TagCommit(tag string) (string, error)

	// Tags lists all tag names in the repository.
	Tags() ([]string, error)

	// FileContentAt reads one file's content at a commit, without touching
	// the working copy.
	FileContentAt(commit, path string) (string, error)

	// TreeFilesAt lists the files under a path prefix at a commit, mapping
	// relative paths to sha256 content hashes, without touching the working
	// copy.
	TreeFilesAt(commit, prefix string) (map[string]string, error)
}

// SourceControlFactory opens the gateway for a working copy root.
type SourceControlFactory func(root string) (SourceControlRepository, error)
