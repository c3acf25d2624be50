//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, fakes) for
// repository interfaces. These are hand-crafted implementations — no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// CommitState scripts one commit of the fake history: the commit itself, the
// paths it touched, and the working-tree state as of its checkout.
type CommitState struct {
	Commit  entities.Commit
	Touched []string

	// --- working-tree state after checking this commit out ---
	Manifests        map[string]*entities.Package // package dir -> manifest
	WorkspaceVersion *semver.Version
	PackageFiles     map[string]map[string]string // package name -> relative path -> content hash
}

// FakeWorkingCopy implements repositories.SourceControlRepository over a
// scripted linear history, newest first. Index 0 is the head state.
type FakeWorkingCopy struct {
	WorkspaceRoot string
	History       []CommitState
	Dirty         bool
	IsCleanErr    error

	// --- tag and tree lookups, keyed independently of the checkout position ---
	TagTargets map[string]string            // tag name -> commit id
	TreeData   map[string]map[string]string // commit id -> workspace-relative path -> file content

	// spy: times the walk restored the head
	HeadRestores int

	position int
}

var _ repositories.SourceControlRepository = (*FakeWorkingCopy)(nil)

func (f *FakeWorkingCopy) Root() string {
	if f.WorkspaceRoot == "" {
		return "/workspace"
	}
	return f.WorkspaceRoot
}

func (f *FakeWorkingCopy) IsClean() (bool, error) {
	return !f.Dirty, f.IsCleanErr
}

func (f *FakeWorkingCopy) Head() (string, error) {
	if len(f.History) == 0 {
		return "", fmt.Errorf("fake history is empty")
	}
	return f.History[0].Commit.ID, nil
}

func (f *FakeWorkingCopy) CheckoutHead() error {
	f.position = 0
	f.HeadRestores++
	return nil
}

func (f *FakeWorkingCopy) CheckoutLastCommitAtPaths(paths []string) (entities.Commit, error) {
	return f.checkoutFrom(0, paths)
}

func (f *FakeWorkingCopy) CheckoutPreviousCommitAtPaths(
	current string, paths []string,
) (entities.Commit, error) {
	idx, err := f.indexOf(current)
	if err != nil {
		return entities.Commit{}, err
	}
	return f.checkoutFrom(idx+1, paths)
}

func (f *FakeWorkingCopy) checkoutFrom(start int, paths []string) (entities.Commit, error) {
	for i := start; i < len(f.History); i++ {
		if touchesAny(f.History[i].Touched, paths) {
			f.position = i
			return f.History[i].Commit, nil
		}
	}
	return entities.Commit{}, repositories.ErrNoMoreHistory
}

func (f *FakeWorkingCopy) FilesChangedIn(commit string) ([]string, error) {
	idx, err := f.indexOf(commit)
	if err != nil {
		return nil, err
	}
	return f.History[idx].Touched, nil
}

func (f *FakeWorkingCopy) IsAncestor(ancestor, descendant string) (bool, error) {
	ancestorIdx, err := f.indexOf(ancestor)
	if err != nil {
		return false, err
	}
	descendantIdx, err := f.indexOf(descendant)
	if err != nil {
		return false, err
	}
	// Linear history: a larger index is further in the past.
	return ancestorIdx >= descendantIdx, nil
}

func (f *FakeWorkingCopy) TagCommit(tag string) (string, error) {
	return f.TagTargets[tag], nil
}

func (f *FakeWorkingCopy) Tags() ([]string, error) {
	tags := make([]string, 0, len(f.TagTargets))
	for tag := range f.TagTargets {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (f *FakeWorkingCopy) FileContentAt(commit, path string) (string, error) {
	files, ok := f.TreeData[commit]
	if !ok {
		return "", fmt.Errorf("unknown commit %q", commit)
	}
	content, ok := files[path]
	if !ok {
		return "", fmt.Errorf("%w: %q at %s", repositories.ErrFileNotFound, path, commit)
	}
	return content, nil
}

func (f *FakeWorkingCopy) TreeFilesAt(commit, prefix string) (map[string]string, error) {
	files, ok := f.TreeData[commit]
	if !ok {
		return nil, fmt.Errorf("unknown commit %q", commit)
	}
	result := make(map[string]string)
	for path, content := range files {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			rel := strings.TrimPrefix(strings.TrimPrefix(path, prefix), "/")
			result[rel] = HashOf(content)
		}
	}
	return result, nil
}

// State returns the scripted working-tree state at the current checkout
// position. The stub manifest and file-set repositories read through it.
func (f *FakeWorkingCopy) State() *CommitState {
	return &f.History[f.position]
}

func (f *FakeWorkingCopy) indexOf(commit string) (int, error) {
	for i := range f.History {
		if f.History[i].Commit.ID == commit {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown commit %q", commit)
}

func touchesAny(touched, paths []string) bool {
	for _, file := range touched {
		for _, prefix := range paths {
			if file == prefix || strings.HasPrefix(file, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// HashOf returns the sha256 hex digest the repositories use for file content.
func HashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
