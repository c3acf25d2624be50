package git

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// GoGitSourceControlRepository drives one local working copy through go-git:
// history walking by path, destructive checkouts and tag resolution. It
// remembers the reference HEAD pointed at when it was opened so the walk can
// always restore it.
type GoGitSourceControlRepository struct {
	root    string
	repo    *gogit.Repository
	headRef *plumbing.Reference
}

// NewGoGitSourceControlRepository opens the repository rooted at root. The
// current HEAD becomes the restore point for every walk.
func NewGoGitSourceControlRepository(root string) (repositories.SourceControlRepository, error) {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %q: %w", root, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD at %q: %w", root, err)
	}

	return &GoGitSourceControlRepository{root: root, repo: repo, headRef: head}, nil
}

func (g *GoGitSourceControlRepository) Root() string { return g.root }

// Head returns the commit the gateway restores to, fixed at open time.
func (g *GoGitSourceControlRepository) Head() (string, error) {
	return g.headRef.Hash().String(), nil
}

// IsClean reports whether the working tree carries uncommitted changes.
func (g *GoGitSourceControlRepository) IsClean() (bool, error) {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}
	return status.IsClean(), nil
}

// CheckoutHead restores the reference that was checked out when the gateway
// opened the repository.
func (g *GoGitSourceControlRepository) CheckoutHead() error {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	opts := &gogit.CheckoutOptions{Force: true}
	if g.headRef.Name().IsBranch() {
		opts.Branch = g.headRef.Name()
	} else {
		opts.Hash = g.headRef.Hash()
	}

	if checkoutErr := worktree.Checkout(opts); checkoutErr != nil {
		return fmt.Errorf("failed to restore head: %w", checkoutErr)
	}
	return nil
}

// CheckoutLastCommitAtPaths checks out the newest commit reachable from head
// that touches any of the given path prefixes.
func (g *GoGitSourceControlRepository) CheckoutLastCommitAtPaths(
	paths []string,
) (entities.Commit, error) {
	return g.checkoutNextAtPaths(g.headRef.Hash(), paths, plumbing.ZeroHash)
}

// CheckoutPreviousCommitAtPaths checks out the path-touching commit directly
// before current in history.
func (g *GoGitSourceControlRepository) CheckoutPreviousCommitAtPaths(
	current string,
	paths []string,
) (entities.Commit, error) {
	return g.checkoutNextAtPaths(plumbing.NewHash(current), paths, plumbing.NewHash(current))
}

// checkoutNextAtPaths walks the path-filtered log from the given position and
// checks out the first commit that is not the skipped one.
func (g *GoGitSourceControlRepository) checkoutNextAtPaths(
	from plumbing.Hash,
	paths []string,
	skip plumbing.Hash,
) (entities.Commit, error) {
	iter, err := g.repo.Log(&gogit.LogOptions{
		From:       from,
		Order:      gogit.LogOrderCommitterTime,
		PathFilter: func(file string) bool { return matchesAnyPath(paths, file) },
	})
	if err != nil {
		return entities.Commit{}, fmt.Errorf("failed to walk history: %w", err)
	}
	defer iter.Close()

	for {
		commit, nextErr := iter.Next()
		if errors.Is(nextErr, io.EOF) || errors.Is(nextErr, storer.ErrStop) {
			return entities.Commit{}, repositories.ErrNoMoreHistory
		}
		if nextErr != nil {
			return entities.Commit{}, fmt.Errorf("failed to walk history: %w", nextErr)
		}
		if commit.Hash == skip {
			continue
		}

		if checkoutErr := g.checkout(commit.Hash); checkoutErr != nil {
			return entities.Commit{}, checkoutErr
		}
		return toCommitEntity(commit), nil
	}
}

func (g *GoGitSourceControlRepository) checkout(hash plumbing.Hash) error {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if checkoutErr := worktree.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); checkoutErr != nil {
		return fmt.Errorf("failed to check out %s: %w", hash, checkoutErr)
	}
	return nil
}

// FilesChangedIn lists the paths the commit touched against its first parent,
// or its full tree for a root commit.
func (g *GoGitSourceControlRepository) FilesChangedIn(commit string) ([]string, error) {
	commitObj, err := g.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", commit, err)
	}

	tree, err := commitObj.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", commit, err)
	}

	if commitObj.NumParents() == 0 {
		return treePaths(tree)
	}

	parent, err := commitObj.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent of %s: %w", commit, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load parent tree of %s: %w", commit, err)
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", commit, err)
	}

	seen := make(map[string]bool)
	var files []string
	for _, change := range changes {
		for _, name := range []string{change.From.Name, change.To.Name} {
			if name != "" && !seen[name] {
				seen[name] = true
				files = append(files, name)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (g *GoGitSourceControlRepository) IsAncestor(ancestor, descendant string) (bool, error) {
	ancestorObj, err := g.repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, fmt.Errorf("failed to load commit %s: %w", ancestor, err)
	}
	descendantObj, err := g.repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, fmt.Errorf("failed to load commit %s: %w", descendant, err)
	}

	isAncestor, err := ancestorObj.IsAncestor(descendantObj)
	if err != nil {
		return false, fmt.Errorf("failed to relate %s and %s: %w", ancestor, descendant, err)
	}
	return isAncestor, nil
}

// TagCommit resolves a tag name to the commit it marks, following annotated
// tags to their target. Returns empty when the tag does not exist.
func (g *GoGitSourceControlRepository) TagCommit(tag string) (string, error) {
	ref, err := g.repo.Tag(tag)
	if errors.Is(err, gogit.ErrTagNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve tag %q: %w", tag, err)
	}

	tagObj, err := g.repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		return tagObj.Target.String(), nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash().String(), nil // lightweight tag
	default:
		return "", fmt.Errorf("failed to load tag %q: %w", tag, err)
	}
}

// Tags lists all tag names in the repository.
func (g *GoGitSourceControlRepository) Tags() ([]string, error) {
	iter, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	var names []string
	forEachErr := iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if forEachErr != nil {
		return nil, fmt.Errorf("failed to list tags: %w", forEachErr)
	}

	sort.Strings(names)
	return names, nil
}

// FileContentAt reads one file from the tree of the given commit.
func (g *GoGitSourceControlRepository) FileContentAt(commit, path string) (string, error) {
	commitObj, err := g.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return "", fmt.Errorf("failed to load commit %s: %w", commit, err)
	}

	file, err := commitObj.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", fmt.Errorf("%w: %q at %s", repositories.ErrFileNotFound, path, commit)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %q at %s: %w", path, commit, err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read %q at %s: %w", path, commit, err)
	}
	return content, nil
}

// TreeFilesAt returns the regular files under prefix in the commit's tree,
// keyed by prefix-relative path with sha256 content hashes.
func (g *GoGitSourceControlRepository) TreeFilesAt(
	commit, prefix string,
) (map[string]string, error) {
	commitObj, err := g.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", commit, err)
	}

	tree, err := commitObj.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", commit, err)
	}

	files := make(map[string]string)
	iterErr := tree.Files().ForEach(func(file *object.File) error {
		if file.Mode == filemode.Symlink {
			return nil
		}

		rel := file.Name
		if prefix != "" {
			if file.Name != prefix && !strings.HasPrefix(file.Name, prefix+"/") {
				return nil
			}
			rel = strings.TrimPrefix(strings.TrimPrefix(file.Name, prefix), "/")
		}

		content, contentErr := file.Contents()
		if contentErr != nil {
			return contentErr
		}

		digest := sha256.Sum256([]byte(content))
		files[rel] = hex.EncodeToString(digest[:])
		return nil
	})
	if iterErr != nil {
		return nil, fmt.Errorf("failed to hash tree of %s: %w", commit, iterErr)
	}

	return files, nil
}

// --- helpers ---

func matchesAnyPath(prefixes []string, file string) bool {
	for _, prefix := range prefixes {
		if file == prefix || strings.HasPrefix(file, prefix+"/") {
			return true
		}
	}
	return false
}

func treePaths(tree *object.Tree) ([]string, error) {
	var files []string
	err := tree.Files().ForEach(func(file *object.File) error {
		files = append(files, file.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func toCommitEntity(commit *object.Commit) entities.Commit {
	return entities.Commit{
		ID:        commit.Hash.String(),
		Message:   strings.TrimSpace(commit.Message),
		Author:    commit.Author.Name,
		Committer: commit.Committer.Name,
	}
}
