package gittag_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/gittag"
)

const minimalManifest = `package {
  name    = "alpha"
  version = "1.0.0"
}
`

// fakeGateway answers the tag and tree lookups of the resolver from static
// tables. The history-walk side of the interface is never reached from here.
type fakeGateway struct {
	tagTargets map[string]string            // tag name -> commit id
	treeData   map[string]map[string]string // commit id -> workspace-relative path -> content
}

var _ repositories.SourceControlRepository = (*fakeGateway)(nil)

func (f *fakeGateway) Root() string           { return "/workspace" }
func (f *fakeGateway) IsClean() (bool, error) { return true, nil }
func (f *fakeGateway) Head() (string, error)  { return "", nil }
func (f *fakeGateway) CheckoutHead() error    { return nil }

func (f *fakeGateway) CheckoutLastCommitAtPaths(_ []string) (entities.Commit, error) {
	return entities.Commit{}, repositories.ErrNoMoreHistory
}

func (f *fakeGateway) CheckoutPreviousCommitAtPaths(_ string, _ []string) (entities.Commit, error) {
	return entities.Commit{}, repositories.ErrNoMoreHistory
}

func (f *fakeGateway) FilesChangedIn(_ string) ([]string, error) { return nil, nil }
func (f *fakeGateway) IsAncestor(_, _ string) (bool, error)      { return false, nil }

func (f *fakeGateway) TagCommit(tag string) (string, error) { return f.tagTargets[tag], nil }

func (f *fakeGateway) Tags() ([]string, error) {
	tags := make([]string, 0, len(f.tagTargets))
	for tag := range f.tagTargets {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (f *fakeGateway) FileContentAt(commit, path string) (string, error) {
	content, ok := f.treeData[commit][path]
	if !ok {
		return "", fmt.Errorf("%w: %q at %s", repositories.ErrFileNotFound, path, commit)
	}
	return content, nil
}

func (f *fakeGateway) TreeFilesAt(commit, prefix string) (map[string]string, error) {
	files := make(map[string]string)
	for path, content := range f.treeData[commit] {
		if strings.HasPrefix(path, prefix+"/") {
			files[strings.TrimPrefix(path, prefix+"/")] = digest(content)
		}
	}
	return files, nil
}

func digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestGitTagArtifactRepositoryLatestPublished(t *testing.T) {
	t.Parallel()

	t.Run("should resolve the snapshot of the highest tagged version", func(t *testing.T) {
		t.Parallel()

		// given
		manifest := `package {
  name    = "alpha"
  version = "1.10.0"
}

dependency "shared" {
  version = "^1.0"
  path    = "pkgs/shared"
}
`
		lock := `lock "shared" {
  version  = "1.4.0"
  checksum = "sha256:abc123"
}
`
		gateway := &fakeGateway{
			tagTargets: map[string]string{
				"alpha-v1.2.0":  "commit-old",
				"alpha-v1.10.0": "commit-new",
				"shared-v9.9.9": "commit-other",
			},
			treeData: map[string]map[string]string{
				"commit-new": {
					"pkgs/alpha/package.hcl": manifest,
					"pkgs/alpha/alpha.go":    "package alpha",
					"workspace.lock":         lock,
				},
			},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})

		// when
		snapshot, err := resolver.LatestPublished(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
		)

		// then
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, entities.SnapshotFromTag, snapshot.Source)
		assert.Equal(t, "alpha-v1.10.0", snapshot.TagName, "1.10.0 outranks 1.2.0 despite sorting below it")
		assert.Equal(t, "commit-new", snapshot.PublishedAtCommit)
		assert.Equal(t, "1.10.0", snapshot.Version.String())
		assert.Equal(t, map[string]string{
			"package.hcl": digest(manifest),
			"alpha.go":    digest("package alpha"),
		}, snapshot.Files)
		assert.Equal(t, map[string]string{"shared": "^1.0"}, snapshot.Dependencies)
		assert.Equal(t, map[string]string{"shared": "1.4.0"}, snapshot.Locked)
	})

	t.Run("should ignore tags that do not carry a semantic version", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			tagTargets: map[string]string{
				"alpha-vnightly": "commit-nightly",
				"alpha-v1.0.0":   "commit-release",
			},
			treeData: map[string]map[string]string{
				"commit-release": {
					"pkgs/alpha/package.hcl": minimalManifest,
					"pkgs/alpha/alpha.go":    "package alpha",
				},
			},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})

		// when
		snapshot, err := resolver.LatestPublished(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
		)

		// then
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "alpha-v1.0.0", snapshot.TagName)
		assert.Empty(t, snapshot.Dependencies)
		assert.Empty(t, snapshot.Locked, "the tagged commit carries no lock file")
	})

	t.Run("should resolve nothing when no tag matches the pattern", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			tagTargets: map[string]string{"shared-v1.0.0": "commit-shared"},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})

		// when
		snapshot, err := resolver.LatestPublished(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
		)

		// then
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("should honor a custom tag pattern from the settings", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			tagTargets: map[string]string{
				"releases/alpha/2.0.0": "commit-rel",
				"alpha-v9.0.0":         "commit-default",
			},
			treeData: map[string]map[string]string{
				"commit-rel": {
					"pkgs/alpha/package.hcl": minimalManifest,
				},
			},
		}
		settings := &entities.Settings{
			Packages: []entities.PackageSettings{
				{Name: "alpha", TagPattern: "releases/{name}/{version}"},
			},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, settings)

		// when
		snapshot, err := resolver.LatestPublished(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
		)

		// then
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "releases/alpha/2.0.0", snapshot.TagName)
		assert.Equal(t, "2.0.0", snapshot.Version.String())
	})

	t.Run("should degrade to an empty requirement set when the commit has no readable manifest",
		func(t *testing.T) {
			t.Parallel()

			// given
			gateway := &fakeGateway{
				tagTargets: map[string]string{"alpha-v1.0.0": "commit-bare"},
				treeData: map[string]map[string]string{
					"commit-bare": {"pkgs/alpha/alpha.go": "package alpha"},
				},
			}
			resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})

			// when
			snapshot, err := resolver.LatestPublished(
				context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
			)

			// then
			require.NoError(t, err)
			require.NotNil(t, snapshot)
			assert.Empty(t, snapshot.Dependencies)
			assert.Equal(t, map[string]string{"alpha.go": digest("package alpha")}, snapshot.Files)
		})

	t.Run("should hash the external readme recorded at the tagged commit", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			tagTargets: map[string]string{"alpha-v1.0.0": "commit-doc"},
			treeData: map[string]map[string]string{
				"commit-doc": {
					"pkgs/alpha/package.hcl": minimalManifest,
					"docs/alpha.md":          "# Alpha",
				},
			},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})
		pkg := &entities.Package{Name: "alpha", Dir: "pkgs/alpha", Readme: "docs/alpha.md"}

		// when
		snapshot, err := resolver.LatestPublished(context.Background(), pkg)

		// then
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, digest("# Alpha"), snapshot.Files["docs/alpha.md"])
	})

	t.Run("should tolerate a readme that was not part of the release", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			tagTargets: map[string]string{"alpha-v1.0.0": "commit-doc"},
			treeData: map[string]map[string]string{
				"commit-doc": {"pkgs/alpha/package.hcl": minimalManifest},
			},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})
		pkg := &entities.Package{Name: "alpha", Dir: "pkgs/alpha", Readme: "docs/alpha.md"}

		// when
		snapshot, err := resolver.LatestPublished(context.Background(), pkg)

		// then
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.NotContains(t, snapshot.Files, "docs/alpha.md")
	})

	t.Run("should reject a tag pattern without a version placeholder", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			tagTargets: map[string]string{"alpha-latest": "commit-latest"},
		}
		settings := &entities.Settings{
			Packages: []entities.PackageSettings{{Name: "alpha", TagPattern: "alpha-latest"}},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, settings)

		// when
		snapshot, err := resolver.LatestPublished(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
		)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no {version} placeholder")
		assert.Nil(t, snapshot)
	})
}

func TestGitTagArtifactRepositoryMaterialize(t *testing.T) {
	t.Parallel()

	t.Run("should write the tagged tree to a temporary directory", func(t *testing.T) {
		t.Parallel()

		// given
		gateway := &fakeGateway{
			treeData: map[string]map[string]string{
				"commit-new": {
					"pkgs/alpha/package.hcl":      minimalManifest,
					"pkgs/alpha/internal/impl.go": "package internal",
				},
			},
		}
		resolver := gittag.NewGitTagArtifactRepository(gateway, &entities.Settings{})
		snapshot := &entities.PublishedSnapshot{PublishedAtCommit: "commit-new"}

		// when
		dir, err := resolver.Materialize(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"}, snapshot,
		)

		// then
		require.NoError(t, err)
		defer os.RemoveAll(dir)
		assert.Contains(t, filepath.Base(dir), "autorelease-alpha-")

		content, readErr := os.ReadFile(filepath.Join(dir, "internal", "impl.go"))
		require.NoError(t, readErr)
		assert.Equal(t, "package internal", string(content))
		assert.FileExists(t, filepath.Join(dir, "package.hcl"))
	})

	t.Run("should refuse a snapshot that carries no commit", func(t *testing.T) {
		t.Parallel()

		// given
		resolver := gittag.NewGitTagArtifactRepository(&fakeGateway{}, &entities.Settings{})

		// when
		dir, err := resolver.Materialize(
			context.Background(), &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
			&entities.PublishedSnapshot{},
		)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "carries no commit to materialize from")
		assert.Empty(t, dir)
	})

	t.Run("should stop when the context is already canceled", func(t *testing.T) {
		t.Parallel()

		// given
		resolver := gittag.NewGitTagArtifactRepository(&fakeGateway{}, &entities.Settings{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		_, err := resolver.Materialize(
			ctx, &entities.Package{Name: "alpha", Dir: "pkgs/alpha"},
			&entities.PublishedSnapshot{PublishedAtCommit: "commit-new"},
		)

		// then
		require.ErrorIs(t, err, context.Canceled)
	})
}
