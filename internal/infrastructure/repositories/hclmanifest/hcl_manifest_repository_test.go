package hclmanifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/hclmanifest"
)

func writeManifest(t *testing.T, root, rel, content string) {
	t.Helper()
	target := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
}

func TestHCLManifestRepositoryLoadWorkspace(t *testing.T) {
	t.Parallel()

	t.Run("should load members, inheritance and the lock file", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  version = "2.1.0"
  members = ["pkgs/*", "tools/cli"]
}
`)
		writeManifest(t, root, "pkgs/core/package.hcl", `
package {
  name    = "core"
  version = "1.4.0"
  include = ["assets/**"]
  exclude = ["**/fixtures/**"]
}

dependency "shared" {
  version = "^2.0"
  path    = "pkgs/shared"
}
`)
		writeManifest(t, root, "pkgs/shared/package.hcl", `
package {
  name = "shared"
}
`)
		writeManifest(t, root, "tools/cli/package.hcl", `
package {
  name    = "cli"
  version = "0.9.0"
  kind    = "binary"
  readme  = "docs/cli.md"
}
`)
		writeManifest(t, root, "workspace.lock", `
lock "core" {
  version  = "1.4.0"
  checksum = "sha256:abc123"
}
`)
		// A member dir without a manifest is not a package.
		require.NoError(t, os.MkdirAll(filepath.Join(root, "pkgs", "scratch"), 0o755))

		repository := hclmanifest.NewHCLManifestRepository()

		// when
		workspace, err := repository.LoadWorkspace(root)

		// then
		require.NoError(t, err)
		assert.Equal(t, root, workspace.Root)
		require.NotNil(t, workspace.Version)
		assert.Equal(t, "2.1.0", workspace.Version.String())
		assert.Equal(t, []string{"pkgs/*", "tools/cli"}, workspace.Members)

		require.Len(t, workspace.Packages, 3)

		core := workspace.Packages[0]
		assert.Equal(t, "core", core.Name)
		assert.Equal(t, "pkgs/core", core.Dir)
		assert.Equal(t, "1.4.0", core.Version.String())
		assert.Equal(t, entities.KindLibrary, core.Kind)
		assert.False(t, core.InheritsWorkspace)
		assert.Equal(t, []string{"assets/**"}, core.Include)
		assert.Equal(t, []string{"**/fixtures/**"}, core.Exclude)
		require.Len(t, core.Dependencies, 1)
		assert.Equal(t, entities.Dependency{
			Name:       "shared",
			Constraint: "^2.0",
			Path:       "pkgs/shared",
		}, core.Dependencies[0])

		shared := workspace.Packages[1]
		assert.Equal(t, "shared", shared.Name)
		assert.True(t, shared.InheritsWorkspace)
		assert.Equal(t, "2.1.0", shared.Version.String(), "inherits the workspace version")

		cli := workspace.Packages[2]
		assert.Equal(t, "cli", cli.Name)
		assert.Equal(t, entities.KindBinary, cli.Kind)
		assert.Equal(t, "docs/cli.md", cli.Readme)

		require.Contains(t, workspace.Lock, "core")
		assert.Equal(t, "1.4.0", workspace.Lock["core"].Version)
		assert.Equal(t, "sha256:abc123", workspace.Lock["core"].Checksum)
	})

	t.Run("should tolerate a missing lock file", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  members = ["pkgs/*"]
}
`)
		writeManifest(t, root, "pkgs/core/package.hcl", `
package {
  name    = "core"
  version = "1.0.0"
}
`)
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		workspace, err := repository.LoadWorkspace(root)

		// then
		require.NoError(t, err)
		assert.NotNil(t, workspace.Lock)
		assert.Empty(t, workspace.Lock)
	})

	t.Run("should reject duplicate package names", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  members = ["pkgs/*"]
}
`)
		writeManifest(t, root, "pkgs/one/package.hcl", `
package {
  name    = "core"
  version = "1.0.0"
}
`)
		writeManifest(t, root, "pkgs/two/package.hcl", `
package {
  name    = "core"
  version = "2.0.0"
}
`)
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		_, err := repository.LoadWorkspace(root)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, `package name "core" declared in both`)
	})

	t.Run("should reject inheritance when the workspace declares no version", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  members = ["pkgs/*"]
}
`)
		writeManifest(t, root, "pkgs/shared/package.hcl", `
package {
  name = "shared"
}
`)
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		_, err := repository.LoadWorkspace(root)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "inherits the workspace version")
	})

	t.Run("should require a members list", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  version = "1.0.0"
}
`)
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		_, err := repository.LoadWorkspace(root)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "requires a members list")
	})

	t.Run("should fail when the workspace manifest is missing", func(t *testing.T) {
		t.Parallel()

		// given
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		_, err := repository.LoadWorkspace(t.TempDir())

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to read")
	})
}

func TestHCLManifestRepositoryReadWorkspaceVersion(t *testing.T) {
	t.Parallel()

	t.Run("should read the declared version", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  version = "3.2.1"
  members = ["pkgs/*"]
}
`)
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		version, err := repository.ReadWorkspaceVersion(root)

		// then
		require.NoError(t, err)
		require.NotNil(t, version)
		assert.Equal(t, "3.2.1", version.String())
	})

	t.Run("should return nil when no version is declared", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeManifest(t, root, "workspace.hcl", `
workspace {
  members = ["pkgs/*"]
}
`)
		repository := hclmanifest.NewHCLManifestRepository()

		// when
		version, err := repository.ReadWorkspaceVersion(root)

		// then
		require.NoError(t, err)
		assert.Nil(t, version)
	})
}

func TestParsePackageManifest(t *testing.T) {
	t.Parallel()

	t.Run("should reject a manifest without a package block", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := hclmanifest.ParsePackageManifest(
			[]byte(`dependency "core" { version = "^1.0" }`), "package.hcl", "pkgs/core",
		)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "has no package block")
	})

	t.Run("should reject a package block without a name", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := hclmanifest.ParsePackageManifest(
			[]byte(`package { version = "1.0.0" }`), "package.hcl", "pkgs/core",
		)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "requires a name")
	})

	t.Run("should reject more than one package block", func(t *testing.T) {
		t.Parallel()

		// given
		content := `
package {
  name    = "one"
  version = "1.0.0"
}

package {
  name    = "two"
  version = "1.0.0"
}
`

		// when
		_, err := hclmanifest.ParsePackageManifest([]byte(content), "package.hcl", "pkgs/core")

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "more than one package block")
	})

	t.Run("should reject a non-semantic version", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := hclmanifest.ParsePackageManifest(
			[]byte(`package {
  name    = "core"
  version = "not.a.version"
}`), "package.hcl", "pkgs/core",
		)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "is not semantic")
	})

	t.Run("should reject an unsupported kind", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := hclmanifest.ParsePackageManifest(
			[]byte(`package {
  name    = "core"
  version = "1.0.0"
  kind    = "plugin"
}`), "package.hcl", "pkgs/core",
		)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, `kind "plugin" is not supported`)
	})

	t.Run("should reject an invalid dependency requirement", func(t *testing.T) {
		t.Parallel()

		// given
		content := `
package {
  name    = "core"
  version = "1.0.0"
}

dependency "shared" {
  version = ">>nope"
}
`

		// when
		_, err := hclmanifest.ParsePackageManifest([]byte(content), "package.hcl", "pkgs/core")

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "is not a valid requirement")
	})

	t.Run("should reject a dependency without a name", func(t *testing.T) {
		t.Parallel()

		// given
		content := `
package {
  name    = "core"
  version = "1.0.0"
}

dependency "" {
  version = "^1.0"
}
`

		// when
		_, err := hclmanifest.ParsePackageManifest([]byte(content), "package.hcl", "pkgs/core")

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "requires a name label")
	})
}

func TestParseLockContent(t *testing.T) {
	t.Parallel()

	t.Run("should decode every lock entry", func(t *testing.T) {
		t.Parallel()

		// given
		content := `
lock "core" {
  version  = "1.4.0"
  checksum = "sha256:abc123"
}

lock "shared" {
  version = "2.0.0"
}
`

		// when
		lock, err := hclmanifest.ParseLockContent([]byte(content), "workspace.lock")

		// then
		require.NoError(t, err)
		require.Len(t, lock, 2)
		assert.Equal(t, "1.4.0", lock["core"].Version)
		assert.Equal(t, "sha256:abc123", lock["core"].Checksum)
		assert.Equal(t, "2.0.0", lock["shared"].Version)
		assert.Empty(t, lock["shared"].Checksum)
	})

	t.Run("should reject an entry without a name", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := hclmanifest.ParseLockContent([]byte(`lock "" { version = "1.0.0" }`), "workspace.lock")

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "requires a name label")
	})
}
