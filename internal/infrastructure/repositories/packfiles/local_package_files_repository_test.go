package packfiles_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/packfiles"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	target := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
}

func digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestLocalPackageFilesRepositoryFilesFor(t *testing.T) {
	t.Parallel()

	t.Run("should hash every regular file relative to the package dir", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeFile(t, root, "pkgs/core/package.hcl", `package { name = "core" }`)
		writeFile(t, root, "pkgs/core/core.go", "package core\n")
		writeFile(t, root, "pkgs/core/sub/helper.go", "package sub\n")
		pkg := &entities.Package{Name: "core", Dir: "pkgs/core"}
		repository := packfiles.NewLocalPackageFilesRepository()

		// when
		files, err := repository.FilesFor(root, pkg)

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"package.hcl":   digest(`package { name = "core" }`),
			"core.go":       digest("package core\n"),
			"sub/helper.go": digest("package sub\n"),
		}, files)
	})

	t.Run("should apply includes before excludes, keeping the manifest", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeFile(t, root, "pkgs/core/package.hcl", `package { name = "core" }`)
		writeFile(t, root, "pkgs/core/core.go", "package core\n")
		writeFile(t, root, "pkgs/core/core_fixture.go", "package core\n")
		writeFile(t, root, "pkgs/core/notes.txt", "scratch\n")
		pkg := &entities.Package{
			Name:    "core",
			Dir:     "pkgs/core",
			Include: []string{"**/*.go"},
			Exclude: []string{"**/*_fixture.go"},
		}
		repository := packfiles.NewLocalPackageFilesRepository()

		// when
		files, err := repository.FilesFor(root, pkg)

		// then
		require.NoError(t, err)
		assert.Contains(t, files, "core.go")
		assert.Contains(t, files, "package.hcl", "the manifest is always packaged")
		assert.NotContains(t, files, "core_fixture.go")
		assert.NotContains(t, files, "notes.txt")
	})

	t.Run("should skip symlinks", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeFile(t, root, "pkgs/core/package.hcl", `package { name = "core" }`)
		writeFile(t, root, "pkgs/core/target.go", "package core\n")
		require.NoError(t, os.Symlink(
			filepath.Join(root, "pkgs", "core", "target.go"),
			filepath.Join(root, "pkgs", "core", "link.go"),
		))
		pkg := &entities.Package{Name: "core", Dir: "pkgs/core"}
		repository := packfiles.NewLocalPackageFilesRepository()

		// when
		files, err := repository.FilesFor(root, pkg)

		// then
		require.NoError(t, err)
		assert.Contains(t, files, "target.go")
		assert.NotContains(t, files, "link.go")
	})

	t.Run("should carry an external readme under its workspace path", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeFile(t, root, "pkgs/core/package.hcl", `package { name = "core" }`)
		writeFile(t, root, "docs/core.md", "# core\n")
		pkg := &entities.Package{Name: "core", Dir: "pkgs/core", Readme: "docs/core.md"}
		repository := packfiles.NewLocalPackageFilesRepository()

		// when
		files, err := repository.FilesFor(root, pkg)

		// then
		require.NoError(t, err)
		assert.Equal(t, digest("# core\n"), files["docs/core.md"])
	})

	t.Run("should fail when the declared readme is missing", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeFile(t, root, "pkgs/core/package.hcl", `package { name = "core" }`)
		pkg := &entities.Package{Name: "core", Dir: "pkgs/core", Readme: "docs/core.md"}
		repository := packfiles.NewLocalPackageFilesRepository()

		// when
		_, err := repository.FilesFor(root, pkg)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, `readme "docs/core.md"`)
	})

	t.Run("should reject invalid include patterns", func(t *testing.T) {
		t.Parallel()

		// given
		root := t.TempDir()
		writeFile(t, root, "pkgs/core/package.hcl", `package { name = "core" }`)
		writeFile(t, root, "pkgs/core/core.go", "package core\n")
		pkg := &entities.Package{Name: "core", Dir: "pkgs/core", Include: []string{"["}}
		repository := packfiles.NewLocalPackageFilesRepository()

		// when
		_, err := repository.FilesFor(root, pkg)

		// then
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid include pattern")
	})
}
