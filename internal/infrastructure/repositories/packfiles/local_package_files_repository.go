package packfiles

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// LocalPackageFilesRepository enumerates the files a package publishes,
// applying the manifest's include/exclude globs. Paths inside the package
// directory are keyed relative to it; an external readme keeps its
// workspace-relative path. Symlinks never participate.
type LocalPackageFilesRepository struct{}

// NewLocalPackageFilesRepository creates the packaged-file-set calculator.
func NewLocalPackageFilesRepository() repositories.PackageFilesRepository {
	return &LocalPackageFilesRepository{}
}

// FilesFor returns the packaged file set with sha256 content hashes.
func (r *LocalPackageFilesRepository) FilesFor(
	root string,
	pkg *entities.Package,
) (map[string]string, error) {
	pkgDir := filepath.Join(root, filepath.FromSlash(pkg.Dir))
	files := make(map[string]string)

	walkErr := filepath.WalkDir(pkgDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(pkgDir, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		ok, matchErr := selected(pkg, rel)
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			return nil
		}

		hash, hashErr := hashFile(p)
		if hashErr != nil {
			return hashErr
		}
		files[rel] = hash
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("package %q: enumerating files: %w", pkg.Name, walkErr)
	}

	if pkg.Readme != "" {
		hash, err := hashFile(filepath.Join(root, filepath.FromSlash(pkg.Readme)))
		if err != nil {
			return nil, fmt.Errorf(
				"package %q: readme %q: %w", pkg.Name, pkg.Readme, err,
			)
		}
		files[pkg.Readme] = hash
	}

	return files, nil
}

// selected applies the include list first, then the excludes. The manifest
// itself is always packaged.
func selected(pkg *entities.Package, rel string) (bool, error) {
	if rel == entities.PackageManifestName {
		return true, nil
	}

	if len(pkg.Include) > 0 {
		included := false
		for _, pattern := range pkg.Include {
			match, err := doublestar.Match(pattern, rel)
			if err != nil {
				return false, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
			}
			if match {
				included = true
				break
			}
		}
		if !included {
			return false, nil
		}
	}

	for _, pattern := range pkg.Exclude {
		match, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if match {
			return false, nil
		}
	}

	return true, nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest := sha256.New()
	if _, copyErr := io.Copy(digest, file); copyErr != nil {
		return "", copyErr
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
