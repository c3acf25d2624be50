package repositories

import (
	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// PackageFilesRepository computes the canonical packaged file set of a
// package as the working tree currently stands: include/exclude globs
// applied, symlinks skipped, the manifest and external readme always in.
type PackageFilesRepository interface {
	// FilesFor maps package-relative paths to sha256 content hashes.
	FilesFor(root string, pkg *entities.Package) (map[string]string, error)
}
