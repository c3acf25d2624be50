package entities

import (
	"github.com/Masterminds/semver/v3"
)

// Manifest and lock file names owned by the workspace layout.
const (
	WorkspaceManifestName = "workspace.hcl"
	PackageManifestName   = "package.hcl"
	LockFileName          = "workspace.lock"
	ChangelogFileName     = "CHANGELOG.md"
)

// Workspace is a repository containing multiple packages, optionally sharing
// one coordinated version.
type Workspace struct {
	Root     string // Absolute path of the repository root
	Version  *semver.Version
	Members  []string // Member directory globs from the workspace manifest
	Packages []*Package
	Lock     map[string]LockEntry
}

// LockEntry is one resolved dependency pin from the workspace lock file.
type LockEntry struct {
	Version  string
	Checksum string
}

// PackageByName returns the member package with the given name, or nil.
func (w *Workspace) PackageByName(name string) *Package {
	for _, pkg := range w.Packages {
		if pkg.Name == name {
			return pkg
		}
	}
	return nil
}
