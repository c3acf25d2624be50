package entities

import (
	"github.com/Masterminds/semver/v3"
)

// Package kinds as declared in the package manifest.
const (
	KindLibrary = "library"
	KindBinary  = "binary"
)

// Package represents one releasable unit of the workspace.
type Package struct {
	Name              string
	Version           *semver.Version
	Dir               string // Directory relative to the workspace root
	Kind              string // "library" or "binary"
	Readme            string // Optional readme path outside the package dir
	Include           []string
	Exclude           []string
	Dependencies      []Dependency
	InheritsWorkspace bool // No own version attribute, shares the workspace version
}

// Paths returns the path prefixes whose history is attributable to the package.
func (p *Package) Paths() []string {
	paths := []string{p.Dir}
	if p.Readme != "" {
		paths = append(paths, p.Readme)
	}
	return paths
}

// IsLibrary reports whether the package exposes a library surface.
func (p *Package) IsLibrary() bool {
	return p.Kind != KindBinary
}

// Dependency is a single requirement declared in a package manifest.
type Dependency struct {
	Name       string
	Constraint string // Version requirement, e.g. "^1.2"
	Path       string // Local path reference relative to the workspace root
}

// IsLocalLink reports whether the dependency is a propagation edge: a local
// path reference carrying a version constraint.
func (d Dependency) IsLocalLink() bool {
	return d.Path != "" && d.Constraint != ""
}
