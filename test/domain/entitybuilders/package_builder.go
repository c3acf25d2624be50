//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/Masterminds/semver/v3"
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// PackageBuilder helps create test packages with a fluent interface.
type PackageBuilder struct {
	*testkit.BaseBuilder
	name         string
	version      string
	dir          string
	kind         string
	readme       string
	dependencies []entities.Dependency
	inherits     bool
}

// NewPackageBuilder creates a new package builder with sensible defaults.
func NewPackageBuilder() *PackageBuilder {
	return &PackageBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "test-package",
		version:     "1.0.0",
		dir:         "pkgs/test-package",
		kind:        entities.KindLibrary,
	}
}

// WithName sets the package name and derives the directory from it.
func (b *PackageBuilder) WithName(name string) *PackageBuilder {
	b.name = name
	b.dir = "pkgs/" + name
	return b
}

// WithVersion sets the manifest version.
func (b *PackageBuilder) WithVersion(version string) *PackageBuilder {
	b.version = version
	return b
}

// WithDir sets the package directory relative to the workspace root.
func (b *PackageBuilder) WithDir(dir string) *PackageBuilder {
	b.dir = dir
	return b
}

// WithKind sets the package kind.
func (b *PackageBuilder) WithKind(kind string) *PackageBuilder {
	b.kind = kind
	return b
}

// WithReadme sets the external readme path.
func (b *PackageBuilder) WithReadme(readme string) *PackageBuilder {
	b.readme = readme
	return b
}

// WithDependency appends a local path dependency with a version constraint.
func (b *PackageBuilder) WithDependency(name, constraint, path string) *PackageBuilder {
	b.dependencies = append(b.dependencies, entities.Dependency{
		Name:       name,
		Constraint: constraint,
		Path:       path,
	})
	return b
}

// InheritingWorkspaceVersion marks the package as sharing the workspace version.
func (b *PackageBuilder) InheritingWorkspaceVersion() *PackageBuilder {
	b.inherits = true
	return b
}

// Build creates the package (satisfies testkit.Builder interface).
func (b *PackageBuilder) Build() interface{} {
	return b.BuildPackage()
}

// BuildPackage creates the package with a concrete return type.
func (b *PackageBuilder) BuildPackage() *entities.Package {
	var version *semver.Version
	if b.version != "" {
		version = semver.MustParse(b.version)
	}
	dependencies := make([]entities.Dependency, len(b.dependencies))
	copy(dependencies, b.dependencies)
	return &entities.Package{
		Name:              b.name,
		Version:           version,
		Dir:               b.dir,
		Kind:              b.kind,
		Readme:            b.readme,
		Dependencies:      dependencies,
		InheritsWorkspace: b.inherits,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *PackageBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "test-package"
	b.version = "1.0.0"
	b.dir = "pkgs/test-package"
	b.kind = entities.KindLibrary
	b.readme = ""
	b.dependencies = nil
	b.inherits = false
	return b
}

// Clone creates a deep copy of the PackageBuilder.
func (b *PackageBuilder) Clone() testkit.Builder {
	dependencies := make([]entities.Dependency, len(b.dependencies))
	copy(dependencies, b.dependencies)
	return &PackageBuilder{
		BaseBuilder:  b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:         b.name,
		version:      b.version,
		dir:          b.dir,
		kind:         b.kind,
		readme:       b.readme,
		dependencies: dependencies,
		inherits:     b.inherits,
	}
}
