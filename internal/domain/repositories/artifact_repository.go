package repositories

import (
	"context"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// ArtifactRepository resolves the last published snapshot of a package.
// LatestPublished returns nil (and no error) when the package was never
// published through the repository's source.
type ArtifactRepository interface {
	LatestPublished(ctx context.Context, pkg *entities.Package) (*entities.PublishedSnapshot, error)

	// Materialize writes the snapshot's content to a temporary directory and
	// returns its path. The caller removes the directory when done.
	Materialize(ctx context.Context, pkg *entities.Package, snapshot *entities.PublishedSnapshot) (string, error)
}

// RegistryArtifactRepository resolves snapshots from the package registry.
type RegistryArtifactRepository interface {
	ArtifactRepository

	// Configured reports whether a registry endpoint is set. When false,
	// LatestPublished always resolves to nothing and tag-only resolution
	// applies.
	Configured() bool
}

// TagArtifactRepository resolves snapshots from release tags in history.
type TagArtifactRepository interface {
	ArtifactRepository
}

// RegistryFactory builds a registry resolver for the configured endpoint.
type RegistryFactory func(settings entities.RegistrySettings) RegistryArtifactRepository

// TagResolverFactory builds a tag resolver bound to one working copy.
type TagResolverFactory func(gateway SourceControlRepository, settings *entities.Settings) TagArtifactRepository
