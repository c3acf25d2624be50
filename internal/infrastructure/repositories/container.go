package repositories

import (
	"go.uber.org/dig"

	domainRepos "github.com/rios0rios0/autorelease/internal/domain/repositories"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/changelog"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/compat"
	gitRepo "github.com/rios0rios0/autorelease/internal/infrastructure/repositories/git"
	ghRepo "github.com/rios0rios0/autorelease/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/autorelease/internal/infrastructure/repositories/gitlab"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/gittag"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/hclmanifest"
	"github.com/rios0rios0/autorelease/internal/infrastructure/repositories/packfiles"
	registryRepo "github.com/rios0rios0/autorelease/internal/infrastructure/repositories/registry"
)

// RegisterProviders registers all repository implementations with the DIG
// container. Run-scoped collaborators (the git gateway, the artifact
// resolvers, the changelog renderer) are provided as factories; the rest as
// ready instances.
func RegisterProviders(container *dig.Container) error {
	// Register the workspace-local repositories
	if err := container.Provide(hclmanifest.NewHCLManifestRepository); err != nil {
		return err
	}
	if err := container.Provide(hclmanifest.NewHCLManifestWriterRepository); err != nil {
		return err
	}
	if err := container.Provide(packfiles.NewLocalPackageFilesRepository); err != nil {
		return err
	}
	if err := container.Provide(compat.NewExecCompatibilityRepository); err != nil {
		return err
	}

	// Register the run-scoped factories
	if err := container.Provide(func() domainRepos.SourceControlFactory {
		return gitRepo.NewGoGitSourceControlRepository
	}); err != nil {
		return err
	}
	if err := container.Provide(func() domainRepos.RegistryFactory {
		return registryRepo.NewHTTPRegistryRepository
	}); err != nil {
		return err
	}
	if err := container.Provide(func() domainRepos.TagResolverFactory {
		return gittag.NewGitTagArtifactRepository
	}); err != nil {
		return err
	}
	if err := container.Provide(func() domainRepos.ChangelogFactory {
		return changelog.NewKeepAChangelogRepository
	}); err != nil {
		return err
	}

	// Register the forge registry with all forge client factories
	if err := container.Provide(func() *ForgeRegistry {
		reg := NewForgeRegistry()
		reg.Register("github", ghRepo.NewGitHubForgeRepository)
		reg.Register("gitlab", glRepo.NewGitLabForgeRepository)
		return reg
	}); err != nil {
		return err
	}

	return nil
}
