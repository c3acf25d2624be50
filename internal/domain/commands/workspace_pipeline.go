package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// WorkspacePipeline loads a workspace and computes its update plan. The
// plan, update and release-pr commands all start from it; only what they do
// with the plan differs.
type WorkspacePipeline struct {
	sources      repositories.SourceControlFactory
	registries   repositories.RegistryFactory
	tagResolvers repositories.TagResolverFactory
	manifests    repositories.ManifestRepository
	files        repositories.PackageFilesRepository
	changelogs   repositories.ChangelogFactory
	compat       repositories.CompatibilityRepository
}

// NewWorkspacePipeline creates the pipeline from the run-independent
// collaborators. The run-scoped pieces (gateway, resolvers, engine) are
// built per call, bound to the requested working copy.
func NewWorkspacePipeline(
	sources repositories.SourceControlFactory,
	registries repositories.RegistryFactory,
	tagResolvers repositories.TagResolverFactory,
	manifests repositories.ManifestRepository,
	files repositories.PackageFilesRepository,
	changelogs repositories.ChangelogFactory,
	compat repositories.CompatibilityRepository,
) *WorkspacePipeline {
	return &WorkspacePipeline{
		sources:      sources,
		registries:   registries,
		tagResolvers: tagResolvers,
		manifests:    manifests,
		files:        files,
		changelogs:   changelogs,
		compat:       compat,
	}
}

// ComputePlan resolves the workspace at root and runs the full planning
// pipeline over it.
func (it *WorkspacePipeline) ComputePlan(
	ctx context.Context,
	root string,
	settings *entities.Settings,
) (*entities.Workspace, *entities.UpdatePlan, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workspace root %q: %w", root, err)
	}

	workspace, err := it.manifests.LoadWorkspace(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("loading workspace at %q: %w", absRoot, err)
	}

	gateway, err := it.sources(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("opening repository at %q: %w", absRoot, err)
	}

	registry := it.registries(settings.Registry)
	tags := it.tagResolvers(gateway, settings)

	engine := NewDiffEngine(gateway, registry, tags, it.files, it.manifests, settings)
	planner := NewUpdatePlanner(
		engine,
		NewVersionCoordinator(settings),
		NewDependencyPropagator(),
		registry,
		tags,
		it.changelogs(settings),
		it.compat,
		settings,
	)

	plan, err := planner.Plan(ctx, workspace)
	if err != nil {
		return nil, nil, err
	}
	return workspace, plan, nil
}
