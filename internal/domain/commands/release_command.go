package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/autorelease/internal/infrastructure/repositories"
)

// releaseBranchName is the stable head branch for release pull requests. One
// open release PR exists per repository at a time; re-runs refresh nothing
// while it stays open.
const releaseBranchName = "autorelease/release"

var errForgeNotConfigured = errors.New("forge.type is not configured; set it to open release PRs")

// ReleasePR is the interface for the release-pr command.
type ReleasePR interface {
	Execute(ctx context.Context, settings *entities.Settings, opts ReleasePROptions) error
}

// ReleasePROptions holds runtime options for a release-pr run.
type ReleasePROptions struct {
	Root    string
	DryRun  bool
	Verbose bool
}

// ReleasePRCommand computes the update plan and opens a pull request on the
// configured forge carrying every manifest and changelog change, instead of
// writing to the local working copy.
type ReleasePRCommand struct {
	pipeline   *WorkspacePipeline
	writer     repositories.ManifestWriterRepository
	changelogs repositories.ChangelogFactory
	forges     *infraRepos.ForgeRegistry
}

// NewReleasePRCommand creates a new ReleasePRCommand.
func NewReleasePRCommand(
	pipeline *WorkspacePipeline,
	writer repositories.ManifestWriterRepository,
	changelogs repositories.ChangelogFactory,
	forges *infraRepos.ForgeRegistry,
) *ReleasePRCommand {
	return &ReleasePRCommand{
		pipeline:   pipeline,
		writer:     writer,
		changelogs: changelogs,
		forges:     forges,
	}
}

// Execute plans the release and opens (or skips) the release pull request.
func (it *ReleasePRCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts ReleasePROptions,
) error {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	if settings.Forge.Type == "" {
		return errForgeNotConfigured
	}

	forge, err := it.forges.Get(settings.Forge.Type, settings.Forge.Token)
	if err != nil {
		return err
	}

	workspace, plan, err := it.pipeline.ComputePlan(ctx, opts.Root, settings)
	if err != nil {
		return err
	}

	if plan.IsEmpty() {
		logger.Infof("All %d packages are up to date, no PR needed", len(workspace.Packages))
		return nil
	}

	for i := range plan.Updates {
		reportUpdate(&plan.Updates[i])
	}

	repo := entities.Repository{
		Name:          settings.Forge.Repository,
		Organization:  settings.Forge.Organization,
		DefaultBranch: "refs/heads/" + settings.Forge.BaseBranch,
		ProviderName:  settings.Forge.Type,
	}

	exists, err := forge.PullRequestExists(ctx, repo, releaseBranchName)
	if err != nil {
		return fmt.Errorf("checking for an open release PR: %w", err)
	}
	if exists {
		logger.Infof(
			"A release PR from %q is already open in %s/%s, skipping",
			releaseBranchName, repo.Organization, repo.Name,
		)
		return nil
	}

	changes, err := it.collectChanges(workspace, plan, it.changelogs(settings))
	if err != nil {
		return err
	}

	title, description := generateReleaseContent(plan)

	if opts.DryRun {
		logger.Infof("[dry-run] would open PR %q with %d file changes", title, len(changes))
		return nil
	}

	branchErr := forge.CreateBranchWithChanges(ctx, repo, entities.BranchInput{
		BranchName:    releaseBranchName,
		BaseBranch:    repo.DefaultBranch,
		CommitMessage: title,
		Changes:       changes,
	})
	if branchErr != nil {
		return fmt.Errorf("creating release branch: %w", branchErr)
	}

	pr, createErr := forge.CreatePullRequest(ctx, repo, entities.PullRequestInput{
		Title:        title,
		Description:  description,
		SourceBranch: "refs/heads/" + releaseBranchName,
		TargetBranch: repo.DefaultBranch,
	})
	if createErr != nil {
		return fmt.Errorf("creating release PR: %w", createErr)
	}

	logger.Infof("Created PR #%d: %s", pr.ID, pr.URL)
	return nil
}

// collectChanges renders every file the plan touches: manifests, the lock
// file and the merged changelogs, as forge file changes.
func (it *ReleasePRCommand) collectChanges(
	workspace *entities.Workspace,
	plan *entities.UpdatePlan,
	changelogs repositories.ChangelogRepository,
) ([]entities.FileChange, error) {
	rendered, err := it.writer.RenderPlan(workspace, plan)
	if err != nil {
		return nil, err
	}

	for i := range plan.Updates {
		update := &plan.Updates[i]
		path, content, mergeErr := changelogs.Merged(
			workspace.Root, update.Package, update.Result.Changelog,
		)
		if mergeErr != nil {
			return nil, fmt.Errorf("package %q: merging changelog: %w", update.Package.Name, mergeErr)
		}
		rendered[path] = content
	}

	paths := make([]string, 0, len(rendered))
	for path := range rendered {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	changes := make([]entities.FileChange, 0, len(paths))
	for _, path := range paths {
		changeType := "edit"
		if _, statErr := os.Stat(filepath.Join(workspace.Root, path)); statErr != nil {
			changeType = "add"
		}
		changes = append(changes, entities.FileChange{
			Path:       path,
			Content:    rendered[path],
			ChangeType: changeType,
		})
	}
	return changes, nil
}

// generateReleaseContent returns the PR title and markdown body for a plan.
func generateReleaseContent(plan *entities.UpdatePlan) (string, string) {
	var title string
	if len(plan.Updates) == 1 {
		only := &plan.Updates[0]
		title = fmt.Sprintf(
			"chore(release): %s v%s", only.Package.Name, only.Result.NextVersion,
		)
	} else {
		title = fmt.Sprintf("chore(release): %d packages", len(plan.Updates))
	}

	var body strings.Builder
	body.WriteString("## Pending releases\n")
	for i := range plan.Updates {
		update := &plan.Updates[i]
		fmt.Fprintf(
			&body, "\n### `%s`: %s -> %s\n\n",
			update.Package.Name, update.Package.Version, update.Result.NextVersion,
		)
		body.WriteString(update.Result.Changelog)
		body.WriteString("\n")
	}
	if plan.WorkspaceVersion != nil {
		fmt.Fprintf(&body, "\nWorkspace version moves to %s.\n", plan.WorkspaceVersion)
	}

	return title, body.String()
}
