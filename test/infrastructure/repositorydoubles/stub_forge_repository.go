//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// SpyForgeRepository implements repositories.ForgeRepository as a configurable spy.
type SpyForgeRepository struct {
	// --- identity ---
	ForgeName string
	Token     string

	// --- DiscoverRepositories ---
	Repositories   []entities.Repository
	DiscoverErr    error
	DiscoveredOrgs []string

	// --- GetFileContent ---
	FileContents   map[string]string
	FileContentErr error

	// --- ListFiles ---
	Files       []entities.File
	ListFileErr error

	// --- GetTags ---
	Tags       []string
	GetTagsErr error

	// --- HasFile ---
	ExistingFiles map[string]bool

	// --- CreateBranchWithChanges ---
	CreateBranchErr error
	BranchInputs    []entities.BranchInput

	// --- CreatePullRequest ---
	CreatedPR   *entities.PullRequest
	CreatePRErr error
	PRInputs    []entities.PullRequestInput

	// --- PullRequestExists ---
	PRExistsResult   bool
	PRExistsErr      error
	PRExistsBranches []string
}

var _ repositories.ForgeRepository = (*SpyForgeRepository)(nil)

func (f *SpyForgeRepository) Name() string             { return f.ForgeName }
func (f *SpyForgeRepository) AuthToken() string        { return f.Token }
func (f *SpyForgeRepository) MatchesURL(_ string) bool { return false }

func (f *SpyForgeRepository) DiscoverRepositories(
	_ context.Context, org string,
) ([]entities.Repository, error) {
	f.DiscoveredOrgs = append(f.DiscoveredOrgs, org)
	return f.Repositories, f.DiscoverErr
}

func (f *SpyForgeRepository) GetFileContent(
	_ context.Context, _ entities.Repository, path string,
) (string, error) {
	if f.FileContents != nil {
		if content, ok := f.FileContents[path]; ok {
			return content, nil
		}
	}
	if f.FileContentErr != nil {
		return "", f.FileContentErr
	}
	return "", fmt.Errorf("file not found: %s", path)
}

func (f *SpyForgeRepository) ListFiles(
	_ context.Context, _ entities.Repository, _ string,
) ([]entities.File, error) {
	return f.Files, f.ListFileErr
}

func (f *SpyForgeRepository) GetTags(
	_ context.Context, _ entities.Repository,
) ([]string, error) {
	return f.Tags, f.GetTagsErr
}

func (f *SpyForgeRepository) HasFile(
	_ context.Context, _ entities.Repository, path string,
) bool {
	if f.ExistingFiles != nil {
		return f.ExistingFiles[path]
	}
	return false
}

func (f *SpyForgeRepository) CreateBranchWithChanges(
	_ context.Context, _ entities.Repository, input entities.BranchInput,
) error {
	f.BranchInputs = append(f.BranchInputs, input)
	return f.CreateBranchErr
}

func (f *SpyForgeRepository) CreatePullRequest(
	_ context.Context, _ entities.Repository, input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	f.PRInputs = append(f.PRInputs, input)
	if f.CreatePRErr != nil {
		return nil, f.CreatePRErr
	}
	if f.CreatedPR != nil {
		return f.CreatedPR, nil
	}
	return &entities.PullRequest{
		ID:    1,
		Title: input.Title,
		URL:   "https://example.com/pr/1",
	}, nil
}

func (f *SpyForgeRepository) PullRequestExists(
	_ context.Context, _ entities.Repository, branch string,
) (bool, error) {
	f.PRExistsBranches = append(f.PRExistsBranches, branch)
	return f.PRExistsResult, f.PRExistsErr
}

func (f *SpyForgeRepository) CloneURL(repo entities.Repository) string {
	if repo.RemoteURL != "" {
		return repo.RemoteURL
	}
	return fmt.Sprintf("https://example.com/%s/%s.git", repo.Organization, repo.Name)
}
