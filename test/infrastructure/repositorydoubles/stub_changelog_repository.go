//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"path"

	"github.com/Masterminds/semver/v3"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// RenderCall records a single changelog render request.
type RenderCall struct {
	Package  string
	Next     string
	Previous string
	Messages []string
}

// SpyChangelogRepository implements repositories.ChangelogRepository with
// canned sections and call tracking.
type SpyChangelogRepository struct {
	Section   string // returned by Render when non-empty
	MergedErr error
	WriteErr  error

	// --- spy ---
	RenderCalls     []RenderCall
	WrittenSections map[string]string // package name -> section
}

var _ repositories.ChangelogRepository = (*SpyChangelogRepository)(nil)

func (s *SpyChangelogRepository) Render(
	pkg *entities.Package, next, previous *semver.Version, commits []entities.Commit,
) string {
	call := RenderCall{Package: pkg.Name}
	if next != nil {
		call.Next = next.String()
	}
	if previous != nil {
		call.Previous = previous.String()
	}
	for _, commit := range commits {
		call.Messages = append(call.Messages, commit.Message)
	}
	s.RenderCalls = append(s.RenderCalls, call)

	if s.Section != "" {
		return s.Section
	}
	return "## [" + call.Next + "]\n"
}

func (s *SpyChangelogRepository) Merged(
	_ string, pkg *entities.Package, section string,
) (string, string, error) {
	if s.MergedErr != nil {
		return "", "", s.MergedErr
	}
	return path.Join(pkg.Dir, entities.ChangelogFileName), "# Changelog\n\n" + section, nil
}

func (s *SpyChangelogRepository) Write(_ string, pkg *entities.Package, section string) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	if s.WrittenSections == nil {
		s.WrittenSections = make(map[string]string)
	}
	s.WrittenSections[pkg.Name] = section
	return nil
}

// RenderCallFor returns the recorded render call for the named package.
func (s *SpyChangelogRepository) RenderCallFor(name string) *RenderCall {
	for i := range s.RenderCalls {
		if s.RenderCalls[i].Package == name {
			return &s.RenderCalls[i]
		}
	}
	return nil
}
