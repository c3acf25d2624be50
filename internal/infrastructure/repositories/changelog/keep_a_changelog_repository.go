package changelog

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

const (
	changelogFileMode = 0o644
	shortIDLength     = 8
)

// Keep-a-Changelog buckets in render order.
var bucketOrder = []string{"Added", "Fixed", "Changed", "Removed"}

// KeepAChangelogRepository renders version sections in Keep-a-Changelog
// format and splices them into per-package CHANGELOG.md files.
type KeepAChangelogRepository struct {
	settings *entities.Settings
}

// NewKeepAChangelogRepository creates the renderer. Forge settings, when
// present, turn version headings into compare links.
func NewKeepAChangelogRepository(settings *entities.Settings) repositories.ChangelogRepository {
	return &KeepAChangelogRepository{settings: settings}
}

// Render produces one version section. Commits are already ordered and
// deduplicated; they are bucketed by conventional type and rendered verbatim
// otherwise.
func (r *KeepAChangelogRepository) Render(
	pkg *entities.Package,
	next, previous *semver.Version,
	commits []entities.Commit,
) string {
	var section strings.Builder
	section.WriteString(r.heading(pkg, next, previous))

	buckets := make(map[string][]string, len(bucketOrder))
	var contributors []string
	seenContributor := make(map[string]bool)

	for _, commit := range commits {
		parsed := entities.ParseConventionalCommit(commit.Message)
		buckets[bucketFor(parsed.Type)] = append(buckets[bucketFor(parsed.Type)], entry(commit, parsed))

		if commit.Contributor != "" && !seenContributor[commit.Contributor] {
			seenContributor[commit.Contributor] = true
			contributors = append(contributors, "@"+strings.TrimPrefix(commit.Contributor, "@"))
		}
	}

	for _, name := range bucketOrder {
		entries := buckets[name]
		if len(entries) == 0 {
			continue
		}
		section.WriteString("\n### " + name + "\n\n")
		for _, line := range entries {
			section.WriteString(line + "\n")
		}
	}

	if len(contributors) > 0 {
		section.WriteString("\nContributors: " + strings.Join(contributors, ", ") + "\n")
	}

	return section.String()
}

// Merged returns the package changelog path and its content with the section
// spliced in. A missing file yields a fresh document.
func (r *KeepAChangelogRepository) Merged(
	root string,
	pkg *entities.Package,
	section string,
) (string, string, error) {
	relPath := path.Join(pkg.Dir, entities.ChangelogFileName)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return "", "", fmt.Errorf("failed to read changelog of %q: %w", pkg.Name, err)
	}

	return relPath, entities.MergeChangelogSection(string(data), section), nil
}

// Write persists the merged changelog into the working tree.
func (r *KeepAChangelogRepository) Write(root string, pkg *entities.Package, section string) error {
	relPath, merged, err := r.Merged(root, pkg, section)
	if err != nil {
		return err
	}

	target := filepath.Join(root, filepath.FromSlash(relPath))
	if writeErr := os.WriteFile(target, []byte(merged), changelogFileMode); writeErr != nil {
		return fmt.Errorf("failed to write changelog of %q: %w", pkg.Name, writeErr)
	}
	return nil
}

// heading renders the "## [x.y.z] - date" line, as a forge compare link when
// the settings identify the repository and a previous version exists.
func (r *KeepAChangelogRepository) heading(
	pkg *entities.Package,
	next, previous *semver.Version,
) string {
	date := time.Now().UTC().Format("2006-01-02")

	compare := r.compareURL(pkg, next, previous)
	if compare == "" {
		return fmt.Sprintf("## [%s] - %s\n", next, date)
	}
	return fmt.Sprintf("## [%s](%s) - %s\n", next, compare, date)
}

func (r *KeepAChangelogRepository) compareURL(
	pkg *entities.Package,
	next, previous *semver.Version,
) string {
	forge := r.settings.Forge
	if previous == nil || forge.Organization == "" || forge.Repository == "" {
		return ""
	}

	previousTag := r.settings.TagFor(pkg.Name, previous.String())
	nextTag := r.settings.TagFor(pkg.Name, next.String())

	switch forge.Type {
	case "github":
		return fmt.Sprintf("https://github.com/%s/%s/compare/%s...%s",
			forge.Organization, forge.Repository, previousTag, nextTag)
	case "gitlab":
		return fmt.Sprintf("https://gitlab.com/%s/%s/-/compare/%s...%s",
			forge.Organization, forge.Repository, previousTag, nextTag)
	default:
		return ""
	}
}

func bucketFor(commitType string) string {
	switch commitType {
	case entities.TypeFeature:
		return "Added"
	case entities.TypeFix:
		return "Fixed"
	case "revert":
		return "Removed"
	default:
		return "Changed"
	}
}

// entry renders one bullet: the subject, a breaking marker, and the short
// commit id for walked (non-synthetic) commits.
func entry(commit entities.Commit, parsed entities.ConventionalCommit) string {
	line := "- "
	if parsed.Breaking {
		line += "**Breaking:** "
	}
	line += parsed.Subject

	if !commit.IsSynthetic() {
		id := commit.ID
		if len(id) > shortIDLength {
			id = id[:shortIDLength]
		}
		line += " (" + id + ")"
	}
	return line
}
