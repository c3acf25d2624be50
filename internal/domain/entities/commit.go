package entities

import (
	"regexp"
	"strings"
)

// Conventional commit types the release rules care about. Any other parseable
// type, and any unparseable message, falls into TypeOther.
const (
	TypeFeature = "feat"
	TypeFix     = "fix"
	TypeOther   = "other"
)

// Commit is one source-history change attributable to a package. A commit
// with an empty ID is synthetic (generated by dependency propagation, never
// present in the repository history).
type Commit struct {
	ID          string
	Message     string
	Author      string
	Committer   string
	Contributor string // Forge login, when known
}

// IsSynthetic reports whether the commit was generated rather than walked.
func (c Commit) IsSynthetic() bool {
	return c.ID == ""
}

// Key identifies a commit for deduplication across changelog inclusion.
func (c Commit) Key() string {
	return c.ID + ":" + c.Message
}

// conventionalPattern matches "type(scope)!: subject" message headers.
var conventionalPattern = regexp.MustCompile(`^([a-zA-Z]+)(?:\(([^)]*)\))?(!)?:\s*(.+)$`)

// ConventionalCommit is the parsed release-relevant structure of a message.
type ConventionalCommit struct {
	Type     string
	Scope    string
	Breaking bool
	Subject  string
}

// ParseConventionalCommit parses the commit message header and breaking-change
// footers. Messages that do not follow the convention are classified as
// TypeOther with the first line as subject.
func ParseConventionalCommit(message string) ConventionalCommit {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	header := strings.TrimSpace(lines[0])

	breaking := false
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "BREAKING CHANGE:") || strings.HasPrefix(line, "BREAKING-CHANGE:") {
			breaking = true
			break
		}
	}

	match := conventionalPattern.FindStringSubmatch(header)
	if match == nil {
		return ConventionalCommit{Type: TypeOther, Breaking: breaking, Subject: header}
	}

	return ConventionalCommit{
		Type:     strings.ToLower(match[1]),
		Scope:    match[2],
		Breaking: breaking || match[3] == "!",
		Subject:  strings.TrimSpace(match[4]),
	}
}

// DedupeCommits drops duplicates while preserving order. Commits pulled in by
// cross-package changelog inclusion may repeat walked commits.
func DedupeCommits(commits []Commit) []Commit {
	seen := make(map[string]bool, len(commits))
	result := make([]Commit, 0, len(commits))
	for _, commit := range commits {
		if seen[commit.Key()] {
			continue
		}
		seen[commit.Key()] = true
		result = append(result, commit)
	}
	return result
}
