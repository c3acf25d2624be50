package entities

import "strings"

const (
	unreleasedHeading = "## [Unreleased]"
	h2Prefix          = "## ["
)

// changelogPreamble starts a changelog file created from scratch.
const changelogPreamble = `# Changelog

All notable changes to this project will be documented in this file.

The format is based on [Keep a Changelog](https://keepachangelog.com/en/1.0.0/),
and this project adheres to [Semantic Versioning](https://semver.org/spec/v2.0.0.html).
`

// MergeChangelogSection splices one rendered version section into a
// Keep-a-Changelog formatted document.
//
// Behaviour:
//   - An existing section for the same version is replaced in place.
//   - Otherwise the section is inserted below the "## [Unreleased]" region
//     when present, else above the first version heading, else appended.
//   - Empty or missing content yields a fresh document with the standard
//     preamble.
func MergeChangelogSection(content, section string) string {
	section = strings.TrimRight(section, "\n")
	if section == "" {
		return content
	}

	if strings.TrimSpace(content) == "" {
		return changelogPreamble + "\n" + section + "\n"
	}

	lines := strings.Split(content, "\n")
	sectionLines := strings.Split(section, "\n")
	key := headingKey(sectionLines[0])

	if existingIdx := findHeadingIndex(lines, key); existingIdx >= 0 {
		end := findNextH2Index(lines, existingIdx)
		for end > existingIdx+1 && strings.TrimSpace(lines[end-1]) == "" {
			end-- // keep the blank lines separating this section from the next
		}
		return strings.Join(replaceLines(lines, existingIdx, end, sectionLines), "\n")
	}

	insertAt := len(lines)
	if unreleasedIdx := findUnreleasedIndex(lines); unreleasedIdx >= 0 {
		insertAt = findNextH2Index(lines, unreleasedIdx)
	} else if firstH2 := findNextH2Index(lines, -1); firstH2 < len(lines) {
		insertAt = firstH2
	}

	return strings.Join(insertLines(lines, insertAt, padSection(sectionLines, insertAt < len(lines))), "\n")
}

// headingKey reduces a version heading to its "## [x.y.z]" prefix so that
// sections match regardless of the release date suffix.
func headingKey(line string) string {
	trimmed := strings.TrimSpace(line)
	if end := strings.Index(trimmed, "]"); end >= 0 {
		return trimmed[:end+1]
	}
	return trimmed
}

// findHeadingIndex returns the line index of the version heading matching
// key, or -1 if not found.
func findHeadingIndex(lines []string, key string) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), h2Prefix) && headingKey(line) == key {
			return i
		}
	}
	return -1
}

// findUnreleasedIndex returns the line index of the "## [Unreleased]"
// heading, or -1 if not found.
func findUnreleasedIndex(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == unreleasedHeading {
			return i
		}
	}
	return -1
}

// findNextH2Index returns the line index of the next "## [" heading after
// startIdx, or len(lines) if there is none.
func findNextH2Index(lines []string, startIdx int) int {
	for i := startIdx + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), h2Prefix) {
			return i
		}
	}
	return len(lines)
}

// padSection appends a separating blank line when the section is spliced in
// front of further content.
func padSection(section []string, hasFollowingContent bool) []string {
	if !hasFollowingContent {
		return section
	}
	padded := make([]string, 0, len(section)+1)
	padded = append(padded, section...)
	padded = append(padded, "")
	return padded
}

// insertLines inserts extra lines into slice at the given index.
func insertLines(lines []string, at int, extra []string) []string {
	result := make([]string, 0, len(lines)+len(extra))
	result = append(result, lines[:at]...)
	result = append(result, extra...)
	result = append(result, lines[at:]...)
	return result
}

// replaceLines substitutes the [from, to) range with the replacement lines.
func replaceLines(lines []string, from, to int, replacement []string) []string {
	result := make([]string, 0, len(lines)-(to-from)+len(replacement))
	result = append(result, lines[:from]...)
	result = append(result, replacement...)
	result = append(result, lines[to:]...)
	return result
}
