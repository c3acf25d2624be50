package entities

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionIncrement is the release impact computed from a package's pending
// commits. The zero value means no release is needed.
type VersionIncrement int

const (
	IncrementNone VersionIncrement = iota
	IncrementPrerelease
	IncrementPatch
	IncrementMinor
	IncrementMajor
)

// String returns the increment name used in logs and plan output.
func (i VersionIncrement) String() string {
	switch i {
	case IncrementMajor:
		return "major"
	case IncrementMinor:
		return "minor"
	case IncrementPatch:
		return "patch"
	case IncrementPrerelease:
		return "prerelease"
	default:
		return "none"
	}
}

// ReleasePolicy tunes how conventional commits map to version increments.
// The zero value is the default policy: pre-1.0 versions demote breaking
// changes to minor and features to patch.
type ReleasePolicy struct {
	FeaturesAlwaysIncrementMinor bool   `yaml:"features_always_increment_minor"`
	BreakingAlwaysIncrementMajor bool   `yaml:"breaking_always_increment_major"`
	MajorPattern                 string `yaml:"major_pattern"`
	MinorPattern                 string `yaml:"minor_pattern"`
}

// NextIncrement decides the version increment warranted by the given commits.
// Pure: no I/O, no logging. Invalid custom patterns are ignored here; they are
// rejected when the settings file is loaded.
func NextIncrement(current *semver.Version, commits []Commit, policy ReleasePolicy) VersionIncrement {
	if len(commits) == 0 {
		return IncrementNone
	}
	if current.Prerelease() != "" {
		return IncrementPrerelease
	}

	majorPattern := compilePattern(policy.MajorPattern)
	minorPattern := compilePattern(policy.MinorPattern)

	var breaking, feature, minorByPattern bool
	for _, commit := range commits {
		parsed := ParseConventionalCommit(commit.Message)
		if parsed.Breaking || (majorPattern != nil && majorPattern.MatchString(commit.Message)) {
			breaking = true
		}
		if parsed.Type == TypeFeature {
			feature = true
		}
		if minorPattern != nil && minorPattern.MatchString(commit.Message) {
			minorByPattern = true
		}
	}

	switch {
	case breaking && (current.Major() != 0 || policy.BreakingAlwaysIncrementMajor):
		return IncrementMajor
	case feature && (current.Major() != 0 || policy.FeaturesAlwaysIncrementMinor):
		return IncrementMinor
	case breaking && current.Major() == 0 && current.Minor() != 0:
		return IncrementMinor
	case minorByPattern:
		return IncrementMinor
	default:
		return IncrementPatch
	}
}

// ApplyIncrement computes the next version. Major resets minor and patch,
// Minor resets patch, Patch touches only its own field, Prerelease increments
// the trailing numeric identifier of the pre-release component (appending
// ".1" when the component has no numeric tail).
func ApplyIncrement(current *semver.Version, increment VersionIncrement) *semver.Version {
	switch increment {
	case IncrementMajor:
		next := current.IncMajor()
		return &next
	case IncrementMinor:
		next := current.IncMinor()
		return &next
	case IncrementPatch:
		next := current.IncPatch()
		return &next
	case IncrementPrerelease:
		return incrementPrerelease(current)
	default:
		return current
	}
}

func incrementPrerelease(current *semver.Version) *semver.Version {
	pre := current.Prerelease()
	if pre == "" {
		next, err := current.SetPrerelease("1")
		if err != nil {
			return current
		}
		return &next
	}

	identifiers := strings.Split(pre, ".")
	last := identifiers[len(identifiers)-1]
	if n, err := strconv.Atoi(last); err == nil {
		identifiers[len(identifiers)-1] = strconv.Itoa(n + 1)
	} else {
		identifiers = append(identifiers, "1")
	}

	next, err := current.SetPrerelease(strings.Join(identifiers, "."))
	if err != nil {
		return current
	}
	return &next
}

func compilePattern(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	return compiled
}
