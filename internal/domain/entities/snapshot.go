package entities

import (
	"github.com/Masterminds/semver/v3"
)

// SnapshotSource discriminates where a published snapshot was resolved from.
type SnapshotSource string

const (
	SnapshotFromRegistry SnapshotSource = "registry"
	SnapshotFromTag      SnapshotSource = "tag"
)

// PublishedSnapshot is the recorded content, version and commit of a package
// as it existed when it was last released to the registry or tagged in
// history.
type PublishedSnapshot struct {
	Source            SnapshotSource
	Version           *semver.Version
	Files             map[string]string // Relative path -> sha256 content hash
	PublishedAtCommit string            // Commit sha, when knowable
	TagName           string            // Set for tag snapshots
	Dependencies      map[string]string // Dependency name -> version requirement
	Locked            map[string]string // Dependency name -> resolved version
}

// ContentEquals compares the per-file content hashes of two snapshots.
func (s *PublishedSnapshot) ContentEquals(other *PublishedSnapshot) bool {
	if len(s.Files) != len(other.Files) {
		return false
	}
	for path, hash := range s.Files {
		if other.Files[path] != hash {
			return false
		}
	}
	return true
}

// PreferSnapshot applies the resolution order between a registry artifact and
// a release tag for the same package: the higher version wins; at equal
// versions the registry variant is authoritative because it carries the
// published-at commit and lock data. The second result reports whether both
// variants exist at the same version with diverging content, which callers
// surface as a warning.
func PreferSnapshot(registry, tag *PublishedSnapshot) (*PublishedSnapshot, bool) {
	if registry == nil {
		return tag, false
	}
	if tag == nil {
		return registry, false
	}
	if registry.Version.LessThan(tag.Version) {
		return tag, false
	}
	if tag.Version.LessThan(registry.Version) {
		return registry, false
	}
	return registry, !registry.ContentEquals(tag)
}
