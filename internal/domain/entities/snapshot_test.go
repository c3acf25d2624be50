package entities_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

func registrySnapshot(version string, files map[string]string) *entities.PublishedSnapshot {
	return &entities.PublishedSnapshot{
		Source:            entities.SnapshotFromRegistry,
		Version:           semver.MustParse(version),
		Files:             files,
		PublishedAtCommit: "cafe01",
	}
}

func tagSnapshot(version string, files map[string]string) *entities.PublishedSnapshot {
	return &entities.PublishedSnapshot{
		Source:  entities.SnapshotFromTag,
		Version: semver.MustParse(version),
		Files:   files,
		TagName: "pkg-v" + version,
	}
}

func TestPreferSnapshot(t *testing.T) {
	t.Parallel()

	files := map[string]string{"src/lib.go": "aaaa"}

	t.Run("should pick the only variant that exists", func(t *testing.T) {
		t.Parallel()

		// given
		registry := registrySnapshot("1.0.0", files)
		tag := tagSnapshot("1.0.0", files)

		// when
		onlyRegistry, mismatchA := entities.PreferSnapshot(registry, nil)
		onlyTag, mismatchB := entities.PreferSnapshot(nil, tag)
		neither, mismatchC := entities.PreferSnapshot(nil, nil)

		// then
		assert.Equal(t, registry, onlyRegistry)
		assert.Equal(t, tag, onlyTag)
		assert.Nil(t, neither)
		assert.False(t, mismatchA || mismatchB || mismatchC)
	})

	t.Run("should prefer the higher version regardless of source", func(t *testing.T) {
		t.Parallel()

		// given
		registry := registrySnapshot("1.0.0", files)
		tag := tagSnapshot("1.1.0", files)

		// when
		chosen, mismatch := entities.PreferSnapshot(registry, tag)

		// then
		require.NotNil(t, chosen)
		assert.Equal(t, entities.SnapshotFromTag, chosen.Source)
		assert.False(t, mismatch)
	})

	t.Run("should prefer the registry at equal versions", func(t *testing.T) {
		t.Parallel()

		// given
		registry := registrySnapshot("1.0.0", files)
		tag := tagSnapshot("1.0.0", files)

		// when
		chosen, mismatch := entities.PreferSnapshot(registry, tag)

		// then
		assert.Equal(t, entities.SnapshotFromRegistry, chosen.Source)
		assert.False(t, mismatch)
	})

	t.Run("should flag diverging content at equal versions", func(t *testing.T) {
		t.Parallel()

		// given
		registry := registrySnapshot("1.0.0", map[string]string{"src/lib.go": "aaaa"})
		tag := tagSnapshot("1.0.0", map[string]string{"src/lib.go": "bbbb"})

		// when
		chosen, mismatch := entities.PreferSnapshot(registry, tag)

		// then
		assert.Equal(t, entities.SnapshotFromRegistry, chosen.Source)
		assert.True(t, mismatch)
	})
}

func TestPublishedSnapshotContentEquals(t *testing.T) {
	t.Parallel()

	t.Run("should compare file sets and hashes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			a, b     map[string]string
			expected bool
		}{
			{"identical", map[string]string{"a": "1", "b": "2"}, map[string]string{"a": "1", "b": "2"}, true},
			{"different hash", map[string]string{"a": "1"}, map[string]string{"a": "2"}, false},
			{"missing file", map[string]string{"a": "1", "b": "2"}, map[string]string{"a": "1"}, false},
			{"extra file", map[string]string{"a": "1"}, map[string]string{"a": "1", "b": "2"}, false},
			{"both empty", map[string]string{}, map[string]string{}, true},
		}

		for _, test := range tests {
			t.Run("should handle "+test.name, func(t *testing.T) {
				t.Parallel()

				// given
				a := registrySnapshot("1.0.0", test.a)
				b := tagSnapshot("1.0.0", test.b)

				// then
				assert.Equal(t, test.expected, a.ContentEquals(b))
			})
		}
	})
}
