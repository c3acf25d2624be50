package entities_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

func commitsOf(messages ...string) []entities.Commit {
	commits := make([]entities.Commit, 0, len(messages))
	for _, message := range messages {
		commits = append(commits, entities.Commit{ID: "abc123", Message: message})
	}
	return commits
}

func TestNextIncrement(t *testing.T) {
	t.Parallel()

	t.Run("should return none when there are no commits", func(t *testing.T) {
		t.Parallel()

		// given
		current := semver.MustParse("1.2.3")

		// when
		increment := entities.NextIncrement(current, nil, entities.ReleasePolicy{})

		// then
		assert.Equal(t, entities.IncrementNone, increment)
	})

	t.Run("should return prerelease when the current version has a prerelease component", func(t *testing.T) {
		t.Parallel()

		// given
		current := semver.MustParse("1.2.3-beta.1")

		// when
		increment := entities.NextIncrement(current, commitsOf("feat!: anything"), entities.ReleasePolicy{})

		// then
		assert.Equal(t, entities.IncrementPrerelease, increment)
	})

	t.Run("should map commit categories with the default policy", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			current  string
			messages []string
			expected entities.VersionIncrement
		}{
			{"fix bumps patch", "1.2.3", []string{"fix: x"}, entities.IncrementPatch},
			{"feature bumps minor", "1.2.3", []string{"feat: y"}, entities.IncrementMinor},
			{"feature stays patch before 1.0", "0.2.3", []string{"feat: y"}, entities.IncrementPatch},
			{"breaking bumps major", "1.2.3", []string{"feat!: break"}, entities.IncrementMajor},
			{"breaking bumps minor before 1.0", "0.2.3", []string{"feat!: break"}, entities.IncrementMinor},
			{"breaking stays patch below 0.1", "0.0.4", []string{"feat!: break"}, entities.IncrementPatch},
			{"unparseable message counts as patch", "1.2.3", []string{"tweak the docs"}, entities.IncrementPatch},
			{"breaking footer bumps major", "1.2.3", []string{"fix: z\n\nBREAKING CHANGE: renamed API"}, entities.IncrementMajor},
			{"highest category wins", "1.2.3", []string{"fix: a", "feat: b", "chore: c"}, entities.IncrementMinor},
		}

		for _, test := range tests {
			t.Run("should ensure "+test.name, func(t *testing.T) {
				t.Parallel()

				// given
				current := semver.MustParse(test.current)

				// when
				increment := entities.NextIncrement(current, commitsOf(test.messages...), entities.ReleasePolicy{})

				// then
				assert.Equal(t, test.expected, increment)
			})
		}
	})

	t.Run("should force minor for features before 1.0 when the policy says so", func(t *testing.T) {
		t.Parallel()

		// given
		current := semver.MustParse("0.2.3")
		policy := entities.ReleasePolicy{FeaturesAlwaysIncrementMinor: true}

		// when
		increment := entities.NextIncrement(current, commitsOf("feat: y"), policy)

		// then
		assert.Equal(t, entities.IncrementMinor, increment)
	})

	t.Run("should force major for breaking changes before 1.0 when the policy says so", func(t *testing.T) {
		t.Parallel()

		// given
		current := semver.MustParse("0.2.3")
		policy := entities.ReleasePolicy{BreakingAlwaysIncrementMajor: true}

		// when
		increment := entities.NextIncrement(current, commitsOf("feat!: break"), policy)

		// then
		assert.Equal(t, entities.IncrementMajor, increment)
	})

	t.Run("should honor custom major and minor patterns", func(t *testing.T) {
		t.Parallel()

		// given
		current := semver.MustParse("1.2.3")
		policy := entities.ReleasePolicy{
			MajorPattern: `(?m)^BIG:`,
			MinorPattern: `(?m)^feature\b`,
		}

		// when
		major := entities.NextIncrement(current, commitsOf("BIG: redesign"), policy)
		minor := entities.NextIncrement(current, commitsOf("feature thing added"), policy)

		// then
		assert.Equal(t, entities.IncrementMajor, major)
		assert.Equal(t, entities.IncrementMinor, minor)
	})
}

func TestApplyIncrement(t *testing.T) {
	t.Parallel()

	t.Run("should apply field resets per increment scope", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			current   string
			increment entities.VersionIncrement
			expected  string
		}{
			{"major resets minor and patch", "1.2.3", entities.IncrementMajor, "2.0.0"},
			{"minor resets patch", "1.2.3", entities.IncrementMinor, "1.3.0"},
			{"patch touches only itself", "1.2.3", entities.IncrementPatch, "1.2.4"},
			{"prerelease increments trailing number", "1.2.3-beta.1", entities.IncrementPrerelease, "1.2.3-beta.2"},
			{"prerelease appends baseline when no numeric tail", "1.2.3-alpha", entities.IncrementPrerelease, "1.2.3-alpha.1"},
			{"none leaves the version alone", "1.2.3", entities.IncrementNone, "1.2.3"},
		}

		for _, test := range tests {
			t.Run("should ensure "+test.name, func(t *testing.T) {
				t.Parallel()

				// given
				current := semver.MustParse(test.current)

				// when
				next := entities.ApplyIncrement(current, test.increment)

				// then
				assert.Equal(t, test.expected, next.String())
			})
		}
	})

	t.Run("should never decrease the version", func(t *testing.T) {
		t.Parallel()

		// given
		current := semver.MustParse("0.9.9-rc.3")
		increments := []entities.VersionIncrement{
			entities.IncrementPrerelease,
			entities.IncrementPatch,
			entities.IncrementMinor,
			entities.IncrementMajor,
		}

		// when / then
		for _, increment := range increments {
			next := entities.ApplyIncrement(current, increment)
			require.False(t, next.LessThan(current), "increment %s decreased the version", increment)
		}
	})
}
