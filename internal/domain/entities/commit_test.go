package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

func TestParseConventionalCommit(t *testing.T) {
	t.Parallel()

	t.Run("should parse the conventional header structure", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			message  string
			expected entities.ConventionalCommit
		}{
			{
				"plain type",
				"fix: handle empty manifests",
				entities.ConventionalCommit{Type: "fix", Subject: "handle empty manifests"},
			},
			{
				"type with scope",
				"feat(parser): support heredocs",
				entities.ConventionalCommit{Type: "feat", Scope: "parser", Subject: "support heredocs"},
			},
			{
				"breaking bang",
				"feat!: drop the v1 wire format",
				entities.ConventionalCommit{Type: "feat", Breaking: true, Subject: "drop the v1 wire format"},
			},
			{
				"breaking bang with scope",
				"refactor(core)!: rename public entrypoints",
				entities.ConventionalCommit{Type: "refactor", Scope: "core", Breaking: true, Subject: "rename public entrypoints"},
			},
			{
				"uppercase type is normalized",
				"Fix: stabilize ordering",
				entities.ConventionalCommit{Type: "fix", Subject: "stabilize ordering"},
			},
		}

		for _, test := range tests {
			t.Run("should parse "+test.name, func(t *testing.T) {
				t.Parallel()

				// when
				parsed := entities.ParseConventionalCommit(test.message)

				// then
				assert.Equal(t, test.expected, parsed)
			})
		}
	})

	t.Run("should classify unparseable messages as other", func(t *testing.T) {
		t.Parallel()

		// given
		message := "merged upstream changes"

		// when
		parsed := entities.ParseConventionalCommit(message)

		// then
		assert.Equal(t, entities.TypeOther, parsed.Type)
		assert.Equal(t, "merged upstream changes", parsed.Subject)
		assert.False(t, parsed.Breaking)
	})

	t.Run("should detect a breaking change footer", func(t *testing.T) {
		t.Parallel()

		// given
		message := "fix: tighten validation\n\nBREAKING CHANGE: empty names are rejected now"

		// when
		parsed := entities.ParseConventionalCommit(message)

		// then
		assert.True(t, parsed.Breaking)
		assert.Equal(t, "fix", parsed.Type)
	})

	t.Run("should detect the hyphenated breaking footer variant", func(t *testing.T) {
		t.Parallel()

		// given
		message := "chore: rework internals\n\nBREAKING-CHANGE: config keys renamed"

		// when
		parsed := entities.ParseConventionalCommit(message)

		// then
		assert.True(t, parsed.Breaking)
	})
}

func TestCommit(t *testing.T) {
	t.Parallel()

	t.Run("should mark commits without an id as synthetic", func(t *testing.T) {
		t.Parallel()

		// given
		walked := entities.Commit{ID: "a1b2c3", Message: "fix: x"}
		generated := entities.Commit{Message: "chore(deps): updated the following local dependencies: core"}

		// then
		assert.False(t, walked.IsSynthetic())
		assert.True(t, generated.IsSynthetic())
	})

	t.Run("should deduplicate commits by id and message preserving order", func(t *testing.T) {
		t.Parallel()

		// given
		commits := []entities.Commit{
			{ID: "a", Message: "fix: one"},
			{ID: "b", Message: "feat: two"},
			{ID: "a", Message: "fix: one"},
			{ID: "", Message: "chore(deps): updated the following local dependencies: core"},
			{ID: "", Message: "chore(deps): updated the following local dependencies: core"},
		}

		// when
		deduped := entities.DedupeCommits(commits)

		// then
		assert.Len(t, deduped, 3)
		assert.Equal(t, "a", deduped[0].ID)
		assert.Equal(t, "b", deduped[1].ID)
		assert.True(t, deduped[2].IsSynthetic())
	})
}
