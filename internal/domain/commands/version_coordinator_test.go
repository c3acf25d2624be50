//go:build unit

package commands_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autorelease/internal/domain/commands"
	"github.com/rios0rios0/autorelease/internal/domain/entities"
	builders "github.com/rios0rios0/autorelease/test/domain/entitybuilders"
)

func TestVersionCoordinatorCoordinate(t *testing.T) {
	t.Parallel()

	t.Run("should leave candidates alone without groups or workspace inheritance", func(t *testing.T) {
		// given
		alpha := builders.NewPackageBuilder().WithName("alpha").WithVersion("1.0.0").BuildPackage()
		workspace := &entities.Workspace{Packages: []*entities.Package{alpha}}
		coordinator := commands.NewVersionCoordinator(&entities.Settings{})
		candidates := map[string]*semver.Version{"alpha": semver.MustParse("1.1.0")}

		// when
		unified, workspaceVersion := coordinator.Coordinate(workspace, candidates)

		// then
		assert.Nil(t, workspaceVersion)
		require.Len(t, unified, 1)
		assert.Equal(t, "1.1.0", unified["alpha"].String())
	})

	t.Run("should raise every group member to the agreed version", func(t *testing.T) {
		// given
		alpha := builders.NewPackageBuilder().WithName("alpha").WithVersion("1.0.0").BuildPackage()
		beta := builders.NewPackageBuilder().WithName("beta").WithVersion("1.0.0").BuildPackage()
		workspace := &entities.Workspace{Packages: []*entities.Package{alpha, beta}}
		settings := &entities.Settings{
			VersionGroups: []entities.VersionGroup{{Name: "core", Members: []string{"alpha", "beta"}}},
		}
		coordinator := commands.NewVersionCoordinator(settings)
		candidates := map[string]*semver.Version{"alpha": semver.MustParse("1.1.0")}

		// when
		unified, _ := coordinator.Coordinate(workspace, candidates)

		// then
		require.Len(t, unified, 2)
		assert.Equal(t, "1.1.0", unified["alpha"].String())
		assert.Equal(t, "1.1.0", unified["beta"].String(), "beta must be pulled along")
	})

	t.Run("should agree on a version no member sits above", func(t *testing.T) {
		// given: beta's current version already exceeds alpha's candidate.
		alpha := builders.NewPackageBuilder().WithName("alpha").WithVersion("1.0.0").BuildPackage()
		beta := builders.NewPackageBuilder().WithName("beta").WithVersion("3.0.0").BuildPackage()
		workspace := &entities.Workspace{Packages: []*entities.Package{alpha, beta}}
		settings := &entities.Settings{
			VersionGroups: []entities.VersionGroup{{Name: "core", Members: []string{"alpha", "beta"}}},
		}
		coordinator := commands.NewVersionCoordinator(settings)
		candidates := map[string]*semver.Version{"alpha": semver.MustParse("1.1.0")}

		// when
		unified, _ := coordinator.Coordinate(workspace, candidates)

		// then
		assert.Equal(t, "3.0.0", unified["alpha"].String())
		_, betaPlanned := unified["beta"]
		assert.False(t, betaPlanned, "beta already sits at the agreed version")
	})

	t.Run("should keep a group still when no member releases", func(t *testing.T) {
		// given
		alpha := builders.NewPackageBuilder().WithName("alpha").WithVersion("1.0.0").BuildPackage()
		beta := builders.NewPackageBuilder().WithName("beta").WithVersion("2.0.0").BuildPackage()
		gamma := builders.NewPackageBuilder().WithName("gamma").WithVersion("0.5.0").BuildPackage()
		workspace := &entities.Workspace{Packages: []*entities.Package{alpha, beta, gamma}}
		settings := &entities.Settings{
			VersionGroups: []entities.VersionGroup{{Name: "core", Members: []string{"alpha", "beta"}}},
		}
		coordinator := commands.NewVersionCoordinator(settings)
		candidates := map[string]*semver.Version{"gamma": semver.MustParse("0.6.0")}

		// when
		unified, _ := coordinator.Coordinate(workspace, candidates)

		// then
		require.Len(t, unified, 1)
		assert.Equal(t, "0.6.0", unified["gamma"].String())
	})

	t.Run("should skip unknown and workspace-inheriting members", func(t *testing.T) {
		// given
		alpha := builders.NewPackageBuilder().WithName("alpha").WithVersion("1.0.0").BuildPackage()
		shared := builders.NewPackageBuilder().WithName("shared").WithVersion("5.0.0").
			InheritingWorkspaceVersion().BuildPackage()
		workspace := &entities.Workspace{Packages: []*entities.Package{alpha, shared}}
		settings := &entities.Settings{
			VersionGroups: []entities.VersionGroup{
				{Name: "core", Members: []string{"alpha", "shared", "ghost"}},
			},
		}
		coordinator := commands.NewVersionCoordinator(settings)
		candidates := map[string]*semver.Version{"alpha": semver.MustParse("1.1.0")}

		// when
		unified, _ := coordinator.Coordinate(workspace, candidates)

		// then: shared's 5.0.0 must not leak into the agreed version.
		assert.Equal(t, "1.1.0", unified["alpha"].String())
		_, sharedPlanned := unified["shared"]
		assert.False(t, sharedPlanned)
	})

	t.Run("should move the workspace version to the highest inheriting candidate", func(t *testing.T) {
		// given
		sharedA := builders.NewPackageBuilder().WithName("shared-a").WithVersion("1.0.0").
			InheritingWorkspaceVersion().BuildPackage()
		sharedB := builders.NewPackageBuilder().WithName("shared-b").WithVersion("1.0.0").
			InheritingWorkspaceVersion().BuildPackage()
		indep := builders.NewPackageBuilder().WithName("indep").WithVersion("2.0.0").BuildPackage()
		workspace := &entities.Workspace{
			Version:  semver.MustParse("1.0.0"),
			Packages: []*entities.Package{sharedA, sharedB, indep},
		}
		coordinator := commands.NewVersionCoordinator(&entities.Settings{})
		candidates := map[string]*semver.Version{
			"shared-a": semver.MustParse("1.1.0"),
			"shared-b": semver.MustParse("1.0.1"),
			"indep":    semver.MustParse("2.1.0"),
		}

		// when
		unified, workspaceVersion := coordinator.Coordinate(workspace, candidates)

		// then
		require.NotNil(t, workspaceVersion)
		assert.Equal(t, "1.1.0", workspaceVersion.String())
		assert.Equal(t, "1.1.0", unified["shared-a"].String())
		assert.Equal(t, "1.1.0", unified["shared-b"].String(), "inheriting releases share one version")
		assert.Equal(t, "2.1.0", unified["indep"].String(), "independent packages stay untouched")
	})

	t.Run("should report no workspace version change when no inheriting candidate exceeds it", func(t *testing.T) {
		// given
		shared := builders.NewPackageBuilder().WithName("shared").WithVersion("2.0.0").
			InheritingWorkspaceVersion().BuildPackage()
		workspace := &entities.Workspace{
			Version:  semver.MustParse("2.0.0"),
			Packages: []*entities.Package{shared},
		}
		coordinator := commands.NewVersionCoordinator(&entities.Settings{})
		candidates := map[string]*semver.Version{"shared": semver.MustParse("1.5.0")}

		// when
		unified, workspaceVersion := coordinator.Coordinate(workspace, candidates)

		// then: the lagging candidate aligns up to the current workspace version.
		assert.Nil(t, workspaceVersion)
		assert.Equal(t, "2.0.0", unified["shared"].String())
	})
}
