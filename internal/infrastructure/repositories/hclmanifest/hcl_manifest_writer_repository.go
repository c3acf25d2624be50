package hclmanifest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	logger "github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

const manifestFileMode = 0o644

// HCLManifestWriterRepository writes an update plan back into the manifests:
// package versions, moved dependency requirements, the workspace version and
// the lock entries. Edits are surgical so comments and formatting survive.
type HCLManifestWriterRepository struct{}

// NewHCLManifestWriterRepository creates the manifest writer.
func NewHCLManifestWriterRepository() repositories.ManifestWriterRepository {
	return &HCLManifestWriterRepository{}
}

// RenderPlan returns every manifest the plan modifies, keyed by path
// relative to the workspace root, without writing anything.
func (w *HCLManifestWriterRepository) RenderPlan(
	workspace *entities.Workspace,
	plan *entities.UpdatePlan,
) (map[string]string, error) {
	rendered := make(map[string]string)

	for i := range plan.Updates {
		update := &plan.Updates[i]
		content, changed, err := renderPackageManifest(workspace, plan, update)
		if err != nil {
			return nil, err
		}
		if changed {
			rendered[path.Join(update.Package.Dir, entities.PackageManifestName)] = content
		}
	}

	if plan.WorkspaceVersion != nil {
		content, err := renderWorkspaceManifest(workspace, plan.WorkspaceVersion)
		if err != nil {
			return nil, err
		}
		rendered[entities.WorkspaceManifestName] = content
	}

	if len(plan.Updates) > 0 {
		content, err := renderLockFile(workspace, plan)
		if err != nil {
			return nil, err
		}
		rendered[entities.LockFileName] = content
	}

	return rendered, nil
}

// ApplyPlan writes the rendered manifests to the working copy.
func (w *HCLManifestWriterRepository) ApplyPlan(
	workspace *entities.Workspace,
	plan *entities.UpdatePlan,
) error {
	rendered, err := w.RenderPlan(workspace, plan)
	if err != nil {
		return err
	}

	for relPath, content := range rendered {
		target := filepath.Join(workspace.Root, filepath.FromSlash(relPath))
		if writeErr := os.WriteFile(target, []byte(content), manifestFileMode); writeErr != nil {
			return fmt.Errorf("failed to write %s: %w", relPath, writeErr)
		}
		logger.Debugf("Wrote %s", relPath)
	}
	return nil
}

// renderPackageManifest applies one plan entry to its package.hcl: the new
// version (unless the package inherits the workspace version) and any local
// dependency requirement the released versions no longer satisfy.
func renderPackageManifest(
	workspace *entities.Workspace,
	plan *entities.UpdatePlan,
	update *entities.PackageUpdate,
) (string, bool, error) {
	manifestPath := filepath.Join(
		workspace.Root, filepath.FromSlash(update.Package.Dir), entities.PackageManifestName,
	)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}

	file, diags := hclwrite.ParseConfig(data, manifestPath, hcl.InitialPos)
	if diags.HasErrors() {
		return "", false, fmt.Errorf("failed to parse %s: %w", manifestPath, diags)
	}

	changed := false

	if !update.Package.InheritsWorkspace {
		packageBlock := file.Body().FirstMatchingBlock("package", nil)
		if packageBlock == nil {
			return "", false, fmt.Errorf("%s has no package block", manifestPath)
		}
		packageBlock.Body().SetAttributeValue(
			"version", cty.StringVal(update.Result.NextVersion.String()),
		)
		changed = true
	}

	for _, dependency := range update.Package.Dependencies {
		if !dependency.IsLocalLink() {
			continue
		}
		sibling := plan.UpdateFor(dependency.Name)
		if sibling == nil || constraintAccepts(dependency.Constraint, sibling.Result.NextVersion) {
			continue
		}

		dependencyBlock := file.Body().FirstMatchingBlock("dependency", []string{dependency.Name})
		if dependencyBlock == nil {
			return "", false, fmt.Errorf(
				"%s has no dependency block for %q", manifestPath, dependency.Name,
			)
		}
		dependencyBlock.Body().SetAttributeValue(
			"version", cty.StringVal("^"+sibling.Result.NextVersion.String()),
		)
		changed = true
	}

	return string(file.Bytes()), changed, nil
}

func renderWorkspaceManifest(
	workspace *entities.Workspace,
	version *semver.Version,
) (string, error) {
	manifestPath := filepath.Join(workspace.Root, entities.WorkspaceManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}

	file, diags := hclwrite.ParseConfig(data, manifestPath, hcl.InitialPos)
	if diags.HasErrors() {
		return "", fmt.Errorf("failed to parse %s: %w", manifestPath, diags)
	}

	workspaceBlock := file.Body().FirstMatchingBlock("workspace", nil)
	if workspaceBlock == nil {
		return "", fmt.Errorf("%s has no workspace block", manifestPath)
	}
	workspaceBlock.Body().SetAttributeValue("version", cty.StringVal(version.String()))

	return string(file.Bytes()), nil
}

// renderLockFile upserts a lock entry per planned package. The checksum is
// cleared; the publish pipeline records the new artifact's checksum.
func renderLockFile(
	workspace *entities.Workspace,
	plan *entities.UpdatePlan,
) (string, error) {
	lockPath := filepath.Join(workspace.Root, entities.LockFileName)

	file := hclwrite.NewEmptyFile()
	data, err := os.ReadFile(lockPath)
	switch {
	case err == nil:
		parsed, diags := hclwrite.ParseConfig(data, lockPath, hcl.InitialPos)
		if diags.HasErrors() {
			return "", fmt.Errorf("failed to parse %s: %w", lockPath, diags)
		}
		file = parsed
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to read %s: %w", lockPath, err)
	}

	for i := range plan.Updates {
		update := &plan.Updates[i]

		entry := file.Body().FirstMatchingBlock("lock", []string{update.Package.Name})
		if entry == nil {
			if len(file.Body().Blocks()) > 0 {
				file.Body().AppendNewline()
			}
			entry = file.Body().AppendNewBlock("lock", []string{update.Package.Name})
		}
		entry.Body().SetAttributeValue(
			"version", cty.StringVal(update.Result.NextVersion.String()),
		)
		entry.Body().SetAttributeValue("checksum", cty.StringVal(""))
	}

	return string(file.Bytes()), nil
}

func constraintAccepts(constraint string, version *semver.Version) bool {
	parsed, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return parsed.Check(version)
}
