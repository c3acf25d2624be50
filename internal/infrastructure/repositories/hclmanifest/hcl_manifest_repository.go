package hclmanifest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// HCLManifestRepository reads the workspace, package and lock manifests.
type HCLManifestRepository struct{}

// NewHCLManifestRepository creates the manifest reader.
func NewHCLManifestRepository() repositories.ManifestRepository {
	return &HCLManifestRepository{}
}

// LoadWorkspace reads workspace.hcl, resolves the member globs and parses
// every member's package manifest plus the lock file.
func (r *HCLManifestRepository) LoadWorkspace(root string) (*entities.Workspace, error) {
	manifest, err := parseWorkspaceManifest(root)
	if err != nil {
		return nil, err
	}

	workspace := &entities.Workspace{
		Root:    root,
		Version: manifest.version,
		Members: manifest.members,
	}

	dirs, err := resolveMemberDirs(root, manifest.members)
	if err != nil {
		return nil, err
	}

	declaredIn := make(map[string]string, len(dirs))
	for _, dir := range dirs {
		pkg, pkgErr := r.ReadPackageManifest(root, dir)
		if pkgErr != nil {
			return nil, pkgErr
		}

		if pkg.InheritsWorkspace {
			if workspace.Version == nil {
				return nil, fmt.Errorf(
					"package %q inherits the workspace version but %s declares none",
					pkg.Name, entities.WorkspaceManifestName,
				)
			}
			pkg.Version = workspace.Version
		}

		if other, dup := declaredIn[pkg.Name]; dup {
			return nil, fmt.Errorf(
				"package name %q declared in both %q and %q", pkg.Name, other, dir,
			)
		}
		declaredIn[pkg.Name] = dir
		workspace.Packages = append(workspace.Packages, pkg)
	}

	lock, err := parseLockFile(root)
	if err != nil {
		return nil, err
	}
	workspace.Lock = lock

	return workspace, nil
}

// ReadPackageManifest parses one package.hcl. The caller resolves workspace
// version inheritance; here the flag is only set.
func (r *HCLManifestRepository) ReadPackageManifest(
	root, dir string,
) (*entities.Package, error) {
	manifestPath := filepath.Join(root, dir, entities.PackageManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}
	return ParsePackageManifest(data, manifestPath, dir)
}

// ParsePackageManifest decodes package manifest content. The tag resolver
// uses it for manifests read out of historical commits, so it must not touch
// the filesystem.
func ParsePackageManifest(data []byte, manifestPath, dir string) (*entities.Package, error) {
	file, parseErr := parseHCL(data, manifestPath)
	if parseErr != nil {
		return nil, parseErr
	}

	bodyContent, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "package"},
			{Type: "dependency", LabelNames: []string{"name"}},
		},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", manifestPath, diags)
	}

	pkg := &entities.Package{Dir: dir, Kind: entities.KindLibrary}
	var sawPackageBlock bool

	for _, block := range bodyContent.Blocks {
		switch block.Type {
		case "package":
			if sawPackageBlock {
				return nil, fmt.Errorf("%s declares more than one package block", manifestPath)
			}
			sawPackageBlock = true
			if blockErr := readPackageBlock(block, pkg, manifestPath); blockErr != nil {
				return nil, blockErr
			}
		case "dependency":
			dependency, depErr := readDependencyBlock(block, manifestPath)
			if depErr != nil {
				return nil, depErr
			}
			pkg.Dependencies = append(pkg.Dependencies, dependency)
		}
	}

	if !sawPackageBlock {
		return nil, fmt.Errorf("%s has no package block", manifestPath)
	}
	if pkg.Name == "" {
		return nil, fmt.Errorf("%s: package block requires a name", manifestPath)
	}

	return pkg, nil
}

// ReadWorkspaceVersion parses only the shared version out of workspace.hcl,
// nil when none is declared.
func (r *HCLManifestRepository) ReadWorkspaceVersion(root string) (*semver.Version, error) {
	manifest, err := parseWorkspaceManifest(root)
	if err != nil {
		return nil, err
	}
	return manifest.version, nil
}

// --- workspace manifest ---

type workspaceManifest struct {
	members []string
	version *semver.Version
}

func parseWorkspaceManifest(root string) (*workspaceManifest, error) {
	manifestPath := filepath.Join(root, entities.WorkspaceManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", manifestPath, err)
	}

	file, parseErr := parseHCL(data, manifestPath)
	if parseErr != nil {
		return nil, parseErr
	}

	bodyContent, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "workspace"}},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", manifestPath, diags)
	}
	if len(bodyContent.Blocks) == 0 {
		return nil, fmt.Errorf("%s has no workspace block", manifestPath)
	}

	attrs, attrDiags := bodyContent.Blocks[0].Body.JustAttributes()
	if attrDiags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", manifestPath, attrDiags)
	}

	manifest := &workspaceManifest{}

	members, hasMembers, listErr := stringListAttr(attrs, "members", manifestPath)
	if listErr != nil {
		return nil, listErr
	}
	if !hasMembers || len(members) == 0 {
		return nil, fmt.Errorf("%s: workspace block requires a members list", manifestPath)
	}
	manifest.members = members

	if raw, ok := stringAttr(attrs, "version"); ok {
		version, versionErr := semver.NewVersion(raw)
		if versionErr != nil {
			return nil, fmt.Errorf(
				"%s: workspace version %q is not semantic: %w", manifestPath, raw, versionErr,
			)
		}
		manifest.version = version
	}

	return manifest, nil
}

// resolveMemberDirs expands the member globs into the sorted set of
// directories that actually contain a package manifest.
func resolveMemberDirs(root string, globs []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var dirs []string

	for _, pattern := range globs {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid members pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, statErr := fs.Stat(fsys, match)
			if statErr != nil || !info.IsDir() {
				continue
			}
			if _, manifestErr := fs.Stat(fsys, path.Join(match, entities.PackageManifestName)); manifestErr != nil {
				continue
			}
			if !seen[match] {
				seen[match] = true
				dirs = append(dirs, match)
			}
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// --- package manifest blocks ---

func readPackageBlock(block *hcl.Block, pkg *entities.Package, manifestPath string) error {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode %s: %w", manifestPath, diags)
	}

	if name, ok := stringAttr(attrs, "name"); ok {
		pkg.Name = name
	}

	if raw, ok := stringAttr(attrs, "version"); ok {
		version, err := semver.NewVersion(raw)
		if err != nil {
			return fmt.Errorf("%s: version %q is not semantic: %w", manifestPath, raw, err)
		}
		pkg.Version = version
	} else {
		pkg.InheritsWorkspace = true
	}

	if kind, ok := stringAttr(attrs, "kind"); ok {
		if kind != entities.KindLibrary && kind != entities.KindBinary {
			return fmt.Errorf(
				"%s: kind %q is not supported (%s, %s)",
				manifestPath, kind, entities.KindLibrary, entities.KindBinary,
			)
		}
		pkg.Kind = kind
	}

	if readme, ok := stringAttr(attrs, "readme"); ok {
		pkg.Readme = readme
	}

	include, _, err := stringListAttr(attrs, "include", manifestPath)
	if err != nil {
		return err
	}
	pkg.Include = include

	exclude, _, err := stringListAttr(attrs, "exclude", manifestPath)
	if err != nil {
		return err
	}
	pkg.Exclude = exclude

	return nil
}

func readDependencyBlock(block *hcl.Block, manifestPath string) (entities.Dependency, error) {
	dependency := entities.Dependency{}
	if len(block.Labels) > 0 {
		dependency.Name = block.Labels[0]
	}
	if dependency.Name == "" {
		return dependency, fmt.Errorf("%s: dependency block requires a name label", manifestPath)
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return dependency, fmt.Errorf("failed to decode %s: %w", manifestPath, diags)
	}

	if constraint, ok := stringAttr(attrs, "version"); ok {
		if _, err := semver.NewConstraint(constraint); err != nil {
			return dependency, fmt.Errorf(
				"%s: dependency %q version %q is not a valid requirement: %w",
				manifestPath, dependency.Name, constraint, err,
			)
		}
		dependency.Constraint = constraint
	}
	if depPath, ok := stringAttr(attrs, "path"); ok {
		dependency.Path = depPath
	}

	return dependency, nil
}

// --- lock file ---

func parseLockFile(root string) (map[string]entities.LockEntry, error) {
	lockPath := filepath.Join(root, entities.LockFileName)
	data, err := os.ReadFile(lockPath)
	if os.IsNotExist(err) {
		return map[string]entities.LockEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", lockPath, err)
	}
	return ParseLockContent(data, lockPath)
}

// ParseLockContent decodes lock file content without touching the filesystem.
func ParseLockContent(data []byte, lockPath string) (map[string]entities.LockEntry, error) {
	file, parseErr := parseHCL(data, lockPath)
	if parseErr != nil {
		return nil, parseErr
	}

	bodyContent, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "lock", LabelNames: []string{"name"}}},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", lockPath, diags)
	}

	lock := make(map[string]entities.LockEntry, len(bodyContent.Blocks))
	for _, block := range bodyContent.Blocks {
		if len(block.Labels) == 0 || block.Labels[0] == "" {
			return nil, fmt.Errorf("%s: lock block requires a name label", lockPath)
		}

		attrs, attrDiags := block.Body.JustAttributes()
		if attrDiags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", lockPath, attrDiags)
		}

		entry := entities.LockEntry{}
		entry.Version, _ = stringAttr(attrs, "version")
		entry.Checksum, _ = stringAttr(attrs, "checksum")
		lock[block.Labels[0]] = entry
	}

	return lock, nil
}

// --- attribute helpers ---

func parseHCL(data []byte, filename string) (*hcl.File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}
	return file, nil
}

func stringAttr(attrs hcl.Attributes, name string) (string, bool) {
	attr, ok := attrs[name]
	if !ok {
		return "", false
	}
	val, diags := attr.Expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() || val.Type() != cty.String {
		return "", false
	}
	return val.AsString(), true
}

func stringListAttr(attrs hcl.Attributes, name, manifestPath string) ([]string, bool, error) {
	attr, ok := attrs[name]
	if !ok {
		return nil, false, nil
	}

	val, diags := attr.Expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() {
		return nil, false, fmt.Errorf("failed to decode %s: %w", manifestPath, diags)
	}
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, false, fmt.Errorf("%s: %s must be a list of strings", manifestPath, name)
	}

	var items []string
	for _, item := range val.AsValueSlice() {
		if item.Type() != cty.String {
			return nil, false, fmt.Errorf("%s: %s must be a list of strings", manifestPath, name)
		}
		items = append(items, item.AsString())
	}
	return items, true, nil
}
