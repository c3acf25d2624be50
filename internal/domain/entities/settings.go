package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Changelog commit ordering values.
const (
	OrderNewestFirst = "newest_first"
	OrderOldestFirst = "oldest_first"
)

// DefaultCompatTool is the executable used for library surface comparison
// when the settings file does not name one.
const DefaultCompatTool = "semver-checks"

// defaultTagPattern names release tags as "<package>-v<version>".
const defaultTagPattern = "{name}-v{version}"

// Settings is the top-level configuration for autorelease.
type Settings struct {
	Registry       RegistrySettings  `yaml:"registry"`
	Forge          ForgeSettings     `yaml:"forge"`
	Release        ReleasePolicy     `yaml:"release"`
	ChangelogOrder string            `yaml:"changelog_order"` // "newest_first" or "oldest_first"
	AllowDirty     bool              `yaml:"allow_dirty"`
	Compat         CompatSettings    `yaml:"compat"`
	Packages       []PackageSettings `yaml:"packages"`
	VersionGroups  []VersionGroup    `yaml:"version_groups"`
}

// RegistrySettings points at the package registry, when one is used.
type RegistrySettings struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"` // Inline, ${ENV_VAR}, or file path
}

// ForgeSettings describes the Git hosting provider used for release PRs.
type ForgeSettings struct {
	Type         string `yaml:"type"` // "github" or "gitlab"
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Repository   string `yaml:"repository"`
	BaseBranch   string `yaml:"base_branch"`
}

// CompatSettings controls the optional library compatibility check.
type CompatSettings struct {
	Enabled bool   `yaml:"enabled"`
	Tool    string `yaml:"tool"`
}

// PackageSettings holds per-package overrides.
type PackageSettings struct {
	Name             string   `yaml:"name"`
	TagPattern       string   `yaml:"tag_pattern"`
	ChangelogInclude []string `yaml:"changelog_include"` // Names of sibling packages whose commits join this package's changelog
}

// VersionGroup is a user-declared set of packages whose versions always
// advance together.
type VersionGroup struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// DefaultSettings returns the settings used when no configuration file
// exists: tag-based resolution only, default release policy.
func DefaultSettings() *Settings {
	return &Settings{
		ChangelogOrder: OrderNewestFirst,
		Compat:         CompatSettings{Enabled: true, Tool: DefaultCompatTool},
	}
}

// NewSettings reads and parses a configuration file, expanding environment
// variables and resolving token file paths.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	settings := DefaultSettings()
	if unmarshalErr := yaml.Unmarshal(data, settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.Registry.Token = resolveToken(settings.Registry.Token)
	settings.Forge.Token = resolveToken(settings.Forge.Token)
	applyDefaults(settings)

	if validateErr := settings.validate(); validateErr != nil {
		return nil, validateErr
	}

	return settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".autorelease.yaml",
		".autorelease.yml",
		"autorelease.yaml",
		"autorelease.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// PackageSettingsFor returns the overrides declared for the named package.
func (s *Settings) PackageSettingsFor(name string) PackageSettings {
	for _, pkg := range s.Packages {
		if pkg.Name == name {
			return pkg
		}
	}
	return PackageSettings{Name: name}
}

// TagPatternFor returns the release tag pattern for the named package,
// falling back to "{name}-v{version}".
func (s *Settings) TagPatternFor(name string) string {
	if pattern := s.PackageSettingsFor(name).TagPattern; pattern != "" {
		return pattern
	}
	return defaultTagPattern
}

// TagFor renders the release tag name for a package at a concrete version.
func (s *Settings) TagFor(name, version string) string {
	tag := strings.ReplaceAll(s.TagPatternFor(name), "{name}", name)
	return strings.ReplaceAll(tag, "{version}", version)
}

// GroupFor returns the version group containing the named package, or nil.
func (s *Settings) GroupFor(name string) *VersionGroup {
	for i := range s.VersionGroups {
		for _, member := range s.VersionGroups[i].Members {
			if member == name {
				return &s.VersionGroups[i]
			}
		}
	}
	return nil
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

func applyDefaults(settings *Settings) {
	if settings.ChangelogOrder == "" {
		settings.ChangelogOrder = OrderNewestFirst
	}
	if settings.Compat.Tool == "" {
		settings.Compat.Tool = DefaultCompatTool
	}
	if settings.Forge.BaseBranch == "" {
		settings.Forge.BaseBranch = "main"
	}
}

// validate checks settings values that can be verified without the workspace
// manifests. Membership conflicts with workspace inheritance are resolved by
// the version coordinator, which sees both.
func (s *Settings) validate() error {
	if s.ChangelogOrder != OrderNewestFirst && s.ChangelogOrder != OrderOldestFirst {
		return fmt.Errorf("changelog_order must be %q or %q, got %q",
			OrderNewestFirst, OrderOldestFirst, s.ChangelogOrder)
	}

	if s.Forge.Type != "" && s.Forge.Type != "github" && s.Forge.Type != "gitlab" {
		return fmt.Errorf("forge.type %q is not supported (github, gitlab)", s.Forge.Type)
	}

	if s.Release.MajorPattern != "" {
		if _, err := regexp.Compile(s.Release.MajorPattern); err != nil {
			return fmt.Errorf("release.major_pattern is not a valid expression: %w", err)
		}
	}
	if s.Release.MinorPattern != "" {
		if _, err := regexp.Compile(s.Release.MinorPattern); err != nil {
			return fmt.Errorf("release.minor_pattern is not a valid expression: %w", err)
		}
	}

	seen := map[string]string{}
	for _, group := range s.VersionGroups {
		if group.Name == "" {
			return errors.New("version_groups entries require a name")
		}
		for _, member := range group.Members {
			if other, ok := seen[member]; ok && other != group.Name {
				return fmt.Errorf(
					"package %q cannot belong to version groups %q and %q",
					member, other, group.Name,
				)
			}
			seen[member] = group.Name
		}
	}

	return nil
}
