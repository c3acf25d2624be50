package repositories

import (
	gitforgeRepos "github.com/rios0rios0/gitforge/pkg/global/domain/entities"
)

// ForgeRepository is an alias for gitforge's FileAccessProvider.
// It abstracts the Git hosting service (GitHub, GitLab) used to open
// release pull requests.
type ForgeRepository = gitforgeRepos.FileAccessProvider
