package entities

import (
	gitforgeEntities "github.com/rios0rios0/gitforge/pkg/global/domain/entities"
)

// Repository is re-exported from gitforge.
type Repository = gitforgeEntities.Repository

// File is re-exported from gitforge.
type File = gitforgeEntities.File

// FileChange is re-exported from gitforge.
type FileChange = gitforgeEntities.FileChange

// BranchInput is re-exported from gitforge.
type BranchInput = gitforgeEntities.BranchInput

// PullRequestInput is re-exported from gitforge.
type PullRequestInput = gitforgeEntities.PullRequestInput

// PullRequest is re-exported from gitforge.
type PullRequest = gitforgeEntities.PullRequest
