//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autorelease/internal/domain/commands"
	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// StubReleaseCommand is a stub implementation of commands.ReleasePR.
type StubReleaseCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	LastSettings     *entities.Settings
	LastOpts         commands.ReleasePROptions
}

var _ commands.ReleasePR = (*StubReleaseCommand)(nil)

func (s *StubReleaseCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.ReleasePROptions,
) error {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.ExecuteErr
}
