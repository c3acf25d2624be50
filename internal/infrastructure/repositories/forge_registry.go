package repositories

import (
	"errors"
	"fmt"

	domainRepos "github.com/rios0rios0/autorelease/internal/domain/repositories"
)

// ErrUnknownForge is returned when settings name a forge type nothing
// registered under.
var ErrUnknownForge = errors.New("unknown forge type")

// ForgeFactory is a constructor function that creates a ForgeRepository given
// an auth token.
type ForgeFactory func(token string) domainRepos.ForgeRepository

// ForgeRegistry maps forge type names to their client factories.
type ForgeRegistry struct {
	forges map[string]ForgeFactory
}

// NewForgeRegistry creates an empty forge registry.
func NewForgeRegistry() *ForgeRegistry {
	return &ForgeRegistry{
		forges: make(map[string]ForgeFactory),
	}
}

// Register adds a forge factory under the given name (e.g. "github").
func (r *ForgeRegistry) Register(name string, factory ForgeFactory) {
	r.forges[name] = factory
}

// Get returns a configured forge client for the given name and token.
func (r *ForgeRegistry) Get(name, token string) (domainRepos.ForgeRepository, error) {
	factory, ok := r.forges[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForge, name)
	}
	return factory(token), nil
}

// Names returns the list of registered forge names.
func (r *ForgeRegistry) Names() []string {
	names := make([]string, 0, len(r.forges))
	for name := range r.forges {
		names = append(names, name)
	}
	return names
}
