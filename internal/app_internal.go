package internal

import (
	"github.com/rios0rios0/autorelease/internal/domain/entities"
)

// AppInternal holds the controllers resolved from the DIG container.
type AppInternal struct {
	controllers *[]entities.Controller
}

// NewAppInternal creates the application context with all registered controllers.
func NewAppInternal(controllers *[]entities.Controller) *AppInternal {
	return &AppInternal{controllers: controllers}
}

// GetControllers returns all registered controllers.
func (it *AppInternal) GetControllers() []entities.Controller {
	return *it.controllers
}
