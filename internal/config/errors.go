package config

import (
	"errors"
	"fmt"

	"github.com/mattjoyce/runnerpool/internal/validate"
)

// Error kinds returned (wrapped in *LoadError) by Loader.Load.
var (
	ErrPathMissing      = errors.New("configuration path is not defined")
	ErrResourceNotFound = errors.New("configuration source not found")
	ErrParse            = errors.New("configuration could not be parsed")
	ErrValidation       = errors.New("configuration is invalid")
)

// LoadError describes why a configuration could not be loaded. Kind is one
// of the Err* sentinels above; errors.Is matches both Kind and Err.
type LoadError struct {
	Kind       error
	Locator    string
	Err        error
	Violations validate.List
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case ErrPathMissing:
		return "config: " + ErrPathMissing.Error()
	case ErrValidation:
		return "config: invalid configuration: " + e.Violations.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("config: %s: %s", e.Kind, e.Locator)
	}
	return fmt.Sprintf("config: %s: %s: %v", e.Kind, e.Locator, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
