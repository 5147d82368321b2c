package config

import "fmt"

// ConfigurationError indicates that the process cannot start with the
// supplied configuration. It is always fatal: callers should print the
// message and exit rather than attempt to continue in a degraded mode.
type ConfigurationError struct {
	// Parameter names the offending configuration parameter, using the
	// environment variable spelling when one exists.
	Parameter string

	// Message is a human-readable description of what is missing or wrong.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Parameter, e.Message)
}

// NewConfigurationError creates a configuration error for a parameter.
func NewConfigurationError(parameter, message string) *ConfigurationError {
	return &ConfigurationError{Parameter: parameter, Message: message}
}
