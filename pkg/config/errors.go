package config

import "fmt"

// ConfigurationError reports a missing or malformed configuration value
type ConfigurationError struct {
	Variable string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Variable, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Variable, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func missing(variable string) error {
	return &ConfigurationError{Variable: variable, Reason: "environment variable is required"}
}
