package sizing

import "fmt"

// ConfigError reports an invalid configuration value. It is always
// returned before any variable declaration begins.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for field '%s': %s", e.Field, e.Message)
}

// BuildError represents a failure while assembling the optimization model.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("model build failed during %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
