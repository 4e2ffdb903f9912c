package common

import "errors"

// Dependency validation errors.
var (
	ErrLoggerRequired   = errors.New("logger is required")
	ErrConfigRequired   = errors.New("config is required")
	ErrRegistryRequired = errors.New("source registry is required")
)
