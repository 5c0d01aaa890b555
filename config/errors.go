package config

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing environment variable")

	// ErrInvalidEnv indicates an env override could not be parsed.
	ErrInvalidEnv = errors.New("config: invalid environment value")

	// ErrInvalid indicates the configuration failed validation.
	ErrInvalid = errors.New("config: invalid configuration")
)
