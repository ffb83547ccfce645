// Package config provides configuration types, profiles, and defaults for requant.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrUnknownProfile indicates an unknown profile name was provided.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrInvalidMode indicates an unknown encoding mode was provided.
	ErrInvalidMode = errors.New("invalid encoding mode")

	// ErrInvalidCrop indicates a manual crop string not in w:h:x:y form.
	ErrInvalidCrop = errors.New("invalid crop specification")

	// ErrInvalidContentType indicates an unknown content type name.
	ErrInvalidContentType = errors.New("invalid content type")
)
