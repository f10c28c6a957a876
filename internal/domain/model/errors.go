package model

import "errors"

var (
	// ErrUnknownKind is returned when a discriminator names no known variant.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrMalformed is returned when a payload cannot be decoded into its variant.
	ErrMalformed = errors.New("malformed payload")
)
