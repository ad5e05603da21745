package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors - always fatal, surfaced at construction
	ErrInvalidSpace      = errors.New("invalid parameter space")
	ErrInvalidSampleSize = errors.New("invalid sample size")
	ErrTemplateRender    = errors.New("template render failed")

	// Execution errors - per-condition, propagation policy is caller-selected
	ErrProduction = errors.New("production failed")

	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context

func NewEmptyCandidatesError(param string) error {
	return fmt.Errorf("%w: parameter %q has no candidate values", ErrInvalidSpace, param)
}

func NewDuplicateParamError(param string) error {
	return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSpace, param)
}

func NewReservedParamError(param string) error {
	return fmt.Errorf("%w: parameter name %q is reserved for output columns", ErrInvalidSpace, param)
}

func NewSampleSizeError(count int) error {
	return fmt.Errorf("%w: count %d must be non-negative", ErrInvalidSampleSize, count)
}

func NewUnboundSlotError(slot string) error {
	return fmt.Errorf("%w: slot %q has no bound value", ErrTemplateRender, slot)
}

// Error checking helpers

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidSpace) ||
		errors.Is(err, ErrInvalidSampleSize) ||
		errors.Is(err, ErrTemplateRender)
}

func IsProductionError(err error) bool {
	return errors.Is(err, ErrProduction)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
