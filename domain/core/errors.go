package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)

	// Data errors
	ErrSchemaMismatch   = errors.New("table does not conform to schema")
	ErrEmptyColumn      = errors.New("column has no observed values")
	ErrDuplicateColumn  = errors.New("duplicate column name")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrMissingRemains   = errors.New("missing values remain after preparation")
	ErrUnknownClass     = errors.New("label outside the declared class set")
	ErrUnknownLevel     = errors.New("categorical level not seen in reference data")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
	ErrSeedMismatch     = errors.New("seed mismatch")
	ErrHashMismatch     = errors.New("hash mismatch")

	// Ingest errors
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrMalformedInput    = errors.New("malformed input data")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewEmptyColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrEmptyColumn, column)
}

func NewSchemaMismatchError(column string, reason string) error {
	return fmt.Errorf("%w: column %s: %s", ErrSchemaMismatch, column, reason)
}

func NewDisagreementError(row int, cvLabel, refitLabel string) error {
	return fmt.Errorf("%w: query row %d predicted %s under cross-validation but %s after full refit",
		ErrNonDeterministic, row, cvLabel, refitLabel)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrEmptyColumn) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrMissingRemains) ||
		errors.Is(err, ErrUnknownClass) ||
		errors.Is(err, ErrUnknownLevel)
}

func IsDeterminismError(err error) bool {
	return errors.Is(err, ErrNonDeterministic) ||
		errors.Is(err, ErrSeedMismatch) ||
		errors.Is(err, ErrHashMismatch)
}

func IsIngestError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrMalformedInput)
}
