package domain

import (
	"fmt"
)

// Error codes for the failure kinds the engine distinguishes
const (
	ErrParse              = "PARSE_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrCatalogConsistency = "CATALOG_CONSISTENCY_ERROR"
)

// ParseError reports an unrecoverable input failure: an unsupported
// encoding, a CSV token-count mismatch, or input from which no field
// could be extracted. Field-level problems are FieldErrors instead.
type ParseError struct {
	Encoding string `json:"encoding"`
	Message  string `json:"message"`
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (%s input)", ErrParse, e.Message, e.Encoding)
}

// NewParseError creates a ParseError for the given encoding
func NewParseError(encoding, format string, args ...interface{}) *ParseError {
	return &ParseError{Encoding: encoding, Message: fmt.Sprintf(format, args...)}
}

// FieldErrorKind tags the origin of a per-field error
type FieldErrorKind string

const (
	FieldParse      FieldErrorKind = "parse"
	FieldValidation FieldErrorKind = "validation"
)

// FieldError reports a recoverable per-field problem: an unknown key,
// a malformed numeric token, an incompatible unit suffix, or a value
// outside the physiologically possible bounds. The rest of the panel
// is unaffected.
type FieldError struct {
	Field   string         `json:"field"`
	Kind    FieldErrorKind `json:"kind"`
	Message string         `json:"message"`
	Value   string         `json:"value,omitempty"`
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// CatalogError reports an internal reference to a biomarker id the
// catalog does not know. It signals a deployment or configuration
// defect, is always fatal, and is never user-facing.
type CatalogError struct {
	BiomarkerID string `json:"biomarker_id"`
	Message     string `json:"message"`
}

// Error implements the error interface
func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrCatalogConsistency, e.Message, e.BiomarkerID)
}

// NewCatalogError creates a CatalogError for an unknown biomarker id
func NewCatalogError(id, message string) *CatalogError {
	return &CatalogError{BiomarkerID: id, Message: message}
}
