package domain

import "fmt"

type ValidationCode string

const (
	ValidationFileTooLarge        ValidationCode = "FileTooLarge"
	ValidationUnsupportedFileType ValidationCode = "UnsupportedFileType"
	ValidationMissingColumns      ValidationCode = "MissingColumns"
	ValidationEmptyFile           ValidationCode = "EmptyFile"
	ValidationTooManyRows         ValidationCode = "TooManyRows"
	ValidationNoValidContent      ValidationCode = "NoValidContent"
	ValidationUndecodable         ValidationCode = "Undecodable"
)

// ValidationError is a permanent input rejection; it is never retried.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationResult carries the decoded rows on success so parsing does not
// decode the upload a second time.
type ValidationResult struct {
	OK       bool
	Err      *ValidationError
	Header   []string
	Rows     [][]string
	Encoding string
}
