package domain

import (
	"errors"
	"fmt"
)

// Code identifies a terminal pipeline failure. Codes are a stable contract:
// presentation layers switch on them, so they never change spelling.
type Code string

const (
	CodeEmptyInput            Code = "EMPTY_INPUT"
	CodeTooFewRows            Code = "TOO_FEW_ROWS"
	CodeMissingRequiredColumn Code = "MISSING_REQUIRED_COLUMN"
	CodeInvalidNumber         Code = "INVALID_NUMBER"
	CodeUnknownSchema         Code = "UNKNOWN_SCHEMA"

	CodeDateInvalid      Code = "DATE_INVALID"
	CodeDateAmbiguous    Code = "DATE_AMBIGUOUS"
	CodeDateMixedFormats Code = "DATE_MIXED_FORMATS"

	CodeMergeNoRows Code = "MERGE_NO_ROWS"

	// Weather acquisition soft-failure codes. These never surface as a
	// pipeline Error; they appear only in per-date failure lists.
	CodeFetchTimeout   Code = "FETCH_TIMEOUT"
	CodeFetchTransport Code = "FETCH_TRANSPORT"
	CodeFetchNoData    Code = "FETCH_NO_DATA"
)

// Error is a typed stage failure. A stage returns at most one Error per
// invocation and never leaks a partial result alongside it.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a typed failure with no structured context.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches one structured context entry (row index, offending
// value, detected headers) and returns the same error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the stable code from an error chain, or "" if the error
// is not a typed pipeline failure.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
