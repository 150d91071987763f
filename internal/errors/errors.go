package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates the configuration file failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ConfigNotFound indicates an explicitly requested config file is missing
	ConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	// ParseFailed indicates a source file could not be parsed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// UnsupportedFile indicates the file is not Ruby source
	UnsupportedFile ErrorCode = "UNSUPPORTED_FILE"
	// CacheUnavailable indicates the result cache could not be opened
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// WeightsInvalid indicates a weight file was rejected
	WeightsInvalid ErrorCode = "WEIGHTS_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing the configuration file
	EditConfig FixActionType = "edit-config"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// CxError represents a cxlint error with code, message, and suggestions
type CxError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewCxError creates a new CxError
func NewCxError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *CxError {
	return &CxError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Wrap creates a CxError carrying the registered fixes for code.
func Wrap(code ErrorCode, message string, cause error) *CxError {
	return NewCxError(code, message, cause, GetSuggestedFixes(code))
}

// Error implements the error interface
func (e *CxError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CxError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CxError) WithDetails(details interface{}) *CxError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first CxError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var cx *CxError
	if stderrors.As(err, &cx) {
		return cx.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var cx *CxError
	return stderrors.As(err, &cx) && cx.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        EditConfig,
			Description: "Fix the reported field in .cxlint.yml",
		},
	},
	ConfigNotFound: {
		{
			Type:        RunCommand,
			Command:     "cxlint check --auto-gen-config",
			Safe:        true,
			Description: "Generate a todo configuration from the current offenses",
		},
	},
	CacheUnavailable: {
		{
			Type:        RunCommand,
			Command:     "cxlint check --no-cache",
			Safe:        true,
			Description: "Run without the result cache",
		},
	},
	WeightsInvalid: {
		{
			Type:        RunCommand,
			Command:     "cxlint rules --format=toml",
			Safe:        true,
			Description: "Print the built-in variants as a weight file template",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
