package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// DictionaryParse indicates a dictionary file could not be read or parsed; the layer is skipped
	DictionaryParse ErrorCode = "DICTIONARY_PARSE_ERROR"
	// InvalidCustomRule indicates a guard rule regex failed to compile; the rule is skipped
	InvalidCustomRule ErrorCode = "INVALID_CUSTOM_RULE"
	// OracleUnavailable indicates the translation oracle could not be reached
	OracleUnavailable ErrorCode = "ORACLE_UNAVAILABLE"
	// OracleTimeout indicates the oracle call exceeded its deadline
	OracleTimeout ErrorCode = "ORACLE_TIMEOUT"
	// OracleMalformed indicates the oracle answered with something other than a token map
	OracleMalformed ErrorCode = "ORACLE_MALFORMED_RESPONSE"
	// CoverageInsufficient indicates an alias dropped source tokens
	CoverageInsufficient ErrorCode = "COVERAGE_INSUFFICIENT"
	// IllegalOutput indicates an alias contained characters that are not valid in file names
	IllegalOutput ErrorCode = "ILLEGAL_OUTPUT"
	// LearnRejected indicates an oracle answer failed key validation
	LearnRejected ErrorCode = "LEARN_REJECTED"
	// ConfigInvalid indicates an unusable configuration value
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a configuration or dictionary file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error is a namelens error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the default suggested fixes for code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// HasCode reports whether err's chain contains an *Error with code
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.cause
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	DictionaryParse: {
		{
			Type:        RunCommand,
			Command:     "namelens dict check",
			Safe:        true,
			Description: "List dictionary layers and the files that failed to load",
		},
	},
	InvalidCustomRule: {
		{
			Type:        EditFile,
			Path:        ".namelens/config.json",
			Description: "Fix the regex in guard.customRules",
		},
	},
	OracleUnavailable: {
		{
			Type:        RunCommand,
			Command:     "namelens config env",
			Safe:        true,
			Description: "Check the oracle API key and base URL overrides",
		},
	},
	OracleTimeout: {
		{
			Type:        EditFile,
			Path:        ".namelens/config.json",
			Description: "Raise oracle.timeoutMs or lower oracle.maxConcurrent",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "namelens config show",
			Safe:        true,
			Description: "Show the effective configuration",
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
