package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ArchiveInvalid indicates a corrupt or unreadable archive
	ArchiveInvalid ErrorCode = "ARCHIVE_INVALID"
	// ArchiveUnsupported indicates an archive format that cannot be extracted
	ArchiveUnsupported ErrorCode = "ARCHIVE_UNSUPPORTED"
	// ArchiveUnsafePath indicates an entry that would escape the extraction root
	ArchiveUnsafePath ErrorCode = "ARCHIVE_UNSAFE_PATH"
	// ArchiveTooLarge indicates the archive exceeded the configured entry or byte limits
	ArchiveTooLarge ErrorCode = "ARCHIVE_TOO_LARGE"
	// SourceUnreadable indicates a source file could not be read or decoded
	SourceUnreadable ErrorCode = "SOURCE_UNREADABLE"
	// ParseFailed indicates the syntax adapter rejected a file
	ParseFailed ErrorCode = "PARSE_FAILED"
	// NoSources indicates the input contained no source files
	NoSources ErrorCode = "NO_SOURCES"
	// ConfigInvalid indicates an invalid configuration value
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ModeUnavailable indicates the requested parser mode is not compiled in
	ModeUnavailable ErrorCode = "MODE_UNAVAILABLE"
	// ExportFailed indicates the report could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// CheckInput suggests inspecting the input
	CheckInput FixActionType = "check-input"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// MetricsError represents an error with code, message, and suggestions
type MetricsError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new MetricsError with the default fixes for its code
func New(code ErrorCode, message string, cause error) *MetricsError {
	return &MetricsError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *MetricsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MetricsError) Unwrap() error {
	return e.cause
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ArchiveInvalid: {
		{
			Type:        CheckInput,
			Description: "Re-create the archive; it may be truncated or corrupt",
		},
	},
	ArchiveUnsupported: {
		{
			Type:        CheckInput,
			Description: "Use .zip, .tar, .tar.gz/.tgz or .tar.zst",
		},
	},
	ArchiveTooLarge: {
		{
			Type:        RunCommand,
			Command:     "kmetrics init",
			Description: "Raise archive.maxEntries or archive.maxTotalBytes in the config file",
		},
	},
	NoSources: {
		{
			Type:        CheckInput,
			Description: "The input has no .kt or .kts files; check source.extensions",
		},
	},
	ModeUnavailable: {
		{
			Type:        RunCommand,
			Command:     "kmetrics analyze --mode=text",
			Description: "This binary was built without CGO; use the text parser",
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

// CodeOf returns the ErrorCode carried by err, or InternalError
func CodeOf(err error) ErrorCode {
	for err != nil {
		if me, ok := err.(*MetricsError); ok {
			return me.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return InternalError
}
