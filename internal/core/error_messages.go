// Package core runs cleaning plans end to end and maps their failures to
// user-facing messages.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Skew Reduction Errors (SKW001-SKW099)
//
// Typed errors from the transform selector, matched with errors.As:
//
//	SKW001 - Domain error: Box-Cox needs strictly positive, non-constant values
//	         Action: Pick log, sqrt or cube for the column, or clean its values first
//	         Type: *skew.DomainError
//
//	SKW002 - Configuration error: The skew settings are invalid
//	         Action: Check the threshold, manual mapping and skew table columns
//	         Type: *skew.ConfigurationError
//
//	SKW003 - Invalid option: Unknown transform in the manual mapping
//	         Action: Use one of log, sqrt, box_cox, cube
//	         Type: *skew.InvalidOptionError
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB002 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB003 - Authentication: Database rejected the credentials
//	        Patterns: "password authentication failed"
//
//	DB004 - Table not found: The source table does not exist
//	        Patterns: "does not exist"
//
//	DB005 - Permission denied: The database user lacks privileges
//	        Patterns: "permission denied"
//
// # Credentials Errors (CRED001-CRED099)
//
//	CRED001 - Incomplete credentials: A required DB_* key is missing
//	          Patterns: "credentials missing"
//
//	CRED002 - Unreadable credentials: The credentials file could not be parsed
//	          Patterns: "credentials file"
//
// # Plan Errors (PLAN001-PLAN099)
//
//	PLAN001 - Invalid plan: The cleaning plan failed validation
//	          Patterns: "invalid plan"
//
//	PLAN002 - Unreadable plan: The plan file could not be read or decoded
//	          Patterns: "read plan", "decode plan"
//
// # Data Errors (DATA001-DATA099)
//
//	DATA001 - Column not found: A plan step names a missing column
//	          Patterns: "column not found"
//
//	DATA002 - Not numeric: A numeric step targets a text column
//	          Patterns: "not numeric"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Storage disabled: Upload requested but no bucket is configured
//	         Patterns: "object storage is not configured"
//
//	EXP002 - Storage denied: The object store rejected the upload
//	         Patterns: "access denied", "accessdenied"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many cleaning runs in progress
//	         Patterns: "too many concurrent runs"
//
//	RUN002 - Request cancelled
//	         Patterns: "context canceled"
//
//	RUN003 - Request timeout
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Typed errors are checked first. Patterns are then matched
// case-insensitively using strings.Contains, and the first matching pattern
// wins, so more specific patterns are defined before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/skew"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	domainMessage = UserMessage{
		Message: "Box-Cox needs strictly positive, non-constant values",
		Action:  "Pick log, sqrt or cube for the column, or clean its values first",
		Code:    "SKW001",
	}
	configurationMessage = UserMessage{
		Message: "The skew settings are invalid",
		Action:  "Check the threshold, manual mapping and skew table columns",
		Code:    "SKW002",
	}
	invalidOptionMessage = UserMessage{
		Message: "Unknown transform in the manual mapping",
		Action:  "Use one of log, sqrt, box_cox, cube",
		Code:    "SKW003",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Run Errors (RUN001)
	// =========================================================================
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "System is busy with other cleaning runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB005)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check DB_USERNAME and DB_PASS in the credentials file",
			Code:    "DB003",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The source table does not exist",
			Action:  "Verify the table name and schema",
			Code:    "DB004",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "The database user lacks privileges",
			Action:  "Grant SELECT (and CREATE for write-back) to the database user",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Credentials Errors (CRED001-CRED002)
	// =========================================================================
	{
		pattern: "credentials missing",
		msg: UserMessage{
			Message: "Database credentials are incomplete",
			Action:  "Set DB_HOST, DB_USERNAME and DB_NAME in the credentials file or TABLECLEAN_* env vars",
			Code:    "CRED001",
		},
	},
	{
		pattern: "credentials file",
		msg: UserMessage{
			Message: "The credentials file could not be read",
			Action:  "Check that the file is valid YAML",
			Code:    "CRED002",
		},
	},

	// =========================================================================
	// Plan Errors (PLAN001-PLAN002)
	// =========================================================================
	{
		pattern: "invalid plan",
		msg: UserMessage{
			Message: "The cleaning plan is invalid",
			Action:  "Fix the listed plan fields and retry",
			Code:    "PLAN001",
		},
	},
	{
		pattern: "read plan",
		msg: UserMessage{
			Message: "The plan file could not be read",
			Action:  "Check the plan path",
			Code:    "PLAN002",
		},
	},
	{
		pattern: "decode plan",
		msg: UserMessage{
			Message: "The plan file could not be decoded",
			Action:  "Check the YAML syntax and field names",
			Code:    "PLAN002",
		},
	},

	// =========================================================================
	// Data Errors (DATA001-DATA002)
	// =========================================================================
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "A plan step names a column that does not exist",
			Action:  "Compare the plan with the table's columns",
			Code:    "DATA001",
		},
	},
	{
		pattern: "not numeric",
		msg: UserMessage{
			Message: "A numeric step targets a text column",
			Action:  "Normalize the column to numbers first",
			Code:    "DATA002",
		},
	},

	// =========================================================================
	// Export Errors (EXP001-EXP002)
	// =========================================================================
	{
		pattern: "object storage is not configured",
		msg: UserMessage{
			Message: "Upload requested but object storage is not configured",
			Action:  "Set EXPORT_S3_BUCKET or remove the bucket from the plan",
			Code:    "EXP001",
		},
	},
	{
		pattern: "access denied",
		msg: UserMessage{
			Message: "The object store rejected the upload",
			Action:  "Check the bucket policy and S3 credentials",
			Code:    "EXP002",
		},
	},
	{
		pattern: "accessdenied",
		msg: UserMessage{
			Message: "The object store rejected the upload",
			Action:  "Check the bucket policy and S3 credentials",
			Code:    "EXP002",
		},
	},

	// =========================================================================
	// Request Errors (RUN002-RUN003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller table or raise CLEAN_TIMEOUT",
			Code:    "RUN003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller table or raise CLEAN_TIMEOUT",
			Code:    "RUN003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed skew errors are recognized anywhere in the chain; otherwise the
// first matching pattern wins. If nothing matches, ERR000 is returned.
//
// Example:
//
//	err := errors.New("dial tcp: connection refused")
//	msg := MapError(err)
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		domainErr *skew.DomainError
		cfgErr    *skew.ConfigurationError
		optErr    *skew.InvalidOptionError
	)
	switch {
	case errors.As(err, &domainErr):
		return domainMessage
	case errors.As(err, &cfgErr):
		return configurationMessage
	case errors.As(err, &optErr):
		return invalidOptionMessage
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
