package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Given a status code derived from the error code
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as JSON

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/core"
	"github.com/JonMunkholm/tableclean/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(err, userMsg.Code)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// writeError writes a JSON error for failures detected by the web layer
// itself, such as malformed request bodies.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"reason", message,
	)
	writeJSON(w, status, ErrorResponse{Error: message, Message: message, Code: code})
}

// statusFor chooses the HTTP status for a mapped error.
func statusFor(err error, code string) int {
	if errors.Is(err, core.ErrNoDatabase) {
		return http.StatusServiceUnavailable
	}

	switch {
	case code == "DB004":
		return http.StatusNotFound
	case code == "RUN001":
		return http.StatusServiceUnavailable
	case code == "RUN002":
		return http.StatusRequestTimeout
	case code == "RUN003":
		return http.StatusGatewayTimeout
	case strings.HasPrefix(code, "SKW"):
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "PLAN"), strings.HasPrefix(code, "DATA"), code == "EXP001":
		return http.StatusBadRequest
	case strings.HasPrefix(code, "DB"), strings.HasPrefix(code, "CRED"):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
