package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/graphoni/graphoni-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Actionable errors are returned as tool results rather than protocol
// errors so the calling model sees the details and can adjust.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable errors (bad parameters, unknown ids, illegal
// transitions). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// domainErrorResult maps the core error taxonomy to a structured result.
// Returns nil when the error is not a modeled domain error; the caller
// should then propagate it as a Go error.
func domainErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidState):
		return NewErrorResult("invalid_state", err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		return NewErrorResult("forbidden", err.Error())
	case errors.Is(err, apperrors.ErrAlreadySquashed):
		return NewErrorResult("already_squashed", err.Error())
	}

	var mutErr *apperrors.MutationError
	if errors.As(err, &mutErr) {
		return NewErrorResult("mutation_failed", mutErr.Cause.Error())
	}
	return nil
}
