package models

import "errors"

// Domain errors surfaced by lifecycle operations. Sweeps never propagate
// these; they log per-record and continue.
var (
	ErrCaseNotFound    = errors.New("case not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidAssignee = errors.New("invalid assignee")
)

// ErrorResponse is the JSON error envelope returned by the HTTP handlers
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
