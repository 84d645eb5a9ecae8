// Package response provides standardized HTTP response builders for the session API.
// It centralizes response formatting to ensure consistency across all endpoints.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorDetail is the error envelope written by every failing endpoint.
type ErrorDetail struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains field-specific or contextual error details
	Details map[string]string `json:"details,omitempty"`
}

// Error codes used in API responses.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeValidationError     = "validation_error"
	CodeNotFound            = "not_found"
	CodeSessionNotFound     = "session_not_found"
	CodeSubscriptionExpired = "subscription_expired"
	CodeRoutesNotLoaded     = "routes_not_loaded"
	CodeSelectionConflict   = "selection_conflict"
	CodeQuotaExceeded       = "quota_exceeded"
	CodeAttachmentConflict  = "attachment_conflict"
	CodeSuperseded          = "superseded"
	CodeSearchFailed        = "search_failed"
	CodeCommitFailed        = "commit_failed"
	CodeBackendError        = "backend_error"
	CodeTimeout             = "timeout"
	CodeInternalError       = "internal_error"
)

// Error messages used in API responses.
const (
	MsgInvalidRequestBody = "Failed to parse request body"
	MsgValidationFailed   = "Request validation failed"
	MsgSessionNotFound    = "Session not found or expired"
	MsgSuperseded         = "A newer request replaced this one"
	MsgBackendError       = "The flight service is unavailable. Please try again."
	MsgTimeout            = "Request timed out"
	MsgRequestCancelled   = "Request was cancelled"
	MsgInternalError      = "An unexpected error occurred"
)

// OK writes a 200 OK response with the given data.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// Created writes a 201 Created response with the given data.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
