package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the search session.
var (
	// ErrInvalidRequest marks a malformed or incomplete search request; it never reaches the backend.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSkipSearch signals that required selections are missing; callers treat it as a no-op.
	ErrSkipSearch = errors.New("search skipped: selections incomplete")

	// ErrNoResults is the backend's "no matching flights" classification.
	ErrNoResults = errors.New("no flights found")

	// ErrSuperseded is returned for a response whose request is no longer the latest issued.
	ErrSuperseded = errors.New("response superseded by a newer request")

	// ErrRoutesNotLoaded is returned when routes for the subscription are not the loaded set.
	ErrRoutesNotLoaded = errors.New("routes not loaded for subscription")

	// ErrUnknownAirport is returned when a selection is outside the permitted routes.
	ErrUnknownAirport = errors.New("airport not permitted by subscription routes")

	// ErrSubscriptionNotFound is returned for an unknown subscription ID.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionExpired is returned when an expired subscription is selected for search.
	ErrSubscriptionExpired = errors.New("subscription expired")

	// ErrNoActiveSearch is returned when the itinerary is used before a search produced results.
	ErrNoActiveSearch = errors.New("no active search")

	// ErrUnknownOption is returned when the selected flight is not in the leg's result list.
	ErrUnknownOption = errors.New("flight option not found")

	// ErrWrongLeg is returned when selecting on a leg the machine is not awaiting.
	ErrWrongLeg = errors.New("selection not expected for this leg")

	// ErrSelectionComplete is returned once the booking draft has been handed off.
	ErrSelectionComplete = errors.New("itinerary selection already complete")

	// ErrDuplicateItem is returned when staging an item already committed or pending.
	ErrDuplicateItem = errors.New("item already attached")

	// ErrCommittedItem is returned when discarding an item that is already committed.
	ErrCommittedItem = errors.New("committed items cannot be discarded")

	// ErrNothingToCommit is returned when a commit finds no pending items.
	ErrNothingToCommit = errors.New("no pending items to commit")

	// ErrSessionNotFound is returned for an unknown or expired session ID.
	ErrSessionNotFound = errors.New("session not found")
)

// GenericSearchMessage is shown when the backend gave no usable message.
const GenericSearchMessage = "We couldn't load flights right now. Please try again."

// BackendError is a transport or backend failure.
type BackendError struct {
	// Operation is the logical backend call (e.g., "search_flights")
	Operation string

	// StatusCode is the HTTP status, 0 for transport failures
	StatusCode int

	// Code is the backend's machine-readable error code, if any
	Code string

	// Message is the backend's human-readable message, if any
	Message string

	// Retryable indicates if the call may succeed when repeated
	Retryable bool

	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %s failed (status %d): %s", e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("backend %s failed: %s", e.Operation, msg)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a non-retryable backend error.
func NewBackendError(op string, status int, code, message string) *BackendError {
	return &BackendError{Operation: op, StatusCode: status, Code: code, Message: message}
}

// NewTransportError creates a retryable error for a failed round trip.
func NewTransportError(op string, err error) *BackendError {
	return &BackendError{Operation: op, Retryable: true, Err: err}
}

// SearchError is a search failure carrying a message fit for display.
type SearchError struct {
	// Message is the backend message verbatim, or GenericSearchMessage
	Message string

	Err error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError wraps err with a display message.
func NewSearchError(err error) *SearchError {
	return &SearchError{Message: DisplayMessage(err, GenericSearchMessage), Err: err}
}

// QuotaExceededError is returned when staging would overflow a subscription allowance.
type QuotaExceededError struct {
	SubscriptionID string
	Kind           AttachmentKind
	Allowance      int
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("subscription %s allows at most %d %ss", e.SubscriptionID, e.Allowance, e.Kind)
}

// CommitError is returned when the backend rejects staged items. The items stay pending.
type CommitError struct {
	SubscriptionID string
	Kind           AttachmentKind
	Message        string
	Err            error
}

// Error implements the error interface.
func (e *CommitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// NewCommitError wraps a failed commit.
func NewCommitError(subscriptionID string, kind AttachmentKind, err error) *CommitError {
	return &CommitError{
		SubscriptionID: subscriptionID,
		Kind:           kind,
		Message:        DisplayMessage(err, fmt.Sprintf("Could not save %ss. Please try again.", kind)),
		Err:            err,
	}
}

// DisplayMessage returns the backend message when err carries one, otherwise fallback.
func DisplayMessage(err error, fallback string) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}

// WrapInvalidRequest creates an error wrapping ErrInvalidRequest with additional context.
func WrapInvalidRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// IsInvalidRequest checks if the error is or wraps ErrInvalidRequest.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNoResults checks if the error is or wraps ErrNoResults.
func IsNoResults(err error) bool {
	return errors.Is(err, ErrNoResults)
}

// IsQuotaExceeded checks if the error is a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsRetryable reports whether a backend error may succeed on retry.
func IsRetryable(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Retryable
}
