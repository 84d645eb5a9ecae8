package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
)

// CodeNoFlightsFound is the backend's error code for an empty search.
const CodeNoFlightsFound = "no_flights_found"

// codeMalformedResponse marks a response body that could not be decoded.
const codeMalformedResponse = "malformed_response"

// noResultsPhrases is the fallback for backends that only send a message.
var noResultsPhrases = []string{"no flights found", "no flight found", "no flights available"}

// decodeError builds a BackendError from a failed response body.
func decodeError(op string, status int, body []byte) *domain.BackendError {
	var env envelope
	_ = json.Unmarshal(body, &env)

	be := domain.NewBackendError(op, status, "", env.Message)
	if env.Error != nil {
		be.Code = env.Error.Code
		if env.Error.Message != "" {
			be.Message = env.Error.Message
		}
	}
	be.Retryable = retryableStatus(status)
	return be
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isNoResults classifies a search failure as "nothing matched". The code is
// checked first. A 404 counts only when it carries the backend's error object,
// so a 404 from a misrouted base URL stays a failure. The message is a fallback.
func isNoResults(err error) bool {
	var be *domain.BackendError
	if !errors.As(err, &be) {
		return false
	}
	if be.Code == CodeNoFlightsFound {
		return true
	}
	if be.StatusCode == 0 || be.Code == codeMalformedResponse {
		return false
	}
	if be.StatusCode == http.StatusNotFound && be.Code != "" {
		return true
	}

	msg := strings.ToLower(be.Message)
	for _, phrase := range noResultsPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
