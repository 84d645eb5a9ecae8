package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error writes an error envelope with an arbitrary status.
func Error(c echo.Context, status int, code, message string, details map[string]string) error {
	return c.JSON(status, &ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// BadRequest writes a 400 Bad Request response with the given error message.
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, CodeInvalidRequest, message, nil)
}

// InvalidRequestBody writes a 400 Bad Request response for malformed request bodies.
func InvalidRequestBody(c echo.Context) error {
	return Error(c, http.StatusBadRequest, CodeInvalidRequest, MsgInvalidRequestBody, nil)
}

// ValidationError writes a 400 Bad Request response with validation error details.
func ValidationError(c echo.Context, details map[string]string) error {
	return Error(c, http.StatusBadRequest, CodeValidationError, MsgValidationFailed, details)
}

// ValidationErrorWithMessage writes a 400 Bad Request response with a custom message.
func ValidationErrorWithMessage(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, CodeValidationError, message, nil)
}

// NotFound writes a 404 Not Found response.
func NotFound(c echo.Context, code, message string) error {
	return Error(c, http.StatusNotFound, code, message, nil)
}

// SessionNotFound writes a 404 for an unknown or evicted session.
func SessionNotFound(c echo.Context) error {
	return NotFound(c, CodeSessionNotFound, MsgSessionNotFound)
}

// Conflict writes a 409 Conflict response. It is used when the request is
// well-formed but clashes with the session's current state.
func Conflict(c echo.Context, code, message string, details map[string]string) error {
	return Error(c, http.StatusConflict, code, message, details)
}

// BadGateway writes a 502 Bad Gateway response carrying the backend's message.
func BadGateway(c echo.Context, code, message string) error {
	return Error(c, http.StatusBadGateway, code, message, nil)
}

// GatewayTimeout writes a 504 Gateway Timeout response.
func GatewayTimeout(c echo.Context) error {
	return Error(c, http.StatusGatewayTimeout, CodeTimeout, MsgTimeout, nil)
}

// RequestCancelled writes a 504 Gateway Timeout response for cancelled requests.
func RequestCancelled(c echo.Context) error {
	return Error(c, http.StatusGatewayTimeout, CodeTimeout, MsgRequestCancelled, nil)
}

// InternalServerError writes a 500 Internal Server Error response.
func InternalServerError(c echo.Context) error {
	return Error(c, http.StatusInternalServerError, CodeInternalError, MsgInternalError, nil)
}
