package errors

import "net/http"

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

// Validation reports input that cannot be clamped into shape, such as an
// empty title or an unknown status.
func Validation(message string) *APIError {
	return BadRequest("validation_error", message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func ItemNotFound(id string) *APIError {
	return NotFound("item_not_found", "reading item "+id+" not found")
}

// Storage reports a failed load or save. The in-memory state that triggered
// the save is kept.
func Storage(message string) *APIError {
	if message == "" {
		message = "storage unavailable"
	}
	return New(http.StatusInternalServerError, "storage_error", message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

func IsCode(err *APIError, code string) bool {
	return err != nil && err.Code == code
}
