package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  statusError,
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrValidationFailed = ErrorResponse{
		Status: statusError,
		Error:  "validation_failed",
	}

	ErrNotFound = ErrorResponse{
		Status: statusError,
		Error:  "not_found",
	}

	ErrConflict = ErrorResponse{
		Status: statusError,
		Error:  "conflict",
	}

	ErrBackendUnavailable = ErrorResponse{
		Status: statusError,
		Error:  "backend_unavailable",
	}

	ErrInternal = ErrorResponse{
		Status: statusError,
		Error:  "internal_error",
	}
)

// WithDetails returns a copy of e carrying details. The package values are
// shared, so they are never modified in place.
func (e ErrorResponse) WithDetails(details string) ErrorResponse {
	e.Details = details
	return e
}
