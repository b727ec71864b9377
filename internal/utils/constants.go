package utils

// Response status
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error messages
const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
)

// Error codes
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeNetworkFailure  = "NETWORK_FAILURE"
	CodeServerRejected  = "SERVER_REJECTED"
	CodeAlreadyInFlight = "ALREADY_IN_FLIGHT"
)

// Gin context keys
const (
	ContextRequestID = "request_id"
	ContextUserID    = "user_id"
	ContextProfile   = "profile"
)
