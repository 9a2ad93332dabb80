package response

import "backoffice/pkg/pagination"

// Response is the envelope of every API reply.
type Response struct {
	Status     string           `json:"status"`      // "success" or "error"
	StatusCode int              `json:"status_code"` // HTTP status code
	Data       interface{}      `json:"data,omitempty"`
	Error      string           `json:"error,omitempty"`
	Details    interface{}      `json:"details,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
}

// Success wraps data in a success envelope.
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps one page of a list.
func SuccessWithPagination(statusCode int, data interface{}, meta pagination.Meta) Response {
	resp := Success(statusCode, data)
	resp.Pagination = &meta
	return resp
}

// Error wraps an error message.
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithDetails adds machine-readable details, e.g. field violations.
func ErrorWithDetails(statusCode int, err string, details interface{}) Response {
	resp := Error(statusCode, err)
	resp.Details = details
	return resp
}
