package dto

import "time"

// ErrorBody carries a machine readable code and a human readable message.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// OK wraps data in a successful envelope.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data, Timestamp: time.Now()}
}

// Fail wraps an error code and message in a failed envelope.
func Fail(code, message string, details map[string]any) Envelope {
	return Envelope{
		Success:   false,
		Error:     &ErrorBody{Code: code, Message: message, Details: details},
		Timestamp: time.Now(),
	}
}
