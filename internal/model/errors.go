package model

import "fmt"

// ErrorKind is the closed set of model-call failure modes
type ErrorKind string

const (
	KindTimeout       ErrorKind = "TIMEOUT"
	KindConnection    ErrorKind = "CONNECTION_ERROR"
	KindHTTPStatus    ErrorKind = "HTTP_ERROR"
	KindEmptyResponse ErrorKind = "EMPTY_RESPONSE"
	KindParse         ErrorKind = "PARSE_FAILED"
	KindStorage       ErrorKind = "STORAGE_ERROR"
)

const (
	// rawCaptureLimit bounds how much of a raw payload an APIError holds
	rawCaptureLimit = 500
	// rawMessageLimit bounds how much raw payload the persisted message carries
	rawMessageLimit = 300
)

// APIError is a structured model-call failure. Kind is always set;
// StatusCode only for KindHTTPStatus; Raw holds a truncated payload
// for diagnosis when one was available.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Detail     string
	Raw        string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Message formats the error for the error_message column
func (e *APIError) Message() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Detail)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("[%s] HTTP %d: %s", e.Kind, e.StatusCode, e.Detail)
	}
	if e.Raw != "" {
		msg += " | raw_response: " + truncate(e.Raw, rawMessageLimit)
	}
	return msg
}

func newAPIError(kind ErrorKind, detail, raw string) *APIError {
	return &APIError{Kind: kind, Detail: detail, Raw: truncate(raw, rawCaptureLimit)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
