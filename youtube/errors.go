package youtube

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// APIError is a failure surfaced to callers with an HTTP status and a short,
// user-facing message. Err keeps the underlying cause for logging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

const (
	MsgDailyLimit   = "Daily usage limit reached. Please try again tomorrow. (API quota for YouTube exceeded)"
	MsgQuota        = "YouTube API quota exceeded. Please try again later."
	MsgNotFound     = "Comment not found. Please check the URL and try again."
	MsgInvalidID    = "Invalid comment ID. Please check the URL and try again."
	MsgAuth         = "YouTube API authentication failed. Please contact support."
	MsgTooMany      = "Too many requests. Please try again later."
	MsgFetchFailed  = "Failed to fetch comment from YouTube API"
	MsgFetchTimeout = "Timed out fetching comment from YouTube API"
)

// mapError converts an upstream or transport error into an *APIError.
func mapError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{StatusCode: http.StatusGatewayTimeout, Message: MsgFetchTimeout, Err: err}
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &APIError{StatusCode: http.StatusInternalServerError, Message: MsgFetchFailed, Err: err}
	}
	switch gerr.Code {
	case http.StatusForbidden:
		return &APIError{StatusCode: gerr.Code, Message: MsgQuota, Err: err}
	case http.StatusNotFound:
		return &APIError{StatusCode: gerr.Code, Message: MsgNotFound, Err: err}
	case http.StatusBadRequest:
		return &APIError{StatusCode: gerr.Code, Message: MsgInvalidID, Err: err}
	case http.StatusUnauthorized:
		return &APIError{StatusCode: gerr.Code, Message: MsgAuth, Err: err}
	case http.StatusTooManyRequests:
		return &APIError{StatusCode: gerr.Code, Message: MsgTooMany, Err: err}
	}
	msg := gerr.Message
	if msg == "" {
		msg = MsgFetchFailed
	}
	code := gerr.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return &APIError{StatusCode: code, Message: msg, Err: err}
}

// StatusCode returns the HTTP status for err: the APIError status when err
// wraps one, otherwise 500.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}
