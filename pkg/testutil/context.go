package testutil

import (
	"net/http"

	"licensecheck/pkg/requestcontext"
)

// WithSubject marks the request as made by an authenticated operator, the
// way the auth middleware does.
func WithSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithSubject(req.Context(), subject))
}

// WithRequestID attaches a request ID without running the middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
