package http11

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is the root of every error caused by malformed input.
// The connection pipeline answers errors that match it with 4xx responses
// and closes the connection.
var ErrInvalidRequest = errors.New("http11: invalid request")

// Wire errors. All of them match ErrInvalidRequest with errors.Is.
var (
	// ErrInvalidHead indicates the request line or a header line is malformed
	ErrInvalidHead = fmt.Errorf("%w: malformed request head", ErrInvalidRequest)

	// ErrTooManyHeaders indicates the head carries more header lines than
	// the parser capacity
	ErrTooManyHeaders = fmt.Errorf("%w: too many headers", ErrInvalidRequest)

	// ErrHeadTooLarge indicates the head did not fit in the read buffer
	ErrHeadTooLarge = fmt.Errorf("%w: request head too large", ErrInvalidRequest)

	// ErrInvalidHeader indicates a header key or value contains CR or LF
	ErrInvalidHeader = fmt.Errorf("%w: invalid header", ErrInvalidRequest)

	// ErrInvalidContentLength indicates content-length is not a
	// non-negative base-10 integer
	ErrInvalidContentLength = fmt.Errorf("%w: invalid content-length", ErrInvalidRequest)

	// ErrDuplicateContentLength indicates a second content-length was
	// appended. content-length values are never joined.
	ErrDuplicateContentLength = fmt.Errorf("%w: duplicate content-length", ErrInvalidRequest)

	// ErrBodyTooLarge indicates the declared content-length exceeds the
	// configured body limit
	ErrBodyTooLarge = fmt.Errorf("%w: body too large", ErrInvalidRequest)
)

// Response errors
var (
	// ErrNilResponse indicates a handler returned neither a response nor an error
	ErrNilResponse = errors.New("http11: handler returned nil response")
)
