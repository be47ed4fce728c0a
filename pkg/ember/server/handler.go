package server

import "github.com/watt-toolkit/ember/pkg/ember/http11"

// Handler is the single entry point a connection calls once per request.
//
// Errors are classified by the connection: an error matching
// http11.ErrInvalidRequest is answered with 400 and closes the connection;
// any other error is answered with 500 carrying the error text.
type Handler interface {
	Handle(*http11.Request) (*http11.Response, error)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as handlers.
type HandlerFunc func(*http11.Request) (*http11.Response, error)

// Handle calls f(req).
func (f HandlerFunc) Handle(req *http11.Request) (*http11.Response, error) {
	return f(req)
}
