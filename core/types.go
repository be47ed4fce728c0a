// Package core is the application layer of ember: a routing trie with
// placeholder segments, route scopes and the App that composes the router
// with response middleware.
package core

import (
	"errors"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// HTTP methods with registration shortcuts. Any token is a valid method
// for Router.Add.
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodPatch   = "PATCH"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
)

// Handler handles a routed request.
//
// Returning an error that matches http11.ErrInvalidRequest answers 400 and
// closes the connection; any other error answers 500 with the error text.
//
// Example:
//
//	func getUser(req *http11.Request) (*http11.Response, error) {
//	    id, _ := req.Param("id")
//	    return http11.Text(200, "user "+id), nil
//	}
type Handler func(*http11.Request) (*http11.Response, error)

// Middleware runs after routing on every response, including the 404
// fallback, in registration order. It may mutate the response in place.
//
// Example:
//
//	app.Use(func(req *http11.Request, res *http11.Response) {
//	    res.Header.Set("x-served-by", "ember")
//	})
type Middleware func(*http11.Request, *http11.Response)

// Configuration errors returned by route registration.
var (
	// ErrRouteExists is returned when a (path, method) pair is registered twice.
	ErrRouteExists = errors.New("core: route already registered")

	// ErrInvalidRoute is returned for a placeholder segment without a name.
	ErrInvalidRoute = errors.New("core: invalid route")
)

// Param is one bound placeholder.
type Param struct {
	Key   string
	Value string
}

// Params holds placeholder bindings in the order they were bound.
type Params []Param

// Get returns the value bound to name.
func (ps Params) Get(name string) (string, bool) {
	for _, p := range ps {
		if p.Key == name {
			return p.Value, true
		}
	}
	return "", false
}
