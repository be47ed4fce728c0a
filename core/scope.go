package core

import "strings"

// Scope registers routes below a fixed prefix. Obtain one from
// Router.Scope or App.Scope.
type Scope struct {
	router *Router
	prefix string // always ends with '/'
}

func newScope(r *Router, prefix string) *Scope {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Scope{router: r, prefix: prefix}
}

func (s *Scope) join(path string) string {
	return s.prefix + strings.TrimPrefix(path, "/")
}

// Add registers h for method on the prefixed path.
func (s *Scope) Add(method, path string, h Handler) error {
	return s.router.Add(method, s.join(path), h)
}

// Get registers a GET route. It panics on a configuration error.
func (s *Scope) Get(path string, h Handler) { s.router.mustAdd(MethodGet, s.join(path), h) }

// Post registers a POST route. It panics on a configuration error.
func (s *Scope) Post(path string, h Handler) { s.router.mustAdd(MethodPost, s.join(path), h) }

// Put registers a PUT route. It panics on a configuration error.
func (s *Scope) Put(path string, h Handler) { s.router.mustAdd(MethodPut, s.join(path), h) }

// Delete registers a DELETE route. It panics on a configuration error.
func (s *Scope) Delete(path string, h Handler) { s.router.mustAdd(MethodDelete, s.join(path), h) }

// Patch registers a PATCH route. It panics on a configuration error.
func (s *Scope) Patch(path string, h Handler) { s.router.mustAdd(MethodPatch, s.join(path), h) }

// Scope nests another prefix below this one.
func (s *Scope) Scope(prefix string, fn func(*Scope)) {
	fn(newScope(s.router, s.join(prefix)))
}
