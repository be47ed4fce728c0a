package core

import (
	"fmt"
	"strings"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// Router resolves a path and method to a Handler.
//
// Routes are a trie of path segments:
//   - Literal segments ("users") are children keyed by their exact text
//   - Placeholder segments (":id") match any single segment and bind its
//     percent-decoded text to the name
//   - Literal children are tried before placeholders; placeholders are
//     tried in registration order with full backtracking
//
// A trailing slash is ignored: "/foo/" and "/foo" resolve to the same node.
// An empty segment ("/foo//bar") only matches a route registered with one.
//
// Register every route before serving. Lookups never mutate the trie, so
// concurrent lookups need no locking.
type Router struct {
	root *node
}

type node struct {
	name        string
	placeholder string // bound name; empty for literal nodes

	children     map[string]*node
	placeholders []*node // registration order
	handlers     map[string]Handler
}

func newNode(name, placeholder string) *node {
	return &node{name: name, placeholder: placeholder}
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{root: newNode("", "")}
}

// Add registers h for method on path.
//
// Path formats:
//   - Static: "/users"
//   - Placeholder: "/users/:id/posts/:post"
//
// Returns ErrRouteExists if the pair is already registered and
// ErrInvalidRoute for a bare ":" segment.
func (r *Router) Add(method, path string, h Handler) error {
	if err := r.root.insert(path, method, h); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

// Get registers a GET route. It panics on a configuration error.
func (r *Router) Get(path string, h Handler) { r.mustAdd(MethodGet, path, h) }

// Post registers a POST route. It panics on a configuration error.
func (r *Router) Post(path string, h Handler) { r.mustAdd(MethodPost, path, h) }

// Put registers a PUT route. It panics on a configuration error.
func (r *Router) Put(path string, h Handler) { r.mustAdd(MethodPut, path, h) }

// Delete registers a DELETE route. It panics on a configuration error.
func (r *Router) Delete(path string, h Handler) { r.mustAdd(MethodDelete, path, h) }

// Patch registers a PATCH route. It panics on a configuration error.
func (r *Router) Patch(path string, h Handler) { r.mustAdd(MethodPatch, path, h) }

// Head registers a HEAD route. It panics on a configuration error.
func (r *Router) Head(path string, h Handler) { r.mustAdd(MethodHead, path, h) }

// Options registers an OPTIONS route. It panics on a configuration error.
func (r *Router) Options(path string, h Handler) { r.mustAdd(MethodOptions, path, h) }

func (r *Router) mustAdd(method, path string, h Handler) {
	if err := r.Add(method, path, h); err != nil {
		panic(err)
	}
}

// Scope registers routes under a common prefix.
//
// Example:
//
//	r.Scope("/api", func(s *core.Scope) {
//	    s.Get("/users/:id", getUser)   // GET /api/users/:id
//	    s.Scope("/admin", func(s *core.Scope) {
//	        s.Post("/reload", reload)  // POST /api/admin/reload
//	    })
//	})
func (r *Router) Scope(prefix string, fn func(*Scope)) {
	fn(newScope(r, prefix))
}

// Find resolves method and path.
//
// It returns a nil Handler when nothing matches, including when the path
// matches but only for other methods. A placeholder segment that is not
// valid percent-encoding aborts the lookup with an error matching
// http11.ErrInvalidRequest.
func (r *Router) Find(method, path string) (Handler, Params, error) {
	var params Params
	h, err := r.root.find(path, method, &params)
	if err != nil || h == nil {
		return nil, nil, err
	}
	return h, params, nil
}

// Dispatch resolves req and binds its placeholders onto req.Params.
// Params are only written when a handler is found.
func (r *Router) Dispatch(req *http11.Request) (Handler, error) {
	h, params, err := r.Find(req.Method, req.Path)
	if err != nil || h == nil {
		return nil, err
	}
	for _, p := range params {
		req.SetParam(p.Key, p.Value)
	}
	return h, nil
}

// splitSegment drops one leading '/' and splits off the first segment.
// tail keeps its leading '/'.
func splitSegment(path string) (segment, tail string, terminal bool) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", "", true
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i], path[i:], false
	}
	return path, "", false
}

func (n *node) insert(path, method string, h Handler) error {
	segment, tail, terminal := splitSegment(path)
	if terminal {
		if _, ok := n.handlers[method]; ok {
			return ErrRouteExists
		}
		if n.handlers == nil {
			n.handlers = make(map[string]Handler, 1)
		}
		n.handlers[method] = h
		return nil
	}

	if !strings.HasPrefix(segment, ":") {
		child, ok := n.children[segment]
		if !ok {
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			child = newNode(segment, "")
			n.children[segment] = child
		}
		return child.insert(tail, method, h)
	}

	name := segment[1:]
	if name == "" {
		return ErrInvalidRoute
	}

	for _, child := range n.placeholders {
		if child.placeholder == name {
			return child.insert(tail, method, h)
		}
	}
	child := newNode(segment, name)
	n.placeholders = append(n.placeholders, child)
	return child.insert(tail, method, h)
}

// find walks the trie. params is a stack: every placeholder pushes its
// binding before descending and pops it when the subtree fails.
func (n *node) find(path, method string, params *Params) (Handler, error) {
	segment, tail, terminal := splitSegment(path)
	if terminal {
		return n.handlers[method], nil
	}

	if child, ok := n.children[segment]; ok {
		h, err := child.find(tail, method, params)
		if err != nil || h != nil {
			return h, err
		}
	}

	if len(n.placeholders) == 0 {
		return nil, nil
	}

	value, ok := Decode(segment)
	if !ok {
		return nil, fmt.Errorf("%w: bad escape in path segment %q", http11.ErrInvalidRequest, segment)
	}

	for _, child := range n.placeholders {
		*params = append(*params, Param{Key: child.placeholder, Value: value})
		h, err := child.find(tail, method, params)
		if err != nil || h != nil {
			return h, err
		}
		*params = (*params)[:len(*params)-1]
	}
	return nil, nil
}
