package http11

import (
	"strings"
	"time"
)

// Request is an owned HTTP/1.1 request.
//
// The connection pipeline builds one per exchange by copying everything out
// of the read buffer, so a Request stays valid after the buffer is reused.
// The router adds Params; body decoders add Form.
type Request struct {
	Method  string
	Target  string // full request-target, including the query
	Path    string // Target before '?'
	Query   string // Target after '?', without the '?'
	Version string

	Header Header
	Body   []byte

	// Params maps route placeholder names to their percent-decoded values
	Params map[string]string

	// Form holds decoded x-www-form-urlencoded fields
	Form map[string][]string

	RemoteAddr string
	ReceivedAt time.Time

	values map[string]any
}

// NewRequest builds a request from a parsed head, copying every slice out
// of the parse buffer. Header lines are inserted with Append, so repeated
// keys are joined and a repeated content-length is rejected.
func NewRequest(head RequestHead, body []byte) (*Request, error) {
	target := string(head.Target)
	req := &Request{
		Method:  string(head.Method),
		Target:  target,
		Version: string(head.Version),
		Body:    body,
	}
	req.Path, req.Query = splitTarget(target)

	for _, f := range head.Fields {
		if err := req.Header.Append(string(f.Key), string(f.Value)); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func splitTarget(target string) (path, query string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// Param returns the value bound to a route placeholder.
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// SetParam binds a route placeholder value.
func (r *Request) SetParam(name, value string) {
	if r.Params == nil {
		r.Params = make(map[string]string, 4)
	}
	r.Params[name] = value
}

// FormValue returns the first value of a form field.
func (r *Request) FormValue(name string) (string, bool) {
	vs := r.Form[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// AddForm appends a value to a form field.
func (r *Request) AddForm(name, value string) {
	if r.Form == nil {
		r.Form = make(map[string][]string)
	}
	r.Form[name] = append(r.Form[name], value)
}

// BodyText returns the body as a string.
func (r *Request) BodyText() string {
	return string(r.Body)
}

// Set stores a request-scoped value for later handlers.
func (r *Request) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any, 4)
	}
	r.values[key] = value
}

// Value returns a request-scoped value stored with Set, or nil.
func (r *Request) Value(key string) any {
	return r.values[key]
}
