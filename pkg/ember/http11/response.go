package http11

import (
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

// Response is an owned HTTP response built by a handler.
//
// The body accumulates through Write/WriteString. content-length is
// synthesized by the serializer and must not be set on Header.
type Response struct {
	Status int
	Header Header

	body []byte
}

// NewResponse creates an empty response with the given status code.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// HTML creates a response with an HTML body.
//
// Example:
//
//	return http11.HTML(200, "<p>Hi</p>"), nil
func HTML(status int, body string) *Response {
	return withBody(status, ContentTypeHTML, body)
}

// Text creates a response with a plain text body.
func Text(status int, body string) *Response {
	return withBody(status, ContentTypeText, body)
}

// JSON creates a response whose body is v marshaled with goccy/go-json.
func JSON(status int, v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	res := NewResponse(status)
	_ = res.Header.Set(HeaderContentType, ContentTypeJSON)
	res.body = b
	return res, nil
}

func withBody(status int, contentType, body string) *Response {
	res := NewResponse(status)
	_ = res.Header.Set(HeaderContentType, contentType)
	res.body = append(res.body, body...)
	return res
}

// Write appends p to the body. It never fails.
func (r *Response) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return len(p), nil
}

// WriteString appends s to the body. It never fails.
func (r *Response) WriteString(s string) (int, error) {
	r.body = append(r.body, s...)
	return len(s), nil
}

// SetBody replaces the body.
func (r *Response) SetBody(p []byte) {
	r.body = append(r.body[:0], p...)
}

// Body returns the accumulated body.
func (r *Response) Body() []byte {
	return r.body
}

// ContentLength returns the body length the serializer will announce.
func (r *Response) ContentLength() int {
	return len(r.body)
}

// AppendTo serializes r onto dst.
func (r *Response) AppendTo(dst []byte) []byte {
	return AppendResponse(dst, r.Status, r.Header.Entries(), r.body)
}

// AppendResponse serializes a response onto dst: status line, each entry as
// "key: value", a synthesized content-length, a blank line, then the body.
//
// entries must not contain content-length; the serializer always writes
// one computed from body.
//
// Example:
//
//	AppendResponse(nil, 200, []HeaderEntry{{"content-type", "text/html"}}, []byte("<p>Hi</p>"))
//	// "HTTP/1.1 200 OK\r\ncontent-type: text/html\r\ncontent-length: 9\r\n\r\n<p>Hi</p>"
func AppendResponse(dst []byte, status int, entries []HeaderEntry, body []byte) []byte {
	dst = AppendResponseHead(dst, status, entries, len(body))
	return append(dst, body...)
}

// AppendResponseHead serializes everything AppendResponse does except the
// body, announcing contentLength. Answers to HEAD requests use it.
func AppendResponseHead(dst []byte, status int, entries []HeaderEntry, contentLength int) []byte {
	dst = append(dst, Version...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(status), 10)
	dst = append(dst, ' ')
	dst = append(dst, StatusText(status)...)
	dst = append(dst, crlfBytes...)

	for _, e := range entries {
		dst = append(dst, e.Key...)
		dst = append(dst, colonSpace...)
		dst = append(dst, e.Value...)
		dst = append(dst, crlfBytes...)
	}

	dst = append(dst, contentLengthKV...)
	dst = strconv.AppendInt(dst, int64(contentLength), 10)
	dst = append(dst, crlfBytes...)
	return append(dst, crlfBytes...)
}

// WriteResponse serializes a response and writes it to w in one Write call.
func WriteResponse(w io.Writer, status int, entries []HeaderEntry, body []byte) error {
	buf := AppendResponse(make([]byte, 0, 128+len(body)), status, entries, body)
	_, err := w.Write(buf)
	return err
}

// WriteResponseHead writes the head of a response announcing contentLength
// to w in one Write call. No body follows.
func WriteResponseHead(w io.Writer, status int, entries []HeaderEntry, contentLength int) error {
	_, err := w.Write(AppendResponseHead(make([]byte, 0, 128), status, entries, contentLength))
	return err
}
