package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// ConnectionState is the pipeline stage a connection is in.
type ConnectionState int

const (
	// StateReadingHead waits for a complete request head
	StateReadingHead ConnectionState = iota

	// StateReadingBody collects content-length body bytes
	StateReadingBody

	// StateDispatching runs the handler
	StateDispatching

	// StateWriting writes the response
	StateWriting

	// StateClosed means the connection is finished
	StateClosed
)

// String returns the string representation of the connection state
func (s ConnectionState) String() string {
	switch s {
	case StateReadingHead:
		return "reading-head"
	case StateReadingBody:
		return "reading-body"
	case StateDispatching:
		return "dispatching"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection drives one client connection through the request pipeline:
// read head, read body, dispatch, write, then either loop for the next
// request (keep-alive) or close.
//
// Design:
//   - The head must fit in one fixed-capacity buffer; it never grows
//   - The buffer is re-parsed from byte 0 after every read
//   - Bytes past the current request are kept at the front of the buffer
//     for the next one
//   - Malformed input gets a 4xx response and the connection is closed,
//     since the stream position can no longer be trusted
//
// A Connection is owned by a single goroutine.
type Connection struct {
	conn    net.Conn
	handler Handler
	config  Config
	log     logrus.FieldLogger
	metrics *Metrics

	parser *http11.Parser
	buf    []byte // fixed capacity, valid bytes are buf[:n]
	n      int

	state    ConnectionState
	requests int
}

// NewConnection creates a connection pipeline for conn.
func NewConnection(conn net.Conn, config Config, handler Handler) *Connection {
	config = config.withDefaults()

	var remote string
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	return &Connection{
		conn:    conn,
		handler: handler,
		config:  config,
		log:     config.Logger.WithField("remote", remote),
		metrics: config.Metrics,
		parser:  http11.NewParser(config.MaxHeaders),
		buf:     http11.GetHeadBuffer(config.HeadBufferSize),
		state:   StateReadingHead,
	}
}

// State returns the current pipeline stage.
func (c *Connection) State() ConnectionState {
	return c.state
}

// RequestCount returns the number of responses written on this connection.
func (c *Connection) RequestCount() int {
	return c.requests
}

// Serve runs the pipeline until the peer goes away, a request forbids
// keep-alive, or an error closes the connection. It always closes conn.
func (c *Connection) Serve() {
	defer c.cleanup()

	for c.serveRequest() {
	}
}

func (c *Connection) cleanup() {
	c.state = StateClosed
	c.conn.Close()
	if c.buf != nil {
		http11.PutHeadBuffer(c.buf)
		c.buf = nil
	}
}

// serveRequest handles one request and reports whether the connection
// stays open for another.
func (c *Connection) serveRequest() bool {
	c.state = StateReadingHead
	head, headLen, ok := c.readHead()
	if !ok {
		return false
	}
	received := time.Now()

	// Copies everything out of buf; head is dead after this
	req, err := http11.NewRequest(head, nil)
	if err != nil {
		c.metrics.requestError(reasonBadHeader)
		c.log.WithError(err).Debug("Rejecting request header")
		c.writeError(http11.StatusBadRequest)
		return false
	}

	c.state = StateReadingBody
	length, _ := req.Header.ContentLength()
	if length > c.config.MaxBodyBytes {
		c.metrics.requestError(reasonBodyTooLarge)
		c.log.WithField("content_length", length).Debug("Rejecting request body")
		c.writeError(http11.StatusPayloadTooLarge)
		return false
	}
	if req.Body, ok = c.readBody(headLen, int(length)); !ok {
		return false
	}

	c.state = StateDispatching
	connection, _ := req.Header.Get(http11.HeaderConnection)
	keepAlive := connection == http11.ConnectionKeepAlive
	req.Header.Remove(http11.HeaderConnection)
	req.Header.Remove(http11.HeaderKeepAlive)

	if addr := c.conn.RemoteAddr(); addr != nil {
		req.RemoteAddr = addr.String()
	}
	req.ReceivedAt = received

	res, err := c.dispatch(req)
	if err != nil {
		if errors.Is(err, http11.ErrInvalidRequest) {
			c.log.WithError(err).Debug("Handler rejected request")
			res = errorResponse(http11.StatusBadRequest)
			keepAlive = false
		} else {
			c.log.WithError(err).WithField("path", req.Path).Warn("Handler failed")
			res = http11.Text(http11.StatusInternalServerError, err.Error())
		}
	}

	c.state = StateWriting
	if !c.writeResponse(res, keepAlive, req.Method == http11.MethodHead) {
		return false
	}
	c.metrics.observe(res.Status, time.Since(received))
	return keepAlive
}

// readHead reads until buf holds a complete head. On failure the peer has
// already been answered (or is gone) and ok is false.
func (c *Connection) readHead() (head http11.RequestHead, n int, ok bool) {
	for {
		if c.n > 0 {
			var result http11.ParseResult
			head, n, result = c.parser.Parse(c.buf[:c.n])
			switch result {
			case http11.ParseDone:
				return head, n, true
			case http11.ParseInvalid:
				c.metrics.requestError(reasonInvalid)
				c.log.WithError(http11.ErrInvalidHead).Debug("Rejecting request")
				c.writeError(http11.StatusBadRequest)
				return head, 0, false
			case http11.ParseTooManyHeaders:
				c.metrics.requestError(reasonTooManyHeaders)
				c.log.WithError(http11.ErrTooManyHeaders).Debug("Rejecting request")
				c.writeError(http11.StatusRequestHeaderFieldsTooLarge)
				return head, 0, false
			}
		}

		if c.n == len(c.buf) {
			c.metrics.requestError(reasonHeadTooLarge)
			c.log.WithError(http11.ErrHeadTooLarge).Debug("Rejecting request")
			c.writeError(http11.StatusRequestHeaderFieldsTooLarge)
			return head, 0, false
		}

		m, err := c.read(c.buf[c.n:])
		c.n += m
		if m == 0 {
			c.logReadError(err)
			return head, 0, false
		}
	}
}

// readBody returns the length-byte body. Bytes already buffered after the
// head are used first; whatever follows the body stays buffered for the
// next request.
func (c *Connection) readBody(headLen, length int) ([]byte, bool) {
	var body []byte
	if length > 0 {
		body = make([]byte, length)
	}
	copied := copy(body, c.buf[headLen:c.n])
	c.n = copy(c.buf, c.buf[headLen+copied:c.n])

	if copied < length {
		if c.config.ReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}
		if _, err := io.ReadFull(c.conn, body[copied:]); err != nil {
			c.logReadError(err)
			return nil, false
		}
	}
	return body, true
}

func (c *Connection) read(p []byte) (int, error) {
	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	return c.conn.Read(p)
}

func (c *Connection) logReadError(err error) {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.log.Debug("Peer closed connection")
		return
	}
	c.log.WithError(err).Debug("Read failed")
}

// dispatch calls the handler once, turning a panic or a nil response into
// an error.
func (c *Connection) dispatch(req *http11.Request) (res *http11.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.panicked()
			c.log.WithFields(logrus.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Handler panicked")
			res, err = errorResponse(http11.StatusInternalServerError), nil
		}
	}()

	res, err = c.handler.Handle(req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, http11.ErrNilResponse)
	}
	return res, nil
}

// writeResponse writes res in a single write. For HEAD requests only the
// head goes out, still announcing the body length. A write failure tears
// the connection down and is not reported further.
func (c *Connection) writeResponse(res *http11.Response, keepAlive, headOnly bool) bool {
	// The serializer owns content-length
	res.Header.Remove(http11.HeaderContentLength)
	connection := http11.ConnectionClose
	if keepAlive {
		connection = http11.ConnectionKeepAlive
	}
	_ = res.Header.Set(http11.HeaderConnection, connection)

	var err error
	if headOnly {
		err = http11.WriteResponseHead(c.conn, res.Status, res.Header.Entries(), res.ContentLength())
	} else {
		err = http11.WriteResponse(c.conn, res.Status, res.Header.Entries(), res.Body())
	}
	if err != nil {
		c.log.WithError(err).Debug("Write failed")
		return false
	}
	c.requests++
	return true
}

// writeError answers a malformed request. The connection always closes.
func (c *Connection) writeError(status int) {
	c.state = StateWriting
	res := errorResponse(status)
	if c.writeResponse(res, false, false) {
		c.metrics.observe(status, 0)
	}
}

func errorResponse(status int) *http11.Response {
	return http11.HTML(status, fmt.Sprintf("%d %s", status, http11.StatusText(status)))
}
