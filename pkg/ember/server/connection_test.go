package server

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

func TestConnectionStateString(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateReadingHead, "reading-head"},
		{StateReadingBody, "reading-body"},
		{StateDispatching, "dispatching"},
		{StateWriting, "writing"},
		{StateClosed, "closed"},
		{ConnectionState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func serve(t *testing.T, handler Handler, chunks ...string) (*mockConn, *Connection) {
	t.Helper()
	cfg, _ := testConfig()
	conn := newMockConn(chunks...)
	c := NewConnection(conn, cfg, handler)
	c.Serve()
	if !conn.IsClosed() {
		t.Error("connection not closed after Serve")
	}
	if c.State() != StateClosed {
		t.Errorf("State() = %v, want closed", c.State())
	}
	return conn, c
}

func TestConnectionKeepAliveSequence(t *testing.T) {
	conn, c := serve(t, echoPath,
		"GET /a HTTP/1.1\r\nConnection: keep-alive\r\n\r\n",
		"GET /b HTTP/1.1\r\n\r\n",
	)

	want := wire(200, http11.ContentTypeText, "keep-alive", "/a") +
		wire(200, http11.ContentTypeText, "close", "/b")
	if got := conn.GetWritten(); got != want {
		t.Errorf("written:\n%q\nwant:\n%q", got, want)
	}
	if c.RequestCount() != 2 {
		t.Errorf("RequestCount() = %d, want 2", c.RequestCount())
	}
}

func TestConnectionClosesWithoutKeepAlive(t *testing.T) {
	conn, _ := serve(t, echoPath,
		"GET /a HTTP/1.1\r\nHost: x\r\n\r\n",
		"GET /never HTTP/1.1\r\n\r\n",
	)

	if got, want := conn.GetWritten(), wire(200, http11.ContentTypeText, "close", "/a"); got != want {
		t.Errorf("written %q, want %q", got, want)
	}
}

func TestConnectionKeepAliveIsLiteral(t *testing.T) {
	for _, value := range []string{"Keep-Alive", "keep-alive, upgrade", "close"} {
		conn, _ := serve(t, echoPath,
			"GET /a HTTP/1.1\r\nConnection: "+value+"\r\n\r\n",
			"GET /b HTTP/1.1\r\n\r\n",
		)
		if got, want := conn.GetWritten(), wire(200, http11.ContentTypeText, "close", "/a"); got != want {
			t.Errorf("Connection: %s: written %q, want %q", value, got, want)
		}
	}
}

func TestConnectionStripsHopHeaders(t *testing.T) {
	var seen []http11.HeaderEntry
	h := HandlerFunc(func(req *http11.Request) (*http11.Response, error) {
		seen = append(seen, req.Header.Entries()...)
		return http11.Text(200, "ok"), nil
	})

	serve(t, h, "GET / HTTP/1.1\r\nConnection: keep-alive\r\nKeep-Alive: timeout=5\r\nX-Id: 1\r\n\r\n")

	if len(seen) != 1 || seen[0] != (http11.HeaderEntry{Key: "x-id", Value: "1"}) {
		t.Errorf("handler saw %v, want only x-id", seen)
	}
}

func TestConnectionHeadAcrossReads(t *testing.T) {
	raw := "GET /split HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n"
	chunks := make([]string, 0, len(raw))
	for i := range raw {
		chunks = append(chunks, raw[i:i+1])
	}

	conn, _ := serve(t, echoPath, chunks...)
	if got, want := conn.GetWritten(), wire(200, http11.ContentTypeText, "close", "/split"); got != want {
		t.Errorf("written %q, want %q", got, want)
	}
}

func TestConnectionBody(t *testing.T) {
	echoBody := HandlerFunc(func(req *http11.Request) (*http11.Response, error) {
		return http11.Text(200, req.Method+" "+req.BodyText()), nil
	})

	tests := []struct {
		name   string
		chunks []string
	}{
		{"with head", []string{"POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"}},
		{"separate read", []string{"POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\n", "hello"}},
		{"partly buffered", []string{"POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhe", "l", "lo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _ := serve(t, echoBody, tt.chunks...)
			if got, want := conn.GetWritten(), wire(200, http11.ContentTypeText, "close", "POST hello"); got != want {
				t.Errorf("written %q, want %q", got, want)
			}
		})
	}
}

func TestConnectionCarriesLeftoverBytes(t *testing.T) {
	echoBody := HandlerFunc(func(req *http11.Request) (*http11.Response, error) {
		return http11.Text(200, req.Path+":"+req.BodyText()), nil
	})

	// Both requests arrive in one read
	conn, _ := serve(t, echoBody,
		"POST /one HTTP/1.1\r\nConnection: keep-alive\r\nContent-Length: 3\r\n\r\nabc"+
			"GET /two HTTP/1.1\r\nConnection: keep-alive\r\n\r\n"+
			"GET /thr",
		"ee HTTP/1.1\r\n\r\n",
	)

	want := wire(200, http11.ContentTypeText, "keep-alive", "/one:abc") +
		wire(200, http11.ContentTypeText, "keep-alive", "/two:") +
		wire(200, http11.ContentTypeText, "close", "/three:")
	if got := conn.GetWritten(); got != want {
		t.Errorf("written:\n%q\nwant:\n%q", got, want)
	}
}

func TestConnectionPeerGoesAway(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"immediately", nil},
		{"mid head", []string{"GET / HTTP/1.1\r\nHo"}},
		{"mid body", []string{"POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"}},
	}

	called := false
	h := HandlerFunc(func(*http11.Request) (*http11.Response, error) {
		called = true
		return http11.Text(200, "x"), nil
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _ := serve(t, h, tt.chunks...)
			if got := conn.GetWritten(); got != "" {
				t.Errorf("written %q, want nothing", got)
			}
		})
	}
	if called {
		t.Error("handler called for an incomplete request")
	}
}

func TestConnectionMalformedRequests(t *testing.T) {
	manyHeaders := "GET / HTTP/1.1\r\n" + strings.Repeat("X-H: v\r\n", http11.DefaultMaxHeaders+1) + "\r\n"
	bigHead := "GET /" + strings.Repeat("a", http11.DefaultHeadBufferSize) + " HTTP/1.1\r\n\r\n"

	tests := []struct {
		name   string
		input  string
		status int
	}{
		{"bad request line", "GET / HTTP/2.0\r\n\r\n", 400},
		{"bare LF", "GET / HTTP/1.1\n\n", 400},
		{"too many headers", manyHeaders, 431},
		{"head too large", bigHead, 431},
		{"duplicate content-length", "POST / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 1\r\n\r\nab", 400},
		{"invalid content-length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", 400},
		{"body too large", fmt.Sprintf("POST / HTTP/1.1\r\nContent-Length: %d\r\n\r\n", http11.DefaultMaxBodyBytes+1), 413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A well-formed follow-up request must never be served
			conn, _ := serve(t, echoPath, tt.input, "GET /next HTTP/1.1\r\n\r\n")
			if got, want := conn.GetWritten(), errorWire(tt.status); got != want {
				t.Errorf("written %q, want %q", got, want)
			}
		})
	}
}

func TestConnectionHandlerFailures(t *testing.T) {
	boom := errors.New("database unavailable")

	tests := []struct {
		name    string
		handler HandlerFunc
		want    string
		servesB bool
	}{
		{
			name: "invalid request error",
			handler: func(*http11.Request) (*http11.Response, error) {
				return nil, fmt.Errorf("decoding form: %w", http11.ErrInvalidRequest)
			},
			want: errorWire(400),
		},
		{
			name: "other error keeps the connection",
			handler: func(*http11.Request) (*http11.Response, error) {
				return nil, boom
			},
			want:    wire(500, http11.ContentTypeText, "keep-alive", boom.Error()),
			servesB: true,
		},
		{
			name: "panic",
			handler: func(*http11.Request) (*http11.Response, error) {
				panic("bug")
			},
			want:    wire(500, http11.ContentTypeHTML, "keep-alive", "500 Internal Server Error"),
			servesB: true,
		},
		{
			name: "nil response",
			handler: func(*http11.Request) (*http11.Response, error) {
				return nil, nil
			},
			want: wire(500, http11.ContentTypeText, "keep-alive",
				"GET /a: "+http11.ErrNilResponse.Error()),
			servesB: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			h := HandlerFunc(func(req *http11.Request) (*http11.Response, error) {
				calls++
				if req.Path == "/b" {
					return http11.Text(200, "b"), nil
				}
				return tt.handler(req)
			})

			conn, _ := serve(t, h,
				"GET /a HTTP/1.1\r\nConnection: keep-alive\r\n\r\n",
				"GET /b HTTP/1.1\r\n\r\n",
			)

			want := tt.want
			if tt.servesB {
				want += wire(200, http11.ContentTypeText, "close", "b")
			}
			if got := conn.GetWritten(); got != want {
				t.Errorf("written:\n%q\nwant:\n%q", got, want)
			}
		})
	}
}

func TestConnectionLogsPanic(t *testing.T) {
	cfg, hook := testConfig()
	conn := newMockConn("GET / HTTP/1.1\r\n\r\n")
	h := HandlerFunc(func(*http11.Request) (*http11.Response, error) {
		panic("bug")
	})

	NewConnection(conn, cfg, h).Serve()

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "Handler panicked" {
			found = true
			if e.Data["panic"] != "bug" {
				t.Errorf("panic field = %v", e.Data["panic"])
			}
		}
	}
	if !found {
		t.Error("panic was not logged at error level")
	}
}

func TestConnectionWriteFailure(t *testing.T) {
	cfg, _ := testConfig()
	conn := newMockConn(
		"GET /a HTTP/1.1\r\nConnection: keep-alive\r\n\r\n",
		"GET /b HTTP/1.1\r\n\r\n",
	)
	conn.writeErr = errors.New("broken pipe")

	calls := 0
	h := HandlerFunc(func(*http11.Request) (*http11.Response, error) {
		calls++
		return http11.Text(200, "x"), nil
	})

	c := NewConnection(conn, cfg, h)
	c.Serve()

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
	if conn.writes != 1 {
		t.Errorf("writes = %d, want a single write", conn.writes)
	}
	if !conn.IsClosed() {
		t.Error("connection not closed after write failure")
	}
}

func TestConnectionSingleWritePerResponse(t *testing.T) {
	cfg, _ := testConfig()
	conn := newMockConn(
		"GET /a HTTP/1.1\r\nConnection: keep-alive\r\n\r\n",
		"GET /b HTTP/1.1\r\n\r\n",
	)
	NewConnection(conn, cfg, echoPath).Serve()

	if conn.writes != 2 {
		t.Errorf("writes = %d, want 2", conn.writes)
	}
}

func TestConnectionOverridesContentLength(t *testing.T) {
	h := HandlerFunc(func(*http11.Request) (*http11.Response, error) {
		res := http11.NewResponse(200)
		res.Header.Set("Content-Length", "999")
		res.WriteString("abc")
		return res, nil
	})

	conn, _ := serve(t, h, "GET / HTTP/1.1\r\n\r\n")
	if got, want := conn.GetWritten(), wire(200, "", "close", "abc"); got != want {
		t.Errorf("written %q, want %q", got, want)
	}
}

func TestConnectionHeadOmitsBody(t *testing.T) {
	conn, _ := serve(t, echoPath,
		"HEAD /page HTTP/1.1\r\nConnection: keep-alive\r\n\r\n",
		"GET /next HTTP/1.1\r\n\r\n",
	)

	full := wire(200, http11.ContentTypeText, "keep-alive", "/page")
	head := full[:len(full)-len("/page")]
	want := head + wire(200, http11.ContentTypeText, "close", "/next")
	if got := conn.GetWritten(); got != want {
		t.Errorf("written:\n%q\nwant:\n%q", got, want)
	}
	if !strings.Contains(head, "content-length: 5\r\n") {
		t.Errorf("head %q does not announce the body length", head)
	}
}

func TestConnectionFillsRequest(t *testing.T) {
	var got *http11.Request
	h := HandlerFunc(func(req *http11.Request) (*http11.Response, error) {
		got = req
		return http11.Text(200, "ok"), nil
	})

	serve(t, h, "GET /p?q=1 HTTP/1.0\r\nHost: h\r\n\r\n")

	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Path != "/p" || got.Query != "q=1" || got.Version != "HTTP/1.0" {
		t.Errorf("request = %s %s %s", got.Path, got.Query, got.Version)
	}
	if got.RemoteAddr != "127.0.0.1:12345" {
		t.Errorf("RemoteAddr = %q", got.RemoteAddr)
	}
	if got.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestConnectionCustomLimits(t *testing.T) {
	cfg, _ := testConfig()
	cfg.HeadBufferSize = 64
	cfg.MaxHeaders = 1
	cfg.MaxBodyBytes = 4

	tests := []struct {
		name   string
		input  string
		status int
	}{
		{"head over 64 bytes", "GET /" + strings.Repeat("x", 80) + " HTTP/1.1\r\n\r\n", 431},
		{"two headers", "GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\n\r\n", 431},
		{"five byte body", "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello", 413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newMockConn(tt.input)
			NewConnection(conn, cfg, echoPath).Serve()
			if got, want := conn.GetWritten(), errorWire(tt.status); got != want {
				t.Errorf("written %q, want %q", got, want)
			}
		})
	}
}
