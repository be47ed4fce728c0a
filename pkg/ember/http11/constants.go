// Package http11 implements the HTTP/1.1 wire layer of ember: a restartable
// request-head parser, an ordered case-insensitive header container and the
// response serializer.
package http11

// Capacities used by the connection pipeline unless configured otherwise.
const (
	// DefaultHeadBufferSize is the fixed capacity of the per-connection head
	// buffer. A head that does not fit fails the connection.
	DefaultHeadBufferSize = 4096

	// DefaultMaxHeaders is the number of header lines the parser accepts
	// before reporting ParseTooManyHeaders.
	DefaultMaxHeaders = 100

	// DefaultMaxBodyBytes bounds the declared content-length.
	DefaultMaxBodyBytes = 1 << 20
)

// Protocol
const (
	// Version is the version written on every status line.
	Version = "HTTP/1.1"

	versionPrefix = "HTTP/1."

	// MethodHead responses carry headers but no body.
	MethodHead = "HEAD"
)

// Header keys handled by the engine. Stored keys are always lowercase.
const (
	HeaderContentLength = "content-length"
	HeaderContentType   = "content-type"
	HeaderConnection    = "connection"
	HeaderKeepAlive     = "keep-alive"
)

// Connection header values
const (
	ConnectionKeepAlive = "keep-alive"
	ConnectionClose     = "close"
)

// Content types used by the response helpers
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

var (
	crlfBytes       = []byte("\r\n")
	colonSpace      = []byte(": ")
	contentLengthKV = []byte("content-length: ")
)

// tokenTable marks the RFC 7230 tchar set:
// "!" / "#" / "$" / "%" / "&" / "'" / "*" / "+" / "-" / "." / "^" / "_" / "`" / "|" / "~" / DIGIT / ALPHA
var tokenTable = [128]bool{
	'!': true, '#': true, '$': true, '%': true, '&': true, '\'': true,
	'*': true, '+': true, '-': true, '.': true, '^': true, '_': true,
	'`': true, '|': true, '~': true,
	'0': true, '1': true, '2': true, '3': true, '4': true,
	'5': true, '6': true, '7': true, '8': true, '9': true,
	'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true,
	'H': true, 'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true,
	'O': true, 'P': true, 'Q': true, 'R': true, 'S': true, 'T': true, 'U': true,
	'V': true, 'W': true, 'X': true, 'Y': true, 'Z': true,
	'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true,
	'h': true, 'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true,
	'o': true, 'p': true, 'q': true, 'r': true, 's': true, 't': true, 'u': true,
	'v': true, 'w': true, 'x': true, 'y': true, 'z': true,
}

func isToken(c byte) bool {
	return c < 0x80 && tokenTable[c]
}

func isControl(c byte) bool {
	return c < 0x20 || c == 0x7f
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isTargetByte reports whether c may appear in a request-target.
// The head is ASCII only.
func isTargetByte(c byte) bool {
	return c > ' ' && c < 0x7f
}
