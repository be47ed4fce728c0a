package http11

// ParseResult is the outcome of one Parse call.
type ParseResult int

const (
	// ParseDone means a complete head was parsed
	ParseDone ParseResult = iota

	// ParseInProgress means the buffer ends before the head does.
	// Call Parse again once more bytes arrived.
	ParseInProgress

	// ParseInvalid means the bytes violate the request grammar
	ParseInvalid

	// ParseTooManyHeaders means the head has more header lines than the
	// parser capacity. This is a hard failure, more bytes will not help.
	ParseTooManyHeaders
)

// String returns the string representation of the parse result
func (r ParseResult) String() string {
	switch r {
	case ParseDone:
		return "done"
	case ParseInProgress:
		return "in-progress"
	case ParseInvalid:
		return "invalid"
	case ParseTooManyHeaders:
		return "too-many-headers"
	default:
		return "unknown"
	}
}

// HeaderField is one header line of a parsed head.
// Key and Value are views into the parse buffer.
type HeaderField struct {
	Key   []byte
	Value []byte
}

// RequestHead is the request line plus header lines of a request.
//
// All slices reference the buffer passed to Parse (zero-copy). They are
// valid only while that buffer is unmodified; copy out anything that must
// outlive the next read.
type RequestHead struct {
	Method  []byte
	Target  []byte
	Version []byte
	Fields  []HeaderField
}

// Parser parses HTTP/1.1 request heads.
//
// Design:
//   - Restartable: every call re-parses the whole buffer from byte 0, so the
//     parser keeps no state between calls and partial reads need no
//     bookkeeping
//   - Bounded: at most cap(fields) header lines, decided at construction
//   - Zero-copy: the returned head references the input buffer
//
// A Parser is not safe for concurrent use; each connection owns one.
type Parser struct {
	fields []HeaderField
}

// NewParser creates a parser accepting up to maxHeaders header lines.
func NewParser(maxHeaders int) *Parser {
	if maxHeaders <= 0 {
		maxHeaders = DefaultMaxHeaders
	}
	return &Parser{fields: make([]HeaderField, maxHeaders)}
}

// Parse parses buf as a request head.
//
// On ParseDone, n is the number of bytes the head occupies; the body (if
// any) starts at buf[n]. Running off the end of buf anywhere yields
// ParseInProgress, never ParseInvalid, so Parse is safe on partial data.
//
// The returned head's Fields slice is reused by the next Parse call.
func (p *Parser) Parse(buf []byte) (head RequestHead, n int, result ParseResult) {
	s := scanner{buf: buf}

	if head.Method, result = s.token(); result != ParseDone {
		return RequestHead{}, 0, result
	}
	if result = s.spaces(); result != ParseDone {
		return RequestHead{}, 0, result
	}
	if head.Target, result = s.target(); result != ParseDone {
		return RequestHead{}, 0, result
	}
	if result = s.spaces(); result != ParseDone {
		return RequestHead{}, 0, result
	}
	if head.Version, result = s.version(); result != ParseDone {
		return RequestHead{}, 0, result
	}
	if result = s.eol(); result != ParseDone {
		return RequestHead{}, 0, result
	}

	var key, value []byte
	count := 0
	for {
		// Empty line terminates the head
		if result = s.eol(); result != ParseInvalid {
			if result != ParseDone {
				return RequestHead{}, 0, result
			}
			head.Fields = p.fields[:count]
			return head, s.pos, ParseDone
		}

		if key, result = s.token(); result != ParseDone {
			return RequestHead{}, 0, result
		}
		if result = s.char(':'); result != ParseDone {
			return RequestHead{}, 0, result
		}
		if value, result = s.value(); result != ParseDone {
			return RequestHead{}, 0, result
		}
		if result = s.eol(); result != ParseDone {
			return RequestHead{}, 0, result
		}

		if count >= len(p.fields) {
			return RequestHead{}, 0, ParseTooManyHeaders
		}
		p.fields[count] = HeaderField{Key: key, Value: value}
		count++
	}
}

// scanner walks the buffer left to right. Every rule either consumes bytes
// and returns ParseDone, or leaves pos untouched in the failing rule.
type scanner struct {
	buf []byte
	pos int
}

func (s *scanner) eof(i int) bool {
	return i >= len(s.buf)
}

// run consumes a maximal non-empty run of bytes accepted by f.
func (s *scanner) run(f func(byte) bool) ([]byte, ParseResult) {
	start := s.pos
	i := s.pos
	for {
		if s.eof(i) {
			return nil, ParseInProgress
		}
		if !f(s.buf[i]) {
			break
		}
		i++
	}
	if i == start {
		return nil, ParseInvalid
	}
	s.pos = i
	return s.buf[start:i], ParseDone
}

func (s *scanner) token() ([]byte, ParseResult) {
	return s.run(isToken)
}

func (s *scanner) target() ([]byte, ParseResult) {
	return s.run(isTargetByte)
}

func (s *scanner) spaces() ParseResult {
	_, result := s.run(func(c byte) bool { return c == ' ' })
	return result
}

func (s *scanner) char(c byte) ParseResult {
	if s.eof(s.pos) {
		return ParseInProgress
	}
	if s.buf[s.pos] != c {
		return ParseInvalid
	}
	s.pos++
	return ParseDone
}

// eol consumes CRLF. A bare LF is invalid.
func (s *scanner) eol() ParseResult {
	if s.eof(s.pos + 1) {
		if !s.eof(s.pos) && s.buf[s.pos] != '\r' {
			return ParseInvalid
		}
		return ParseInProgress
	}
	if s.buf[s.pos] != '\r' || s.buf[s.pos+1] != '\n' {
		return ParseInvalid
	}
	s.pos += 2
	return ParseDone
}

// version consumes "HTTP/1." followed by one or more digits.
func (s *scanner) version() ([]byte, ParseResult) {
	start := s.pos
	for i := 0; i < len(versionPrefix); i++ {
		if result := s.char(versionPrefix[i]); result != ParseDone {
			s.pos = start
			return nil, result
		}
	}
	if _, result := s.run(isDigit); result != ParseDone {
		s.pos = start
		return nil, result
	}
	return s.buf[start:s.pos], ParseDone
}

// value consumes a header value up to (not including) the terminating
// CRLF. Leading and trailing SP/HTAB are stripped. Control bytes other than
// HTAB, including a CR that does not start CRLF, are invalid.
func (s *scanner) value() ([]byte, ParseResult) {
	i := s.pos
	for !s.eof(i) && (s.buf[i] == ' ' || s.buf[i] == '\t') {
		i++
	}
	start := i
	for {
		if s.eof(i) {
			return nil, ParseInProgress
		}
		c := s.buf[i]
		if c == '\r' {
			if s.eof(i + 1) {
				return nil, ParseInProgress
			}
			if s.buf[i+1] != '\n' {
				return nil, ParseInvalid
			}
			break
		}
		if c != '\t' && isControl(c) {
			return nil, ParseInvalid
		}
		i++
	}
	s.pos = i
	return trimTrailingSpace(s.buf[start:i]), ParseDone
}

// trimTrailingSpace trims trailing spaces and tabs (per RFC 7230)
func trimTrailingSpace(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
