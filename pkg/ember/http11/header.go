package http11

import (
	"math"
	"strings"
)

// HeaderEntry is one stored header. Key is always lowercase.
type HeaderEntry struct {
	Key   string
	Value string
}

// Header is an ordered, case-insensitive header container.
//
// Design:
//   - Keys are normalized to ASCII lowercase on insertion, so there is at
//     most one entry per key
//   - Entries keep insertion order for iteration and for wire output
//   - Linear scan instead of a map: requests carry a handful of headers and
//     a slice scan beats hashing at that size
//   - content-length is parsed eagerly; a malformed or ambiguous length
//     fails the operation that introduced it
//
// The zero value is an empty header ready to use.
type Header struct {
	entries []HeaderEntry

	contentLength    int64
	hasContentLength bool
}

// Get returns the value stored under key (case-insensitive).
func (h *Header) Get(key string) (string, bool) {
	if i := h.index(key); i >= 0 {
		return h.entries[i].Value, true
	}
	return "", false
}

// Has reports whether key is present (case-insensitive).
func (h *Header) Has(key string) bool {
	return h.index(key) >= 0
}

// Set stores value under key, replacing any existing value.
//
// Setting content-length to anything but a non-negative base-10 integer
// returns ErrInvalidContentLength and leaves the header unchanged. A key or
// value containing CR or LF returns ErrInvalidHeader. Set cannot fail
// otherwise.
func (h *Header) Set(key, value string) error {
	if err := validateField(key, value); err != nil {
		return err
	}
	lower := toLowerASCII(key)
	if lower == HeaderContentLength {
		n, err := parseContentLength(value)
		if err != nil {
			return err
		}
		h.contentLength, h.hasContentLength = n, true
	}

	if i := h.index(lower); i >= 0 {
		h.entries[i].Value = value
		return nil
	}
	h.entries = append(h.entries, HeaderEntry{Key: lower, Value: value})
	return nil
}

// Append joins value onto the existing value of key with ", ", or inserts
// it when key is absent.
//
// content-length is never joined: appending it when already present
// returns ErrDuplicateContentLength.
func (h *Header) Append(key, value string) error {
	if err := validateField(key, value); err != nil {
		return err
	}
	lower := toLowerASCII(key)
	i := h.index(lower)
	if lower == HeaderContentLength {
		if i >= 0 {
			return ErrDuplicateContentLength
		}
		n, err := parseContentLength(value)
		if err != nil {
			return err
		}
		h.contentLength, h.hasContentLength = n, true
	}

	if i >= 0 {
		h.entries[i].Value += ", " + value
		return nil
	}
	h.entries = append(h.entries, HeaderEntry{Key: lower, Value: value})
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
// The relative order of the remaining entries is preserved.
func (h *Header) Remove(key string) {
	i := h.index(key)
	if i < 0 {
		return
	}
	if h.entries[i].Key == HeaderContentLength {
		h.contentLength, h.hasContentLength = 0, false
	}
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
}

// ContentLength returns the parsed content-length and whether it is set.
func (h *Header) ContentLength() (int64, bool) {
	return h.contentLength, h.hasContentLength
}

// Entries returns the stored entries in insertion order.
// The slice is owned by the header; do not modify it.
func (h *Header) Entries() []HeaderEntry {
	return h.entries
}

// Len returns the number of entries.
func (h *Header) Len() int {
	return len(h.entries)
}

// Reset clears all entries, keeping the backing storage for reuse.
func (h *Header) Reset() {
	h.entries = h.entries[:0]
	h.contentLength, h.hasContentLength = 0, false
}

// Clone returns a deep copy of h.
func (h *Header) Clone() Header {
	c := *h
	c.entries = append([]HeaderEntry(nil), h.entries...)
	return c
}

// String renders the entries as header lines, mainly for logs and tests.
func (h *Header) String() string {
	var b strings.Builder
	for _, e := range h.entries {
		b.WriteString(e.Key)
		b.WriteString(": ")
		b.WriteString(e.Value)
		b.WriteString("\r\n")
	}
	return b.String()
}

func (h *Header) index(key string) int {
	for i := range h.entries {
		if equalFoldASCII(h.entries[i].Key, key) {
			return i
		}
	}
	return -1
}

// validateField rejects CR and LF in keys and values so a header can never
// start a new line on the wire.
func validateField(key, value string) error {
	if strings.ContainsAny(key, "\r\n") || strings.ContainsAny(value, "\r\n") {
		return ErrInvalidHeader
	}
	return nil
}

// parseContentLength parses a content-length value: digits only, no sign,
// no surrounding space, no overflow.
func parseContentLength(s string) (int64, error) {
	if len(s) == 0 {
		return 0, ErrInvalidContentLength
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isDigit(c) {
			return 0, ErrInvalidContentLength
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, ErrInvalidContentLength
		}
		n = n*10 + d
	}
	return n, nil
}

// equalFoldASCII compares two strings ASCII case-insensitively.
// Header keys are ASCII; no Unicode folding is wanted here.
func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if toLower(a[i]) != toLower(b[i]) {
			return false
		}
	}
	return true
}

// toLowerASCII lowercases ASCII letters, allocating only when needed.
func toLowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				b[j] = toLower(b[j])
			}
			return string(b)
		}
	}
	return s
}

// toLower converts an ASCII uppercase letter to lowercase.
// Non-letter bytes are returned unchanged.
func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}
