package http11

import (
	"strings"
	"testing"
)

type parsedField struct {
	key, value string
}

func fieldsOf(head RequestHead) []parsedField {
	out := make([]parsedField, 0, len(head.Fields))
	for _, f := range head.Fields {
		out = append(out, parsedField{string(f.Key), string(f.Value)})
	}
	return out
}

func TestParseRequestScenario(t *testing.T) {
	input := "GET /index.html HTTP/1.1\r\nHost: example.com\r\nAccept:*/* \r\n\r\n"
	parser := NewParser(DefaultMaxHeaders)

	head, n, result := parser.Parse([]byte(input))
	if result != ParseDone {
		t.Fatalf("result = %v, want done", result)
	}
	if n != len(input) {
		t.Errorf("n = %d, want %d", n, len(input))
	}
	if string(head.Method) != "GET" {
		t.Errorf("Method = %q, want %q", head.Method, "GET")
	}
	if string(head.Target) != "/index.html" {
		t.Errorf("Target = %q, want %q", head.Target, "/index.html")
	}
	if string(head.Version) != "HTTP/1.1" {
		t.Errorf("Version = %q, want %q", head.Version, "HTTP/1.1")
	}

	want := []parsedField{{"Host", "example.com"}, {"Accept", "*/*"}}
	got := fieldsOf(head)
	if len(got) != len(want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseReportsHeadLength(t *testing.T) {
	head := "POST /form HTTP/1.1\r\nContent-Length: 5\r\n\r\n"
	input := head + "hello"

	_, n, result := NewParser(DefaultMaxHeaders).Parse([]byte(input))
	if result != ParseDone {
		t.Fatalf("result = %v, want done", result)
	}
	if n != len(head) {
		t.Errorf("n = %d, want %d", n, len(head))
	}
	if input[n:] != "hello" {
		t.Errorf("body = %q, want %q", input[n:], "hello")
	}
}

func TestParseValid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		method  string
		target  string
		version string
		fields  []parsedField
	}{
		{
			name:    "no headers",
			input:   "GET / HTTP/1.1\r\n\r\n",
			method:  "GET",
			target:  "/",
			version: "HTTP/1.1",
		},
		{
			name:    "http 1.0",
			input:   "HEAD /x HTTP/1.0\r\n\r\n",
			method:  "HEAD",
			target:  "/x",
			version: "HTTP/1.0",
		},
		{
			name:    "multi digit minor version",
			input:   "GET / HTTP/1.10\r\n\r\n",
			method:  "GET",
			target:  "/",
			version: "HTTP/1.10",
		},
		{
			name:    "extension method",
			input:   "PURGE /cache HTTP/1.1\r\n\r\n",
			method:  "PURGE",
			target:  "/cache",
			version: "HTTP/1.1",
		},
		{
			name:    "several spaces between tokens",
			input:   "GET   /a?b=c   HTTP/1.1\r\n\r\n",
			method:  "GET",
			target:  "/a?b=c",
			version: "HTTP/1.1",
		},
		{
			name:    "empty header value",
			input:   "GET / HTTP/1.1\r\nX-Empty:\r\nX-Spaces:   \r\n\r\n",
			method:  "GET",
			target:  "/",
			version: "HTTP/1.1",
			fields:  []parsedField{{"X-Empty", ""}, {"X-Spaces", ""}},
		},
		{
			name:    "value keeps inner spaces",
			input:   "GET / HTTP/1.1\r\nUser-Agent:  curl/8.0 (x86_64)  \r\n\r\n",
			method:  "GET",
			target:  "/",
			version: "HTTP/1.1",
			fields:  []parsedField{{"User-Agent", "curl/8.0 (x86_64)"}},
		},
		{
			name:    "value with tab",
			input:   "GET / HTTP/1.1\r\nX-Tab:\ta\tb\t\r\n\r\n",
			method:  "GET",
			target:  "/",
			version: "HTTP/1.1",
			fields:  []parsedField{{"X-Tab", "a\tb"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head, n, result := NewParser(DefaultMaxHeaders).Parse([]byte(tt.input))
			if result != ParseDone {
				t.Fatalf("result = %v, want done", result)
			}
			if n != len(tt.input) {
				t.Errorf("n = %d, want %d", n, len(tt.input))
			}
			if string(head.Method) != tt.method {
				t.Errorf("Method = %q, want %q", head.Method, tt.method)
			}
			if string(head.Target) != tt.target {
				t.Errorf("Target = %q, want %q", head.Target, tt.target)
			}
			if string(head.Version) != tt.version {
				t.Errorf("Version = %q, want %q", head.Version, tt.version)
			}
			got := fieldsOf(head)
			if len(got) != len(tt.fields) {
				t.Fatalf("fields = %v, want %v", got, tt.fields)
			}
			for i := range tt.fields {
				if got[i] != tt.fields[i] {
					t.Errorf("field[%d] = %v, want %v", i, got[i], tt.fields[i])
				}
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty method", " / HTTP/1.1\r\n\r\n"},
		{"delimiter in method", "GE(T / HTTP/1.1\r\n\r\n"},
		{"missing space after method", "GET\t/ HTTP/1.1\r\n\r\n"},
		{"control byte in target", "GET /a\x01b HTTP/1.1\r\n\r\n"},
		{"non-ascii target", "GET /caf\xc3\xa9 HTTP/1.1\r\n\r\n"},
		{"http 2", "GET / HTTP/2.0\r\n\r\n"},
		{"lowercase version", "GET / http/1.1\r\n\r\n"},
		{"version without minor", "GET / HTTP/1.\r\n\r\n"},
		{"bare LF after request line", "GET / HTTP/1.1\nHost: x\r\n\r\n"},
		{"bare LF after header", "GET / HTTP/1.1\r\nHost: x\n\r\n"},
		{"bare LF terminator", "GET / HTTP/1.1\r\nHost: x\r\n\n"},
		{"space before colon", "GET / HTTP/1.1\r\nHost : x\r\n\r\n"},
		{"missing colon", "GET / HTTP/1.1\r\nHost x\r\n\r\n"},
		{"invalid header name", "GET / HTTP/1.1\r\nBad(: v\r\n\r\n"},
		{"CR inside value", "GET / HTTP/1.1\r\nX: a\rb\r\n\r\n"},
		{"NUL inside value", "GET / HTTP/1.1\r\nX: a\x00b\r\n\r\n"},
		{"obs-fold continuation", "GET / HTTP/1.1\r\nX: a\r\n b\r\n\r\n"},
		{"trailing garbage after version", "GET / HTTP/1.1x\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, result := NewParser(DefaultMaxHeaders).Parse([]byte(tt.input))
			if result != ParseInvalid {
				t.Errorf("result = %v, want invalid", result)
			}
		})
	}
}

func TestParseInProgress(t *testing.T) {
	tests := []string{
		"",
		"G",
		"GET",
		"GET ",
		"GET /index",
		"GET /index.html HTTP/1",
		"GET /index.html HTTP/1.1",
		"GET /index.html HTTP/1.1\r",
		"GET /index.html HTTP/1.1\r\n",
		"GET /index.html HTTP/1.1\r\nHost",
		"GET /index.html HTTP/1.1\r\nHost:",
		"GET /index.html HTTP/1.1\r\nHost:   ",
		"GET /index.html HTTP/1.1\r\nHost: example.com",
		"GET /index.html HTTP/1.1\r\nHost: example.com\r",
		"GET /index.html HTTP/1.1\r\nHost: example.com\r\n",
		"GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, _, result := NewParser(DefaultMaxHeaders).Parse([]byte(input))
			if result != ParseInProgress {
				t.Errorf("Parse(%q) = %v, want in-progress", input, result)
			}
		})
	}
}

// Feeding a head one prefix at a time must give in-progress for every
// strict prefix and the one-shot result for the full input.
func TestParseResumableAtEveryBoundary(t *testing.T) {
	input := "POST /api/items?id=7 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 3\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\n"

	parser := NewParser(DefaultMaxHeaders)
	want, wantN, result := parser.Parse([]byte(input))
	if result != ParseDone {
		t.Fatalf("one-shot result = %v, want done", result)
	}
	wantFields := fieldsOf(want)

	for i := 0; i < len(input); i++ {
		_, _, result := parser.Parse([]byte(input[:i]))
		if result != ParseInProgress {
			t.Fatalf("prefix %d: result = %v, want in-progress", i, result)
		}
	}

	got, gotN, result := parser.Parse([]byte(input))
	if result != ParseDone || gotN != wantN {
		t.Fatalf("final = (%v, %d), want (done, %d)", result, gotN, wantN)
	}
	gotFields := fieldsOf(got)
	for i := range wantFields {
		if gotFields[i] != wantFields[i] {
			t.Errorf("field[%d] = %v, want %v", i, gotFields[i], wantFields[i])
		}
	}
}

// Accumulating arbitrary chunks, as the connection does, must reach the
// same head as one-shot parsing.
func TestParseResumableChunked(t *testing.T) {
	input := "GET /index.html HTTP/1.1\r\nHost: example.com\r\nAccept:*/* \r\n\r\n"
	splits := [][]int{
		{1},
		{3, 4, 5},
		{10, 25, 26, 27},
		{len(input) - 1},
		{16, 17, 18, 19, 20, 21, 22, 23, 24},
	}

	for _, cuts := range splits {
		parser := NewParser(DefaultMaxHeaders)
		var buf []byte
		prev := 0
		var head RequestHead
		var n int
		var result ParseResult
		for _, cut := range append(cuts, len(input)) {
			buf = append(buf, input[prev:cut]...)
			prev = cut
			head, n, result = parser.Parse(buf)
			if result == ParseDone {
				break
			}
			if result != ParseInProgress {
				t.Fatalf("cuts %v: result = %v", cuts, result)
			}
		}
		if result != ParseDone {
			t.Fatalf("cuts %v: never finished", cuts)
		}
		if n != len(input) || string(head.Target) != "/index.html" || len(head.Fields) != 2 {
			t.Errorf("cuts %v: head = %q n=%d fields=%d", cuts, head.Target, n, len(head.Fields))
		}
		if string(head.Fields[1].Value) != "*/*" {
			t.Errorf("cuts %v: accept = %q", cuts, head.Fields[1].Value)
		}
	}
}

func TestParseTooManyHeaders(t *testing.T) {
	const capacity = 4

	build := func(count int) string {
		var b strings.Builder
		b.WriteString("GET / HTTP/1.1\r\n")
		for i := 0; i < count; i++ {
			b.WriteString("X-H: v\r\n")
		}
		b.WriteString("\r\n")
		return b.String()
	}

	t.Run("at capacity", func(t *testing.T) {
		head, _, result := NewParser(capacity).Parse([]byte(build(capacity)))
		if result != ParseDone {
			t.Fatalf("result = %v, want done", result)
		}
		if len(head.Fields) != capacity {
			t.Errorf("fields = %d, want %d", len(head.Fields), capacity)
		}
	})

	for _, count := range []int{capacity + 1, capacity + 2, capacity * 10} {
		input := build(count)
		t.Run("over capacity", func(t *testing.T) {
			_, _, result := NewParser(capacity).Parse([]byte(input))
			if result != ParseTooManyHeaders {
				t.Errorf("count %d: result = %v, want too-many-headers", count, result)
			}
		})
	}

	// The excess header may still be arriving.
	t.Run("partial tail", func(t *testing.T) {
		input := build(capacity + 1)
		input = input[:len(input)-2]
		_, _, result := NewParser(capacity).Parse([]byte(input))
		if result != ParseTooManyHeaders {
			t.Errorf("result = %v, want too-many-headers", result)
		}
	})
}

func TestParseIsRestartable(t *testing.T) {
	parser := NewParser(DefaultMaxHeaders)

	first := []byte("GET /one HTTP/1.1\r\nA: 1\r\nB: 2\r\n\r\n")
	second := []byte("GET /two HTTP/1.1\r\nC: 3\r\n\r\n")

	if _, _, result := parser.Parse(first); result != ParseDone {
		t.Fatalf("first result = %v", result)
	}
	head, _, result := parser.Parse(second)
	if result != ParseDone {
		t.Fatalf("second result = %v", result)
	}
	if string(head.Target) != "/two" || len(head.Fields) != 1 || string(head.Fields[0].Key) != "C" {
		t.Errorf("second head = %q %v", head.Target, fieldsOf(head))
	}
}

func TestParseResultString(t *testing.T) {
	tests := []struct {
		result   ParseResult
		expected string
	}{
		{ParseDone, "done"},
		{ParseInProgress, "in-progress"},
		{ParseInvalid, "invalid"},
		{ParseTooManyHeaders, "too-many-headers"},
		{ParseResult(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.result.String(); got != tt.expected {
			t.Errorf("String() = %s, want %s", got, tt.expected)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	input := []byte("GET /api/users/123?fields=name HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: bench\r\n" +
		"Accept: */*\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\n")
	parser := NewParser(DefaultMaxHeaders)

	b.ReportAllocs()
	b.SetBytes(int64(len(input)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, _, result := parser.Parse(input); result != ParseDone {
			b.Fatal(result)
		}
	}
}
