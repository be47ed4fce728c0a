package core

import "net/url"

// Decode percent-decodes a path segment. '+' is kept literally.
// It reports false for a '%' not followed by two hex digits.
func Decode(s string) (string, bool) {
	v, err := url.PathUnescape(s)
	if err != nil {
		return "", false
	}
	return v, true
}

// DecodeForm percent-decodes an x-www-form-urlencoded name or value,
// turning '+' into a space.
func DecodeForm(s string) (string, bool) {
	v, err := url.QueryUnescape(s)
	if err != nil {
		return "", false
	}
	return v, true
}
