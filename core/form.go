package core

import (
	"fmt"
	"strings"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// ParseForm decodes an application/x-www-form-urlencoded body into
// req.Form.
//
// Pairs are separated by '&' and split at the first '='. A pair without
// '=' has an empty value; empty pairs are skipped. Values for a repeated
// name are appended in body order. A bad escape returns an error matching
// http11.ErrInvalidRequest and leaves req.Form untouched.
func ParseForm(req *http11.Request) error {
	body := req.BodyText()
	if body == "" {
		return nil
	}

	type pair struct{ key, value string }
	var pairs []pair
	for _, expr := range strings.Split(body, "&") {
		if expr == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(expr, "=")

		key, ok := DecodeForm(rawKey)
		if !ok {
			return fmt.Errorf("%w: bad escape in form name %q", http11.ErrInvalidRequest, rawKey)
		}
		value, ok := DecodeForm(rawValue)
		if !ok {
			return fmt.Errorf("%w: bad escape in form value %q", http11.ErrInvalidRequest, rawValue)
		}
		pairs = append(pairs, pair{key, value})
	}

	for _, p := range pairs {
		req.AddForm(p.key, p.value)
	}
	return nil
}

// FormHandler wraps h so the body is decoded into req.Form before h runs.
// Bodies of other content types pass through untouched.
func FormHandler(h Handler) Handler {
	return func(req *http11.Request) (*http11.Response, error) {
		if ct, ok := req.Header.Get(http11.HeaderContentType); ok && isFormContentType(ct) {
			if err := ParseForm(req); err != nil {
				return nil, err
			}
		}
		return h(req)
	}
}

func isFormContentType(ct string) bool {
	mediaType, _, _ := strings.Cut(ct, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/x-www-form-urlencoded")
}
