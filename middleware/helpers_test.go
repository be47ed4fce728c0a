package middleware

import (
	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

func newRequest(method, target string, headers ...string) *http11.Request {
	head := http11.RequestHead{
		Method:  []byte(method),
		Target:  []byte(target),
		Version: []byte("HTTP/1.1"),
	}
	for i := 0; i+1 < len(headers); i += 2 {
		head.Fields = append(head.Fields, http11.HeaderField{Key: []byte(headers[i]), Value: []byte(headers[i+1])})
	}
	req, err := http11.NewRequest(head, nil)
	if err != nil {
		panic(err)
	}
	return req
}

func notFound() *http11.Response {
	return http11.HTML(http11.StatusNotFound, "404 not found")
}

func header(res *http11.Response, key string) string {
	v, _ := res.Header.Get(key)
	return v
}
