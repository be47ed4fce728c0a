package middleware

import (
	"strconv"
	"strings"

	"github.com/watt-toolkit/ember/core"
	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// CORSConfig controls the access-control headers added to responses.
// Zero fields take the values of DefaultCORSConfig.
type CORSConfig struct {
	// AllowOrigins lists origins echoed back in access-control-allow-origin.
	// "*" anywhere in the list allows every origin.
	AllowOrigins []string

	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string

	// AllowCredentials is only meaningful with explicit origins; browsers
	// reject credentials combined with "*".
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig allows any origin, the common methods and any header,
// with preflight answers cached for a day.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			core.MethodGet, core.MethodPost, core.MethodPut, core.MethodDelete,
			core.MethodPatch, core.MethodHead, core.MethodOptions,
		},
		AllowHeaders: []string{"*"},
		MaxAge:       24 * 60 * 60,
	}
}

// CORS is CORSWithConfig(DefaultCORSConfig()).
func CORS() core.Middleware {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a middleware adding CORS headers to every response
// whose request Origin is allowed.
//
// OPTIONS requests also get the allow-methods, allow-headers and max-age
// headers. When no route answered the OPTIONS request (the response is a
// 404) it becomes an empty 204 preflight answer.
//
//	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
//	    AllowOrigins:     []string{"https://example.com"},
//	    AllowCredentials: true,
//	}))
func CORSWithConfig(config CORSConfig) core.Middleware {
	defaults := DefaultCORSConfig()
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = defaults.AllowOrigins
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = defaults.AllowMethods
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = defaults.AllowHeaders
	}
	if config.MaxAge == 0 {
		config.MaxAge = defaults.MaxAge
	}

	p := corsPolicy{
		origins:     make(map[string]bool, len(config.AllowOrigins)),
		methods:     strings.Join(config.AllowMethods, ", "),
		headers:     strings.Join(config.AllowHeaders, ", "),
		expose:      strings.Join(config.ExposeHeaders, ", "),
		maxAge:      strconv.Itoa(config.MaxAge),
		credentials: config.AllowCredentials,
	}
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			p.anyOrigin = true
		}
		p.origins[origin] = true
	}

	return p.apply
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]bool
	methods     string
	headers     string
	expose      string
	maxAge      string
	credentials bool
}

// allowedOrigin returns the access-control-allow-origin value for origin,
// or "" when the origin is refused.
func (p *corsPolicy) allowedOrigin(origin string) string {
	switch {
	case p.anyOrigin:
		return "*"
	case origin != "" && p.origins[origin]:
		return origin
	default:
		return ""
	}
}

func (p *corsPolicy) apply(req *http11.Request, res *http11.Response) {
	origin, _ := req.Header.Get("origin")
	allow := p.allowedOrigin(origin)

	if allow != "" {
		_ = res.Header.Set("access-control-allow-origin", allow)
		if allow != "*" {
			_ = res.Header.Set("vary", "Origin")
		}
		if p.credentials {
			_ = res.Header.Set("access-control-allow-credentials", "true")
		}
		if p.expose != "" {
			_ = res.Header.Set("access-control-expose-headers", p.expose)
		}
	}

	if req.Method != core.MethodOptions {
		return
	}
	if allow != "" {
		_ = res.Header.Set("access-control-allow-methods", p.methods)
		_ = res.Header.Set("access-control-allow-headers", p.headers)
		_ = res.Header.Set("access-control-max-age", p.maxAge)
	}
	if res.Status == http11.StatusNotFound {
		res.Status = http11.StatusNoContent
		res.Header.Remove(http11.HeaderContentType)
		res.SetBody(nil)
	}
}
