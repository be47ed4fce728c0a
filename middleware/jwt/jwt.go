// Package jwt guards handlers behind HS-signed bearer tokens.
package jwt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/watt-toolkit/ember/core"
	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// Common JWT errors
var (
	ErrMissingToken      = errors.New("missing authorization token")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
)

// Config defines JWT middleware configuration.
type Config struct {
	// Secret is the key used to validate tokens
	Secret []byte

	// Algorithm is the signing algorithm (HS256, HS384, HS512)
	// Default: HS256
	Algorithm string

	// SkipPaths are paths served without a token (e.g., /login)
	SkipPaths []string

	// ContextKey is the request value key claims are stored under
	// Default: "user"
	ContextKey string

	// ErrorHandler builds the response when authentication fails
	// Default: 401 with {"error": "<message>"}
	ErrorHandler func(*http11.Request, error) (*http11.Response, error)
}

// Require wraps handlers so they only run for requests carrying a valid
// "Authorization: Bearer <token>" header. The token's claims are stored on
// the request under ContextKey as jwt.MapClaims.
//
// Example:
//
//	auth := jwt.Require(jwt.Config{Secret: []byte("my-secret")})
//	app.Get("/me", auth(func(req *http11.Request) (*http11.Response, error) {
//	    claims := req.Value("user").(jwtlib.MapClaims)
//	    return http11.JSON(200, claims)
//	}))
func Require(config Config) func(core.Handler) core.Handler {
	if config.Algorithm == "" {
		config.Algorithm = "HS256"
	}
	if config.ContextKey == "" {
		config.ContextKey = "user"
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = unauthorized
	}

	skipMap := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{config.Algorithm}))
	keyFunc := func(*jwt.Token) (any, error) {
		return config.Secret, nil
	}

	return func(next core.Handler) core.Handler {
		return func(req *http11.Request) (*http11.Response, error) {
			if skipMap[req.Path] {
				return next(req)
			}

			tokenString, err := bearerToken(req)
			if err != nil {
				return config.ErrorHandler(req, err)
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
			if err != nil {
				return config.ErrorHandler(req, fmt.Errorf("%w: %w", ErrInvalidToken, err))
			}
			if !token.Valid {
				return config.ErrorHandler(req, ErrInvalidToken)
			}

			req.Set(config.ContextKey, claims)
			return next(req)
		}
	}
}

// Claims returns the claims Require stored on req under key.
func Claims(req *http11.Request, key string) (jwt.MapClaims, error) {
	claims, ok := req.Value(key).(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func bearerToken(req *http11.Request) (string, error) {
	auth, ok := req.Header.Get("authorization")
	if !ok || auth == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidAuthHeader
	}
	return token, nil
}

func unauthorized(_ *http11.Request, err error) (*http11.Response, error) {
	return http11.JSON(http11.StatusUnauthorized, map[string]string{
		"error": err.Error(),
	})
}
