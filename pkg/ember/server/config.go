package server

import (
	"os"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
	"github.com/watt-toolkit/ember/pkg/ember/socket"
)

// Config holds server configuration.
//
// Fields with an envconfig tag can be loaded from the environment with
// ConfigFromEnv.
type Config struct {
	// Addr is the TCP address to listen on (e.g., ":8080")
	// Default: ":8080"
	Addr string `envconfig:"EMBER_ADDR"`

	// HeadBufferSize is the fixed capacity of the per-connection buffer the
	// request head must fit in. Heads that do not fit are answered with 431.
	// Default: 4096 bytes
	HeadBufferSize int `envconfig:"EMBER_HEAD_BUFFER_SIZE"`

	// MaxHeaders is the number of header lines accepted per request
	// Default: 100
	MaxHeaders int `envconfig:"EMBER_MAX_HEADERS"`

	// MaxBodyBytes bounds the declared content-length. Larger bodies are
	// answered with 413.
	// Default: 1 MiB
	MaxBodyBytes int64 `envconfig:"EMBER_MAX_BODY_BYTES"`

	// ReadTimeout bounds every read from a connection.
	// Default: 0 (no timeout)
	ReadTimeout time.Duration `envconfig:"EMBER_READ_TIMEOUT"`

	// Socket tunes the listener and accepted connections.
	// Default: socket.DefaultConfig()
	Socket *socket.Config `ignored:"true"`

	// Logger receives connection diagnostics.
	// Default: a logrus logger writing to stderr at Info level
	Logger logrus.FieldLogger `ignored:"true"`

	// Metrics collects connection and request metrics. nil disables them.
	Metrics *Metrics `ignored:"true"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		HeadBufferSize: http11.DefaultHeadBufferSize,
		MaxHeaders:     http11.DefaultMaxHeaders,
		MaxBodyBytes:   http11.DefaultMaxBodyBytes,
		Socket:         socket.DefaultConfig(),
		Logger:         defaultLogger(),
	}
}

// ConfigFromEnv returns DefaultConfig overridden by EMBER_* variables.
func ConfigFromEnv() (Config, error) {
	return configFromLookup(os.LookupEnv)
}

func configFromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// withDefaults fills zero fields so a partially filled Config is usable.
func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.HeadBufferSize <= 0 {
		c.HeadBufferSize = http11.DefaultHeadBufferSize
	}
	if c.MaxHeaders <= 0 {
		c.MaxHeaders = http11.DefaultMaxHeaders
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = http11.DefaultMaxBodyBytes
	}
	if c.Socket == nil {
		c.Socket = socket.DefaultConfig()
	}
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	return c
}

func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}
