package middleware

import (
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/ember/core"
	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// LogEntry is one access log record.
type LogEntry struct {
	Time       string  `json:"time"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	Status     int     `json:"status"`
	DurationMS float64 `json:"duration_ms"`
	Bytes      int     `json:"bytes"`
}

// LoggerConfig controls the access log. Zero fields take the values of
// DefaultLoggerConfig.
type LoggerConfig struct {
	Output io.Writer

	// Format is "json" (one LogEntry per line) or "text".
	Format string

	// SkipPaths are request paths that are never logged, e.g. /metrics.
	SkipPaths []string

	// TimeFormat formats LogEntry.Time.
	TimeFormat string

	now func() time.Time
}

// DefaultLoggerConfig logs JSON lines with RFC 3339 timestamps to stdout.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Output:     os.Stdout,
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Logger is LoggerWithConfig(DefaultLoggerConfig()).
func Logger() core.Middleware {
	return LoggerWithConfig(DefaultLoggerConfig())
}

// LoggerWithConfig returns a middleware writing one access log line per
// response. The duration is measured from Request.ReceivedAt, the moment
// the head was complete.
//
// Middlewares run in registration order, so register the logger last to
// record the final status:
//
//	app.Use(middleware.Static("./public"))
//	app.Use(middleware.Logger())
//
// A JSON line looks like:
//
//	{"time":"2025-11-13T10:30:00Z","method":"GET","path":"/users","status":200,"duration_ms":0.15,"bytes":1234}
func LoggerWithConfig(config LoggerConfig) core.Middleware {
	defaults := DefaultLoggerConfig()
	if config.Output == nil {
		config.Output = defaults.Output
	}
	if config.Format == "" {
		config.Format = defaults.Format
	}
	if config.TimeFormat == "" {
		config.TimeFormat = defaults.TimeFormat
	}
	if config.now == nil {
		config.now = time.Now
	}

	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(req *http11.Request, res *http11.Response) {
		if _, ok := skip[req.Path]; ok {
			return
		}

		now := config.now()
		start := req.ReceivedAt
		if start.IsZero() {
			start = now
		}
		entry := LogEntry{
			Time:       start.Format(config.TimeFormat),
			Method:     req.Method,
			Path:       req.Path,
			Status:     res.Status,
			DurationMS: float64(now.Sub(start).Microseconds()) / 1000,
			Bytes:      res.ContentLength(),
		}

		var err error
		if config.Format == "json" {
			err = json.NewEncoder(config.Output).Encode(entry)
		} else {
			_, err = fmt.Fprintf(config.Output, "%s %s - %d - %v - %dB\n",
				entry.Method, entry.Path, entry.Status, now.Sub(start), entry.Bytes)
		}
		if err != nil {
			logrus.WithError(err).Warn("Failed to write access log")
		}
	}
}
