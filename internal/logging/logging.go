// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Options selects the log outputs. Console defaults to stdout.
type Options struct {
	Level   string
	Console io.Writer
	NoColor bool
	// File, when set, also receives uncoloured console output.
	File string
	// Graylog is a host:port receiving GELF over UDP.
	Graylog string
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// Setup sets the global level and returns a logger writing to every
// configured output. The returned close function releases file and
// Graylog handles.
func Setup(opts Options) (zerolog.Logger, func() error, error) {
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: opts.NoColor},
	}
	var closers []io.Closer

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true})
		closers = append(closers, f)
	}

	if opts.Graylog != "" {
		gw, err := gelf.NewWriter(opts.Graylog)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return zerolog.Nop(), nil, fmt.Errorf("connecting to graylog: %w", err)
		}
		writers = append(writers, gw)
		closers = append(closers, gw)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	logger.Debug().Str("level", zerolog.GlobalLevel().String()).Msg("Logging set up")
	return logger, closeAll, nil
}
