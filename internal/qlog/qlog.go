// Package qlog wires up the structured logger shared by every qipu
// package. It never panics or exits; command-line fatal handling lives in
// cmd/qipu.
package qlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu  sync.Mutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// Options configures the process-wide logger.
type Options struct {
	// LogFile, when non-empty, adds a rotating file sink alongside stderr.
	LogFile string
	Verbose bool
	Quiet   bool
}

// Configure rebuilds the shared logger. Safe to call more than once; the
// last call wins.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	switch {
	case opts.Quiet:
		level = zerolog.ErrorLevel
	case opts.Verbose:
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if opts.LogFile != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// L returns the shared logger.
func L() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return &log
}
