// Package logger holds the process-wide zerolog logger of the auth service.
//
// main calls Init once; packages receive child loggers from Component and
// never build their own.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level accepts any zerolog level name plus "warning". Unknown or empty
	// values fall back to info.
	Level string
	// Pretty switches to the coloured console writer for local development.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service and Env are stamped on every entry when set.
	Service string
	Env     string
}

var (
	mu   sync.RWMutex
	root *zerolog.Logger
)

// Init builds the root logger. The first call wins; later calls return the
// logger already in place.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		return *root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	l := zerolog.New(writer(opts)).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		l = l.Str("service", opts.Service)
	}
	if opts.Env != "" {
		l = l.Str("env", opts.Env)
	}
	built := l.Logger()
	root = &built
	return built
}

func writer(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// Get returns the root logger. It panics before Init.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		panic("logger: Get() called before Init()")
	}
	return *root
}

// Component returns a child logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Reset drops the root logger so tests can Init again.
func Reset() {
	mu.Lock()
	root = nil
	mu.Unlock()
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
