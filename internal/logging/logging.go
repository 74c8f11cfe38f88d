// Package logging configures the logrus standard logger every package logs through.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

type Options struct {
	Level string
	// File receives the logs when set. The TUI sets it so logs do not draw over
	// the screen.
	File string
	// JSON switches to the JSON formatter.
	JSON bool
	// Stderr is used when File is empty. Nil means os.Stderr.
	Stderr io.Writer
}

// SetLoggerLevel parses level, falling back to warn for CLI use.
func SetLoggerLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	log.SetLevel(lvl)
}

// Setup applies opts to the standard logger. The returned func closes the log
// file, if one was opened.
func Setup(opts Options) (func() error, error) {
	SetLoggerLevel(opts.Level)
	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: opts.File != ""})
	}

	if strings.TrimSpace(opts.File) == "" {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		log.SetOutput(out)
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return f.Close, nil
}
