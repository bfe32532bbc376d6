// Package logger holds the process-wide slog logger used by poolctl.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger. It discards everything until Init enables it.
var L = discard()

const (
	filePrefix    = "poolctl-"
	fileSuffix    = ".log"
	retentionDays = 14
)

// Options configures Init.
type Options struct {
	Enabled bool
	Level   slog.Level
	// Dir receives one JSON log file per day. Empty means text on Stderr.
	Dir string
	// Stderr overrides os.Stderr, for tests.
	Stderr io.Writer
}

// Init replaces L according to opts. The returned closer releases the log
// file, if any, and is never nil.
func Init(opts Options) (io.Closer, error) {
	if !opts.Enabled {
		L = discard()
		return nopCloser{}, nil
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.Dir == "" {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		L = slog.New(slog.NewTextHandler(w, handlerOpts))
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	prune(opts.Dir, time.Now())

	name := filepath.Join(opts.Dir, filePrefix+time.Now().Format(time.DateOnly)+fileSuffix)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	L = slog.New(slog.NewJSONHandler(f, handlerOpts))
	return f, nil
}

// ParseLevel maps debug, info, warn and error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

// prune deletes poolctl log files older than retentionDays. Errors are ignored.
func prune(dir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		day, ok := strings.CutPrefix(e.Name(), filePrefix)
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, fileSuffix)
		if !ok {
			continue
		}
		t, err := time.Parse(time.DateOnly, day)
		if err != nil || !t.Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
