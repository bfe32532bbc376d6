package pool

import (
	"io"
	"log/slog"
)

// logger is used by every pool created after SetLogger. It discards output
// until configured.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger installs l as the logger for pools created from now on.
// A nil l restores the discarding default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = l
}
